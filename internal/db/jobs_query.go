package db

import (
	"fmt"
	"math"
	"strings"
)

// RecommendationLimit caps the recommendation query.
const RecommendationLimit = 10

// MaxPage is the largest page whose offset fits in an int.
const MaxPage = math.MaxInt/JobsPerPage + 1

// NormalizePage maps missing or invalid page numbers to 1 and caps the
// rest at MaxPage.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return min(page, MaxPage)
}

// PageOffset returns the number of rows skipped before page.
func PageOffset(page int) int {
	return (NormalizePage(page) - 1) * JobsPerPage
}

// TotalPages returns the page count for total rows.
func TotalPages(total int) int {
	return (total + JobsPerPage - 1) / JobsPerPage
}

// escapeLike escapes ILIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// buildJobListWhere renders the WHERE clause and arguments for f. Only jobs
// joined to an existing company (alias c) are ever returned.
func buildJobListWhere(f JobFilter) (string, []any) {
	conditions := []string{"c.id IS NOT NULL"}
	var args []any
	argIndex := 1

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", argIndex))
		args = append(args, f.Status)
		argIndex++
	}

	if f.CompanyID != "" {
		conditions = append(conditions, fmt.Sprintf("j.company_id = $%d", argIndex))
		args = append(args, f.CompanyID)
		argIndex++
	}

	if f.EmploymentType != "" {
		conditions = append(conditions, fmt.Sprintf("j.employment_type = $%d", argIndex))
		args = append(args, f.EmploymentType)
		argIndex++
	}

	if f.PostedBy != "" {
		conditions = append(conditions, fmt.Sprintf("j.user_id = $%d", argIndex))
		args = append(args, f.PostedBy)
		argIndex++
	}

	if len(f.ExcludeIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("j.id <> ALL($%d)", argIndex))
		args = append(args, f.ExcludeIDs)
		argIndex++
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(j.title ILIKE $%[1]d OR j.description ILIKE $%[1]d OR j.location ILIKE $%[1]d)", argIndex))
		args = append(args, containsPattern(search))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildRecommendationQuery renders the skill-based recommendation query.
// variants are matched against requirement entries, skills against the
// title and description.
func buildRecommendationQuery(viewer string, variants, skills []string) (string, []any) {
	lowered := make([]string, 0, len(variants))
	for _, v := range variants {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			lowered = append(lowered, v)
		}
	}
	patterns := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			patterns = append(patterns, containsPattern(s))
		}
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM jobs j JOIN companies c ON c.id = j.company_id
		 WHERE j.status = $1
		   AND j.user_id <> $2
		   AND (
		     EXISTS (SELECT 1 FROM unnest(j.requirements) AS r WHERE lower(trim(r)) = ANY($3))
		     OR j.title ILIKE ANY($4)
		     OR j.description ILIKE ANY($4)
		   )
		 ORDER BY j.posted_at DESC
		 LIMIT %d`,
		jobWithCompanyColumns, RecommendationLimit,
	)
	return query, []any{JobStatusActive, viewer, lowered, patterns}
}
