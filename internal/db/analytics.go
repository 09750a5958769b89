package db

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// TopN is the length of the ranked analytics lists.
const TopN = 5

// BasicStats counts companies, jobs and applications concurrently.
// TotalUsers is left for the caller, since users live at the identity provider.
func (db *DB) BasicStats(ctx context.Context) (BasicStats, error) {
	var s BasicStats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int, query string, args ...any) {
		g.Go(func() error {
			return db.pool.QueryRow(ctx, query, args...).Scan(dst)
		})
	}
	count(&s.TotalCompanies, `SELECT COUNT(*) FROM companies`)
	count(&s.VerifiedCompanies, `SELECT COUNT(*) FROM companies WHERE is_verified`)
	count(&s.TotalJobs, `SELECT COUNT(*) FROM jobs`)
	count(&s.TotalApplications, `SELECT COUNT(*) FROM applications`)
	count(&s.PendingApplications, `SELECT COUNT(*) FROM applications WHERE status = $1`, StatusPending)

	if err := g.Wait(); err != nil {
		return BasicStats{}, fmt.Errorf("failed to count basic stats: %w", err)
	}
	return s, nil
}

// TopCompaniesByJobs ranks companies by number of postings.
func (db *DB) TopCompaniesByJobs(ctx context.Context, limit int) ([]CompanyJobCount, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.name, COUNT(j.id) AS job_count
		 FROM companies c LEFT JOIN jobs j ON j.company_id = c.id
		 GROUP BY c.id, c.name
		 ORDER BY job_count DESC, c.name ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank companies by jobs: %w", err)
	}
	defer rows.Close()

	out := make([]CompanyJobCount, 0, limit)
	for rows.Next() {
		var c CompanyJobCount
		if err := rows.Scan(&c.ID, &c.Name, &c.JobCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompanyApplicationStats ranks companies by applications received.
func (db *DB) CompanyApplicationStats(ctx context.Context, limit int) ([]CompanyAppCount, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.name, COUNT(DISTINCT j.id) AS job_count, COUNT(a.id) AS app_count
		 FROM companies c
		 LEFT JOIN jobs j ON j.company_id = c.id
		 LEFT JOIN applications a ON a.job_id = j.id
		 GROUP BY c.id, c.name
		 ORDER BY app_count DESC, c.name ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank companies by applications: %w", err)
	}
	defer rows.Close()

	out := make([]CompanyAppCount, 0, limit)
	for rows.Next() {
		var c CompanyAppCount
		if err := rows.Scan(&c.ID, &c.Name, &c.JobCount, &c.ApplicationCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// JobsByIndustry counts jobs per company industry; an empty industry is
// reported as "Unspecified".
func (db *DB) JobsByIndustry(ctx context.Context, limit int) ([]IndustryCount, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT COALESCE(NULLIF(c.industry, ''), 'Unspecified') AS industry, COUNT(*) AS n
		 FROM jobs j JOIN companies c ON c.id = j.company_id
		 GROUP BY 1
		 ORDER BY n DESC, industry ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by industry: %w", err)
	}
	defer rows.Close()

	out := make([]IndustryCount, 0, limit)
	for rows.Next() {
		var c IndustryCount
		if err := rows.Scan(&c.Industry, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Analytics gathers the admin analytics concurrently.
func (db *DB) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := db.BasicStats(gctx)
		a.BasicStats = s
		return err
	})
	g.Go(func() error {
		top, err := db.TopCompaniesByJobs(gctx, TopN)
		a.TopCompaniesByJobs = top
		return err
	})
	g.Go(func() error {
		stats, err := db.CompanyApplicationStats(gctx, TopN)
		a.CompanyAppStats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}

// CompanyDashboard aggregates applications across every company owned by ownerID.
func (db *DB) CompanyDashboard(ctx context.Context, ownerID string) (*CompanyDashboard, error) {
	d := CompanyDashboard{AppsByStatus: map[string]int{}, AppsByJob: []JobAppCount{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return db.pool.QueryRow(gctx,
			`SELECT COUNT(*) FROM jobs j JOIN companies c ON c.id = j.company_id WHERE c.user_id = $1`,
			ownerID).Scan(&d.TotalJobs)
	})
	g.Go(func() error {
		return db.pool.QueryRow(gctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE a.ats_score > 0)
			 FROM applications a
			 JOIN jobs j ON j.id = a.job_id
			 JOIN companies c ON c.id = j.company_id
			 WHERE c.user_id = $1`,
			ownerID).Scan(&d.TotalApps, &d.ATSProcessed)
	})
	byStatus := map[string]int{}
	g.Go(func() error {
		rows, err := db.pool.Query(gctx,
			`SELECT a.status, COUNT(*)
			 FROM applications a
			 JOIN jobs j ON j.id = a.job_id
			 JOIN companies c ON c.id = j.company_id
			 WHERE c.user_id = $1
			 GROUP BY a.status`, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			byStatus[status] = n
		}
		return rows.Err()
	})
	var byJob []JobAppCount
	g.Go(func() error {
		rows, err := db.pool.Query(gctx,
			`SELECT j.id, j.title, COUNT(a.id) AS n
			 FROM jobs j
			 JOIN companies c ON c.id = j.company_id
			 LEFT JOIN applications a ON a.job_id = j.id
			 WHERE c.user_id = $1
			 GROUP BY j.id, j.title
			 ORDER BY n DESC, j.title ASC
			 LIMIT $2`, ownerID, TopN)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c JobAppCount
			if err := rows.Scan(&c.JobID, &c.Title, &c.Count); err != nil {
				return err
			}
			byJob = append(byJob, c)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build company dashboard: %w", err)
	}
	d.AppsByStatus = byStatus
	if byJob != nil {
		d.AppsByJob = byJob
	}
	return &d, nil
}
