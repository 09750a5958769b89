package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/nexthire/internal/objectid"
)

// -----------------------------------------------------------------------------
// Company Methods
// -----------------------------------------------------------------------------

const companyColumns = `id, name, legal_name, user_id, registration_number, logo_url, website,
	industry, company_size, about, contact_email, year_founded, company_type, is_verified,
	registration_certificate_url, tax_certificate_url, incorporation_certificate_url,
	additional_documents_url, created_at, updated_at`

func scanCompany(row rowScanner) (*Company, error) {
	var c Company
	err := row.Scan(
		&c.ID, &c.Name, &c.LegalName, &c.UserID, &c.RegistrationNumber, &c.LogoURL, &c.Website,
		&c.Industry, &c.CompanySize, &c.About, &c.ContactEmail, &c.YearFounded, &c.CompanyType,
		&c.IsVerified, &c.RegistrationCertificateURL, &c.TaxCertificateURL,
		&c.IncorporationCertificateURL, &c.AdditionalDocumentsURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCompany inserts c, assigning its id. Duplicate registration
// numbers or contact emails return ErrUniqueViolation.
func (db *DB) CreateCompany(ctx context.Context, c *Company) (*Company, error) {
	if c.ID == "" {
		c.ID = objectid.New()
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO companies (id, name, legal_name, user_id, registration_number, logo_url, website,
		        industry, company_size, about, contact_email, year_founded, company_type,
		        registration_certificate_url, tax_certificate_url, incorporation_certificate_url,
		        additional_documents_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING `+companyColumns,
		c.ID, c.Name, c.LegalName, c.UserID, c.RegistrationNumber, c.LogoURL, c.Website,
		c.Industry, c.CompanySize, c.About, c.ContactEmail, c.YearFounded, c.CompanyType,
		c.RegistrationCertificateURL, c.TaxCertificateURL, c.IncorporationCertificateURL,
		c.AdditionalDocumentsURL,
	)
	created, err := scanCompany(row)
	if err != nil {
		return nil, wrapWriteErr(err, "create company")
	}
	return created, nil
}

// GetCompanyByID retrieves a company. Returns nil, nil when absent.
func (db *DB) GetCompanyByID(ctx context.Context, id string) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompaniesByUser lists the companies owned by userID, oldest first.
func (db *DB) ListCompaniesByUser(ctx context.Context, userID string) ([]CompanySummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, logo_url FROM companies WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]CompanySummary, 0)
	for rows.Next() {
		var c CompanySummary
		if err := rows.Scan(&c.ID, &c.Name, &c.LogoURL); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ListUnverifiedCompanies lists companies awaiting verification, oldest first.
func (db *DB) ListUnverifiedCompanies(ctx context.Context) ([]Company, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE NOT is_verified ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unverified companies: %w", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// UpdateCompany applies a partial update. Returns nil, nil when the
// company does not exist.
func (db *DB) UpdateCompany(ctx context.Context, id string, u CompanyUpdate) (*Company, error) {
	var b setBuilder
	addString := func(col string, v *string) {
		if v != nil {
			b.add(col, strings.TrimSpace(*v))
		}
	}
	addString("name", u.Name)
	addString("legal_name", u.LegalName)
	addString("registration_number", u.RegistrationNumber)
	addString("logo_url", u.LogoURL)
	addString("website", u.Website)
	addString("industry", u.Industry)
	addString("company_size", u.CompanySize)
	addString("about", u.About)
	addString("contact_email", u.ContactEmail)
	if u.YearFounded != nil {
		b.add("year_founded", *u.YearFounded)
	}
	addString("company_type", u.CompanyType)
	addString("registration_certificate_url", u.RegistrationCertificateURL)
	addString("tax_certificate_url", u.TaxCertificateURL)
	addString("incorporation_certificate_url", u.IncorporationCertificateURL)
	addString("additional_documents_url", u.AdditionalDocumentsURL)

	if b.empty() {
		return db.GetCompanyByID(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE companies SET %s, updated_at = NOW() WHERE id = %s RETURNING %s`,
		strings.Join(b.clauses, ", "), b.next(id), companyColumns,
	)
	c, err := scanCompany(db.pool.QueryRow(ctx, query, b.args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrapWriteErr(err, "update company")
	}
	return c, nil
}

// VerifyCompany marks a company verified. Returns nil, nil when absent.
func (db *DB) VerifyCompany(ctx context.Context, id string) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`UPDATE companies SET is_verified = TRUE, updated_at = NOW()
		 WHERE id = $1 RETURNING `+companyColumns, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to verify company: %w", err)
	}
	return c, nil
}

// DeleteCompany removes a company; its jobs and their applications go
// with it. Reports whether a row was deleted.
func (db *DB) DeleteCompany(ctx context.Context, id string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete company: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
