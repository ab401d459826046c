package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
)

// CreateCompany inserts a company. When no domain is known, a synthetic
// "<slug>.placeholder" domain keeps the unique constraint satisfied until
// a real one is learned.
func (s *Store) CreateCompany(ctx context.Context, c *models.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Domain == "" {
		c.Domain = PlaceholderDomain(c.CompanyName)
	}

	query := `
		INSERT INTO companies (id, company_name, domain, website, linkedin_url,
			github_org, size_bucket, founded_year, taxonomy_slug, created_at)
		VALUES (:id, :company_name, :domain, :website, :linkedin_url,
			:github_org, :size_bucket, :founded_year, :taxonomy_slug, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, c); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflictf("company exists: %v", err)
		}
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// PlaceholderDomain builds the synthetic unique domain for a company name.
func PlaceholderDomain(name string) string {
	slug := normalize.CompanyNameAlnum(name)
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	return slug + models.PlaceholderDomainSuffix
}

// GetCompany loads a company by ID.
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	err := s.db.GetContext(ctx, &c, `SELECT * FROM companies WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// GetCompanyByDomain loads a company by its unique domain.
func (s *Store) GetCompanyByDomain(ctx context.Context, domain string) (*models.Company, error) {
	var c models.Company
	err := s.db.GetContext(ctx, &c, `SELECT * FROM companies WHERE domain = $1`, strings.ToLower(domain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get company by domain: %w", err)
	}
	return &c, nil
}

// PromoteDomain upgrades a placeholder domain to a real one in place,
// preserving the company ID. Idempotent: promoting to the current domain
// is a no-op, and a company that already has a real domain is untouched.
func (s *Store) PromoteDomain(ctx context.Context, id uuid.UUID, realDomain string) error {
	realDomain = strings.ToLower(strings.TrimSpace(realDomain))
	if realDomain == "" || strings.HasSuffix(realDomain, models.PlaceholderDomainSuffix) {
		return fmt.Errorf("invalid real domain %q", realDomain)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE companies SET domain = $2
		WHERE id = $1 AND (domain LIKE '%' || $3 OR domain = $2)
	`, id, realDomain, models.PlaceholderDomainSuffix)
	if err != nil {
		return fmt.Errorf("promote domain: %w", err)
	}
	return nil
}

// SetGithubOrg records the company's GitHub organization slug. The
// companies.github_org column is the single authoritative location for
// this linkage.
func (s *Store) SetGithubOrg(ctx context.Context, id uuid.UUID, org string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE companies SET github_org = $2 WHERE id = $1 AND github_org IS NULL`, id, org)
	if err != nil {
		return fmt.Errorf("set github org: %w", err)
	}
	return nil
}

// EmployeeCount counts current (open-ended) employment rows.
func (s *Store) EmployeeCount(ctx context.Context, companyID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM employment WHERE company_id = $1 AND end_date IS NULL`, companyID)
	if err != nil {
		return 0, fmt.Errorf("employee count: %w", err)
	}
	return n, nil
}

// CompanyNameKey pairs a stored company name with its ID for index
// warm-loading.
type CompanyNameKey struct {
	CompanyName string    `db:"company_name"`
	ID          uuid.UUID `db:"id"`
}

// CompanyNameKeys returns every (name, ID) pair.
func (s *Store) CompanyNameKeys(ctx context.Context) ([]CompanyNameKey, error) {
	var keys []CompanyNameKey
	err := s.db.SelectContext(ctx, &keys, `SELECT company_name, id FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("load company name keys: %w", err)
	}
	return keys, nil
}

// EmployeeName pairs a current employee's person ID with their full name.
type EmployeeName struct {
	PersonID uuid.UUID `db:"person_id"`
	FullName string    `db:"full_name"`
}

// CurrentEmployeeNames returns named current employees of a company, used
// by the fuzzy resolution tier.
func (s *Store) CurrentEmployeeNames(ctx context.Context, companyID uuid.UUID) ([]EmployeeName, error) {
	var rows []EmployeeName
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT e.person_id, p.full_name
		FROM employment e
		JOIN people p ON p.id = e.person_id
		WHERE e.company_id = $1 AND e.end_date IS NULL AND p.full_name IS NOT NULL
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("current employee names: %w", err)
	}
	return rows, nil
}

// ListCompanies returns all companies; used by the merge engine's group
// pass and the ecosystem linker.
func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := s.db.SelectContext(ctx, &companies, `SELECT * FROM companies ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}
