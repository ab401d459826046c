package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// CreatePerson inserts a new Person row.
func (s *Store) CreatePerson(ctx context.Context, p *models.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO people (id, full_name, first_name, last_name, headline, location,
			description, linkedin_url, linkedin_url_canonical, twitter_url, school,
			website, needs_enrichment, refreshed_at, created_at)
		VALUES (:id, :full_name, :first_name, :last_name, :headline, :location,
			:description, :linkedin_url, :linkedin_url_canonical, :twitter_url, :school,
			:website, :needs_enrichment, :refreshed_at, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, p); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflictf("person exists: %v", err)
		}
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// GetPersonByLinkedIn loads a Person by canonical LinkedIn URL. Used to
// recover from a create conflict by switching to the enrich path.
func (s *Store) GetPersonByLinkedIn(ctx context.Context, canonical string) (*models.Person, error) {
	var p models.Person
	err := s.db.GetContext(ctx, &p,
		`SELECT * FROM people WHERE linkedin_url_canonical = $1`, canonical)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get person by linkedin: %w", err)
	}
	return &p, nil
}

// GetPerson loads a Person by ID.
func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	var p models.Person
	err := s.db.GetContext(ctx, &p, `SELECT * FROM people WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}

// EnrichPerson fills empty scalar fields from p without overwriting
// populated values, and always advances refreshed_at.
func (s *Store) EnrichPerson(ctx context.Context, p *models.Person) error {
	query := `
		UPDATE people SET
			full_name = COALESCE(full_name, :full_name),
			first_name = COALESCE(first_name, :first_name),
			last_name = COALESCE(last_name, :last_name),
			headline = COALESCE(headline, :headline),
			location = COALESCE(location, :location),
			description = COALESCE(description, :description),
			linkedin_url = COALESCE(linkedin_url, :linkedin_url),
			linkedin_url_canonical = COALESCE(linkedin_url_canonical, :linkedin_url_canonical),
			twitter_url = COALESCE(twitter_url, :twitter_url),
			school = COALESCE(school, :school),
			website = COALESCE(website, :website),
			refreshed_at = NOW()
		WHERE id = :id
	`
	if _, err := s.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("enrich person: %w", err)
	}
	return nil
}

// SetNeedsEnrichment flips the enrichment flag.
func (s *Store) SetNeedsEnrichment(ctx context.Context, id uuid.UUID, needs bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE people SET needs_enrichment = $2 WHERE id = $1`, id, needs); err != nil {
		return fmt.Errorf("set needs_enrichment: %w", err)
	}
	return nil
}

// AddEmail inserts an email with conflict-do-nothing on the
// (person, lowercased email) unique key. Reports whether a row was added.
func (s *Store) AddEmail(ctx context.Context, e *models.PersonEmail) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO person_emails (id, person_id, email, email_type, is_primary, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (person_id, LOWER(email)) DO NOTHING
	`, e.ID, e.PersonID, e.Email, e.EmailType, e.IsPrimary, e.Source)
	if err != nil {
		return false, fmt.Errorf("add email: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// HasPrimaryEmail reports whether the person already has a primary email.
func (s *Store) HasPrimaryEmail(ctx context.Context, personID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM person_emails WHERE person_id = $1 AND is_primary)`, personID)
	if err != nil {
		return false, fmt.Errorf("check primary email: %w", err)
	}
	return exists, nil
}

// ListEmails returns all emails for a person.
func (s *Store) ListEmails(ctx context.Context, personID uuid.UUID) ([]models.PersonEmail, error) {
	var emails []models.PersonEmail
	err := s.db.SelectContext(ctx, &emails,
		`SELECT * FROM person_emails WHERE person_id = $1 ORDER BY created_at`, personID)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return emails, nil
}

// AddEducation inserts an education row, conflict-do-nothing on
// (person, school).
func (s *Store) AddEducation(ctx context.Context, personID uuid.UUID, school, degree, field, source string, startYear, endYear *int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO person_education (id, person_id, school, degree, field_of_study, start_year, end_year, source)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (person_id, LOWER(school)) DO NOTHING
	`, uuid.New(), personID, school, degree, field, startYear, endYear, source)
	if err != nil {
		return fmt.Errorf("add education: %w", err)
	}
	return nil
}

// UpsertEmployment inserts an employment row unless the
// (person, company, start_date) key already exists.
func (s *Store) UpsertEmployment(ctx context.Context, e *models.Employment) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO employment (id, person_id, company_id, title, start_date, end_date, date_precision, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id, company_id, COALESCE(start_date, DATE '1900-01-01')) DO NOTHING
	`, e.ID, e.PersonID, e.CompanyID, e.Title, e.StartDate, e.EndDate, e.DatePrecision, e.Source)
	if err != nil {
		return false, fmt.Errorf("upsert employment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListEmployment returns a person's employment rows.
func (s *Store) ListEmployment(ctx context.Context, personID uuid.UUID) ([]models.Employment, error) {
	var rows []models.Employment
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM employment WHERE person_id = $1 ORDER BY start_date DESC NULLS LAST`, personID)
	if err != nil {
		return nil, fmt.Errorf("list employment: %w", err)
	}
	return rows, nil
}

// LinkedInKey pairs a canonical LinkedIn URL with its person ID, used to
// warm-load the identifier index.
type LinkedInKey struct {
	Canonical string    `db:"linkedin_url_canonical"`
	PersonID  uuid.UUID `db:"id"`
}

// LinkedInKeys streams every (canonical URL, person ID) pair.
func (s *Store) LinkedInKeys(ctx context.Context) ([]LinkedInKey, error) {
	var keys []LinkedInKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT linkedin_url_canonical, id FROM people WHERE linkedin_url_canonical IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("load linkedin keys: %w", err)
	}
	return keys, nil
}
