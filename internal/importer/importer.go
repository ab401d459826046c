// Package importer consumes row streams and folds them into the graph via
// the entity resolver. One bad row never poisons a batch: row-level
// failures are captured in the report and the run continues.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/resolve"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// Backend is the storage surface the importer writes through.
// *storage.Store satisfies it.
type Backend interface {
	CreatePerson(ctx context.Context, p *models.Person) error
	GetPersonByLinkedIn(ctx context.Context, canonical string) (*models.Person, error)
	EnrichPerson(ctx context.Context, p *models.Person) error
	AddEmail(ctx context.Context, e *models.PersonEmail) (bool, error)
	HasPrimaryEmail(ctx context.Context, personID uuid.UUID) (bool, error)
	AddEducation(ctx context.Context, personID uuid.UUID, school, degree, field, source string, startYear, endYear *int) error
	UpsertEmployment(ctx context.Context, e *models.Employment) (bool, error)
	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompanyByDomain(ctx context.Context, domain string) (*models.Company, error)
	UpsertGithubProfile(ctx context.Context, p *models.GithubProfile) (uuid.UUID, bool, error)
	StartMigrationLog(ctx context.Context, jobName, source string) (int64, error)
	FinishMigrationLog(ctx context.Context, id int64, rowsTotal, created, enriched, skipped, errCount int, metadata []byte) error
}

// Row is one input record. Missing columns are empty strings.
type Row struct {
	FullName     string
	FirstName    string
	LastName     string
	LinkedInURL  string
	GithubURL    string
	Company      string
	JobTitle     string
	Location     string
	Emails       string // semicolon-separated
	PrimaryEmail string
	AllEmails    string // JSON array
	School       string
	Website      string
	Twitter      string
}

// RowError records a failed row with its position in the stream.
type RowError struct {
	Line   int
	Reason string
}

// Report summarizes an import run. SkipReasons breaks Skipped down by
// why each row was passed over.
type Report struct {
	Rows        int
	Created     int
	Enriched    int
	Skipped     int
	SkipReasons map[string]int
	Errors      []RowError
}

// Skip reasons recorded in Report.SkipReasons.
const (
	skipNoIdentifier      = "no_identifier"
	skipInvalidIdentifier = "invalid_identifier"
)

// Importer resolves rows against the graph and writes through the index.
type Importer struct {
	backend  Backend
	ix       *index.Index
	resolver *resolve.Resolver
	log      *logrus.Logger

	// Source tags every written row with its provenance.
	Source string
	// BatchSize controls progress-log cadence. Writes are autocommit, so
	// a crash loses at most the in-flight row.
	BatchSize int
}

// New creates an Importer.
func New(backend Backend, ix *index.Index, resolver *resolve.Resolver, log *logrus.Logger, source string) *Importer {
	return &Importer{backend: backend, ix: ix, resolver: resolver, log: log, Source: source, BatchSize: 100}
}

// Run processes every row, appends to the migration log, and returns the
// report. Log bookkeeping failures are logged, not fatal.
func (im *Importer) Run(ctx context.Context, rows []Row) (*Report, error) {
	logID, err := im.backend.StartMigrationLog(ctx, "import", im.Source)
	if err != nil {
		im.log.WithError(err).Warn("migration log unavailable, continuing without it")
	}

	report := &Report{SkipReasons: make(map[string]int)}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Rows++
		switch outcome, reason, err := im.processRow(ctx, row); {
		case err != nil:
			report.Errors = append(report.Errors, RowError{Line: i + 1, Reason: err.Error()})
			im.log.WithError(err).WithField("line", i+1).Warn("row failed")
		case outcome == outcomeCreated:
			report.Created++
		case outcome == outcomeEnriched:
			report.Enriched++
		default:
			report.Skipped++
			report.SkipReasons[reason]++
		}

		if im.BatchSize > 0 && report.Rows%im.BatchSize == 0 {
			im.log.WithFields(logrus.Fields{
				"rows":     report.Rows,
				"created":  report.Created,
				"enriched": report.Enriched,
			}).Info("import progress")
		}
	}

	if logID != 0 {
		meta, _ := json.Marshal(map[string]any{
			"source":       im.Source,
			"skip_reasons": report.SkipReasons,
		})
		if err := im.backend.FinishMigrationLog(ctx, logID, report.Rows,
			report.Created, report.Enriched, report.Skipped, len(report.Errors), meta); err != nil {
			im.log.WithError(err).Warn("failed to finish migration log")
		}
	}

	im.log.WithFields(logrus.Fields{
		"rows":         report.Rows,
		"created":      report.Created,
		"enriched":     report.Enriched,
		"skipped":      report.Skipped,
		"skip_reasons": report.SkipReasons,
		"errors":       len(report.Errors),
	}).Info("import complete")
	return report, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeEnriched
)

func (im *Importer) processRow(ctx context.Context, row Row) (outcome, string, error) {
	canonical := normalize.LinkedInURL(row.LinkedInURL)
	username := normalize.GitHubSlug(row.GithubURL)
	if canonical == "" && username == "" {
		if strings.TrimSpace(row.LinkedInURL) != "" || strings.TrimSpace(row.GithubURL) != "" {
			return outcomeSkipped, skipInvalidIdentifier, nil
		}
		return outcomeSkipped, skipNoIdentifier, nil
	}

	res := im.resolver.ResolvePerson(ctx, resolve.PersonQuery{
		LinkedInURL:    row.LinkedInURL,
		GithubUsername: row.GithubURL,
		FullName:       row.FullName,
		CompanyHint:    row.Company,
	})

	var personID uuid.UUID
	var out outcome
	if res.Match == resolve.MatchNone {
		id, err := im.createPerson(ctx, row, canonical, username)
		switch {
		case err == nil:
			personID, out = id, outcomeCreated
		case apperrors.IsConflict(err) && canonical != "":
			// Another row owns the canonical URL; switch to the enrich path.
			existing, lookupErr := im.backend.GetPersonByLinkedIn(ctx, canonical)
			if lookupErr != nil {
				return outcomeSkipped, "", err
			}
			im.ix.PutPerson(existing.ID, canonical, username)
			if err := im.enrichPerson(ctx, existing.ID, row, canonical); err != nil {
				return outcomeSkipped, "", err
			}
			personID, out = existing.ID, outcomeEnriched
		default:
			return outcomeSkipped, "", err
		}
	} else {
		if err := im.enrichPerson(ctx, res.PersonID, row, canonical); err != nil {
			return outcomeSkipped, "", err
		}
		personID, out = res.PersonID, outcomeEnriched
	}

	if err := im.addSideEntities(ctx, personID, row, username); err != nil {
		return out, "", err
	}
	return out, "", nil
}

func (im *Importer) createPerson(ctx context.Context, row Row, canonical, username string) (uuid.UUID, error) {
	fullName := strings.TrimSpace(row.FullName)
	needsEnrichment := false
	if fullName == "" && username != "" {
		fullName = models.PlaceholderNamePrefix + username
		needsEnrichment = true
	}

	now := time.Now()
	p := &models.Person{
		ID:                   uuid.New(),
		FullName:             models.Str(fullName),
		FirstName:            models.Str(strings.TrimSpace(row.FirstName)),
		LastName:             models.Str(strings.TrimSpace(row.LastName)),
		Location:             models.Str(strings.TrimSpace(row.Location)),
		LinkedinURL:          models.Str(strings.TrimSpace(row.LinkedInURL)),
		LinkedinURLCanonical: models.Str(canonical),
		TwitterURL:           models.Str(strings.TrimSpace(row.Twitter)),
		School:               models.Str(strings.TrimSpace(row.School)),
		Website:              models.Str(strings.TrimSpace(row.Website)),
		NeedsEnrichment:      needsEnrichment,
		RefreshedAt:          &now,
	}

	im.ix.PutPerson(p.ID, canonical, username)
	if err := im.backend.CreatePerson(ctx, p); err != nil {
		im.ix.RollbackPerson(canonical, username)
		return uuid.Nil, fmt.Errorf("create person: %w", err)
	}
	return p.ID, nil
}

func (im *Importer) enrichPerson(ctx context.Context, personID uuid.UUID, row Row, canonical string) error {
	p := &models.Person{
		ID:                   personID,
		FullName:             models.Str(strings.TrimSpace(row.FullName)),
		FirstName:            models.Str(strings.TrimSpace(row.FirstName)),
		LastName:             models.Str(strings.TrimSpace(row.LastName)),
		Location:             models.Str(strings.TrimSpace(row.Location)),
		LinkedinURL:          models.Str(strings.TrimSpace(row.LinkedInURL)),
		LinkedinURLCanonical: models.Str(canonical),
		TwitterURL:           models.Str(strings.TrimSpace(row.Twitter)),
		School:               models.Str(strings.TrimSpace(row.School)),
		Website:              models.Str(strings.TrimSpace(row.Website)),
	}
	if err := im.backend.EnrichPerson(ctx, p); err != nil {
		return fmt.Errorf("enrich person: %w", err)
	}
	if canonical != "" {
		im.ix.PutPerson(personID, canonical, "")
	}
	return nil
}

// addSideEntities adds emails, employment, education and the GitHub
// profile link. All additive with conflict-do-nothing keys.
func (im *Importer) addSideEntities(ctx context.Context, personID uuid.UUID, row Row, username string) error {
	if err := im.addEmails(ctx, personID, row); err != nil {
		return err
	}

	if username != "" {
		if _, _, err := im.backend.UpsertGithubProfile(ctx, &models.GithubProfile{
			GithubUsername: username,
			PersonID:       &personID,
		}); err != nil {
			return fmt.Errorf("link github profile: %w", err)
		}
	}

	if school := strings.TrimSpace(row.School); school != "" {
		if err := im.backend.AddEducation(ctx, personID, school, "", "", im.Source, nil, nil); err != nil {
			return fmt.Errorf("add education: %w", err)
		}
	}

	if name := strings.TrimSpace(row.Company); normalize.ValidCompanyName(name) {
		companyID, err := im.findOrCreateCompany(ctx, name)
		if err != nil {
			return err
		}
		if _, err := im.backend.UpsertEmployment(ctx, &models.Employment{
			PersonID:      personID,
			CompanyID:     companyID,
			Title:         models.Str(strings.TrimSpace(row.JobTitle)),
			DatePrecision: "none",
			Source:        im.Source,
		}); err != nil {
			return fmt.Errorf("upsert employment: %w", err)
		}
	}
	return nil
}

func (im *Importer) addEmails(ctx context.Context, personID uuid.UUID, row Row) error {
	emails := collectEmails(row)
	if len(emails) == 0 {
		return nil
	}

	hasPrimary, err := im.backend.HasPrimaryEmail(ctx, personID)
	if err != nil {
		return fmt.Errorf("check primary email: %w", err)
	}

	explicitPrimary := normalize.Email(row.PrimaryEmail)
	for i, addr := range emails {
		isPrimary := false
		if !hasPrimary {
			if explicitPrimary != "" {
				isPrimary = addr == explicitPrimary
			} else {
				isPrimary = i == 0
			}
		}
		added, err := im.backend.AddEmail(ctx, &models.PersonEmail{
			PersonID:  personID,
			Email:     addr,
			EmailType: ClassifyEmail(addr),
			IsPrimary: isPrimary,
			Source:    im.Source,
		})
		if err != nil {
			return fmt.Errorf("add email: %w", err)
		}
		if added && isPrimary {
			hasPrimary = true
		}
	}
	return nil
}

// collectEmails merges the semicolon list, the JSON array column and the
// primary column into a deduplicated, normalized slice. Order of first
// appearance is preserved, primary column first.
func collectEmails(row Row) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		if e := normalize.Email(raw); e != "" && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	add(row.PrimaryEmail)
	for _, part := range strings.Split(row.Emails, ";") {
		add(part)
	}
	if strings.TrimSpace(row.AllEmails) != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(row.AllEmails), &parsed); err == nil {
			for _, e := range parsed {
				add(e)
			}
		}
	}
	return out
}

// personalDomains mark an email as personal rather than work.
var personalDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true,
	"hotmail.com": true, "outlook.com": true, "icloud.com": true,
	"me.com": true, "protonmail.com": true, "proton.me": true,
	"pm.me": true, "aol.com": true, "hey.com": true,
}

// ClassifyEmail tags an address as work or personal by its domain.
func ClassifyEmail(addr string) models.EmailType {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return models.EmailTypeUnknown
	}
	if personalDomains[addr[at+1:]] {
		return models.EmailTypePersonal
	}
	return models.EmailTypeWork
}

// findOrCreateCompany is referentially transparent per normalized name
// within a process: the index guarantees the same name maps to one ID.
func (im *Importer) findOrCreateCompany(ctx context.Context, name string) (uuid.UUID, error) {
	if id, ok := im.resolver.ResolveCompany(name); ok {
		return id, nil
	}
	c := &models.Company{ID: uuid.New(), CompanyName: name}
	im.ix.PutCompany(c.ID, name)
	if err := im.backend.CreateCompany(ctx, c); err != nil {
		im.ix.RollbackCompany(name)
		if apperrors.IsConflict(err) {
			existing, lookupErr := im.backend.GetCompanyByDomain(ctx, storage.PlaceholderDomain(name))
			if lookupErr == nil {
				im.ix.PutCompany(existing.ID, name)
				return existing.ID, nil
			}
		}
		return uuid.Nil, fmt.Errorf("create company: %w", err)
	}
	return c.ID, nil
}
