// Package enrichment drains the queue: each worker scrapes a person's
// LinkedIn profile and folds the result into the graph with the same
// fill-if-empty rules as the importer.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/scraper"
)

// Backend is the storage surface the workers need. *storage.Store
// satisfies it.
type Backend interface {
	LeaseBatch(ctx context.Context, limit int) ([]models.EnrichmentQueueItem, error)
	CompleteItem(ctx context.Context, queueID int64) error
	FailItem(ctx context.Context, queueID int64, cause error) error
	GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error)
	EnrichPerson(ctx context.Context, p *models.Person) error
	SetNeedsEnrichment(ctx context.Context, id uuid.UUID, needs bool) error
	AddEducation(ctx context.Context, personID uuid.UUID, school, degree, field, source string, startYear, endYear *int) error
	UpsertEmployment(ctx context.Context, e *models.Employment) (bool, error)
	CreateCompany(ctx context.Context, c *models.Company) error
}

// Options configure the worker pool.
type Options struct {
	Workers     int
	BatchSize   int
	CallSpacing time.Duration
}

// DefaultOptions mirror the production cadence: two workers, small
// batches, two seconds between scraper calls.
func DefaultOptions() Options {
	return Options{Workers: 2, BatchSize: 10, CallSpacing: 2 * time.Second}
}

// Pool drains the enrichment queue.
type Pool struct {
	backend  Backend
	provider scraper.Provider
	ix       *index.Index
	opts     Options
	logger   *slog.Logger
}

// NewPool creates a worker pool.
func NewPool(backend Backend, provider scraper.Provider, ix *index.Index, opts Options) *Pool {
	return &Pool{
		backend:  backend,
		provider: provider,
		ix:       ix,
		opts:     opts,
		logger:   slog.Default().With("component", "enrichment"),
	}
}

// DrainOnce leases one batch and processes it across the pool's workers.
// Returns the number of items processed; zero means the queue was empty.
func (p *Pool) DrainOnce(ctx context.Context) (int, error) {
	items, err := p.backend.LeaseBatch(ctx, p.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("lease batch: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	work := make(chan models.EnrichmentQueueItem)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			for item := range work {
				p.processItem(gctx, item)
				if err := sleepCtx(gctx, p.opts.CallSpacing); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for _, item := range items {
		select {
		case work <- item:
		case <-gctx.Done():
		}
	}
	close(work)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return len(items), err
	}
	return len(items), ctx.Err()
}

// Run drains batches until the context is cancelled, idling between
// empty polls.
func (p *Pool) Run(ctx context.Context, idle time.Duration) error {
	for {
		n, err := p.DrainOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("drain failed", "error", err)
		}
		if n == 0 {
			if err := sleepCtx(ctx, idle); err != nil {
				return err
			}
		}
	}
}

// processItem enriches one leased item. Failures mark the item failed
// with a truncated message; they never abort the batch. Retryable
// failures (throttling, transient I/O) leave the lease in place so the
// stale-lease reaper re-pends the item instead of burning it.
func (p *Pool) processItem(ctx context.Context, item models.EnrichmentQueueItem) {
	if err := p.enrich(ctx, item.PersonID); err != nil {
		p.logger.Warn("enrichment failed",
			"queue_id", item.QueueID, "person", item.PersonID, "error", err)
		if apperrors.IsRetryable(err) {
			return
		}
		if failErr := p.backend.FailItem(ctx, item.QueueID, err); failErr != nil {
			p.logger.Error("failed to mark item failed", "queue_id", item.QueueID, "error", failErr)
		}
		return
	}
	if err := p.backend.CompleteItem(ctx, item.QueueID); err != nil {
		p.logger.Error("failed to mark item completed", "queue_id", item.QueueID, "error", err)
	}
}

func (p *Pool) enrich(ctx context.Context, personID uuid.UUID) error {
	person, err := p.backend.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("load person: %w", err)
	}
	linkedinURL := models.StrVal(person.LinkedinURL)
	if linkedinURL == "" {
		return apperrors.Validationf("person %s has no linkedin url", personID)
	}

	profile, err := p.provider.FetchProfile(ctx, linkedinURL)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	fullName := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if err := p.backend.EnrichPerson(ctx, &models.Person{
		ID:        personID,
		FullName:  models.Str(fullName),
		FirstName: models.Str(strings.TrimSpace(profile.FirstName)),
		LastName:  models.Str(strings.TrimSpace(profile.LastName)),
		Headline:  models.Str(strings.TrimSpace(profile.Headline)),
		Location:  models.Str(strings.TrimSpace(profile.Location)),
	}); err != nil {
		return fmt.Errorf("enrich person: %w", err)
	}

	for _, exp := range profile.Experience {
		if err := p.addExperience(ctx, personID, exp); err != nil {
			p.logger.Warn("experience entry skipped",
				"person", personID, "company", exp.CompanyName, "error", err)
		}
	}
	for _, edu := range profile.Education {
		if school := strings.TrimSpace(edu.SchoolName); school != "" {
			if err := p.backend.AddEducation(ctx, personID, school, edu.Degree, edu.Field, "scraper", nil, nil); err != nil {
				p.logger.Warn("education entry skipped",
					"person", personID, "school", school, "error", err)
			}
		}
	}

	if err := p.backend.SetNeedsEnrichment(ctx, personID, false); err != nil {
		return fmt.Errorf("clear needs_enrichment: %w", err)
	}
	return nil
}

func (p *Pool) addExperience(ctx context.Context, personID uuid.UUID, exp scraper.Experience) error {
	name := strings.TrimSpace(exp.CompanyName)
	if !normalize.ValidCompanyName(name) {
		return nil
	}

	companyID, ok := p.ix.CompanyByName(name)
	if !ok {
		c := &models.Company{ID: uuid.New(), CompanyName: name}
		p.ix.PutCompany(c.ID, name)
		if err := p.backend.CreateCompany(ctx, c); err != nil {
			p.ix.RollbackCompany(name)
			return fmt.Errorf("create company: %w", err)
		}
		companyID = c.ID
	}

	dates := scraper.ParseDateRange(exp.DateRange)
	_, err := p.backend.UpsertEmployment(ctx, &models.Employment{
		PersonID:      personID,
		CompanyID:     companyID,
		Title:         models.Str(strings.TrimSpace(exp.Title)),
		StartDate:     dates.Start,
		EndDate:       dates.End,
		DatePrecision: dates.Precision,
		Source:        "scraper",
	})
	if err != nil {
		return fmt.Errorf("upsert employment: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
