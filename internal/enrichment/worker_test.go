package enrichment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/scraper"
)

type fakeProvider struct {
	profiles map[string]*scraper.Profile
	err      error
}

func (f *fakeProvider) FetchProfile(_ context.Context, url string) (*scraper.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.profiles[url]; ok {
		return p, nil
	}
	return nil, errors.New("no such profile")
}

type fakeBackend struct {
	items      []models.EnrichmentQueueItem
	people     map[uuid.UUID]*models.Person
	companies  map[uuid.UUID]*models.Company
	employment []models.Employment
	education  []string
	completed  []int64
	failed     map[int64]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		people:    make(map[uuid.UUID]*models.Person),
		companies: make(map[uuid.UUID]*models.Company),
		failed:    make(map[int64]string),
	}
}

func (f *fakeBackend) LeaseBatch(_ context.Context, limit int) ([]models.EnrichmentQueueItem, error) {
	if limit > len(f.items) {
		limit = len(f.items)
	}
	leased := f.items[:limit]
	f.items = f.items[limit:]
	return leased, nil
}

func (f *fakeBackend) CompleteItem(_ context.Context, queueID int64) error {
	f.completed = append(f.completed, queueID)
	return nil
}

func (f *fakeBackend) FailItem(_ context.Context, queueID int64, cause error) error {
	f.failed[queueID] = cause.Error()
	return nil
}

func (f *fakeBackend) GetPerson(_ context.Context, id uuid.UUID) (*models.Person, error) {
	if p, ok := f.people[id]; ok {
		return p, nil
	}
	return nil, errors.New("person not found")
}

func (f *fakeBackend) EnrichPerson(_ context.Context, p *models.Person) error {
	existing := f.people[p.ID]
	if existing.FullName == nil {
		existing.FullName = p.FullName
	}
	if existing.Headline == nil {
		existing.Headline = p.Headline
	}
	if existing.Location == nil {
		existing.Location = p.Location
	}
	return nil
}

func (f *fakeBackend) SetNeedsEnrichment(_ context.Context, id uuid.UUID, needs bool) error {
	f.people[id].NeedsEnrichment = needs
	return nil
}

func (f *fakeBackend) AddEducation(_ context.Context, _ uuid.UUID, school, _, _, _ string, _, _ *int) error {
	f.education = append(f.education, school)
	return nil
}

func (f *fakeBackend) UpsertEmployment(_ context.Context, e *models.Employment) (bool, error) {
	f.employment = append(f.employment, *e)
	return true, nil
}

func (f *fakeBackend) CreateCompany(_ context.Context, c *models.Company) error {
	cp := *c
	f.companies[c.ID] = &cp
	return nil
}

func fastOptions() Options {
	return Options{Workers: 1, BatchSize: 10, CallSpacing: 0}
}

func TestDrainOnceEnrichesPerson(t *testing.T) {
	personID := uuid.New()
	backend := newFakeBackend()
	backend.people[personID] = &models.Person{
		ID:              personID,
		LinkedinURL:     models.Str("https://linkedin.com/in/ada"),
		NeedsEnrichment: true,
	}
	backend.items = []models.EnrichmentQueueItem{{QueueID: 1, PersonID: personID}}

	provider := &fakeProvider{profiles: map[string]*scraper.Profile{
		"https://linkedin.com/in/ada": {
			FirstName: "Ada",
			LastName:  "Lovelace",
			Headline:  "Analyst",
			Location:  "London",
			Experience: []scraper.Experience{
				{CompanyName: "Analytical Engines", Title: "Engineer", DateRange: "May 2021 - Present"},
				{CompanyName: "Self-employed", Title: "Consultant"},
			},
			Education: []scraper.Education{{SchoolName: "Home Tutoring"}},
		},
	}}

	pool := NewPool(backend, provider, index.New(), fastOptions())
	n, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []int64{1}, backend.completed)
	person := backend.people[personID]
	assert.Equal(t, "Ada Lovelace", models.StrVal(person.FullName))
	assert.Equal(t, "Analyst", models.StrVal(person.Headline))
	assert.False(t, person.NeedsEnrichment)

	require.Len(t, backend.employment, 1, "non-company experience entries are dropped")
	emp := backend.employment[0]
	assert.Equal(t, "Engineer", models.StrVal(emp.Title))
	require.NotNil(t, emp.StartDate)
	assert.Equal(t, time.May, emp.StartDate.Month())
	assert.Nil(t, emp.EndDate, "Present means current employment")

	assert.Equal(t, []string{"Home Tutoring"}, backend.education)
	require.Len(t, backend.companies, 1)
}

func TestDrainOnceFailsItemOnScrapeError(t *testing.T) {
	personID := uuid.New()
	backend := newFakeBackend()
	backend.people[personID] = &models.Person{
		ID:          personID,
		LinkedinURL: models.Str("https://linkedin.com/in/gone"),
	}
	backend.items = []models.EnrichmentQueueItem{{QueueID: 7, PersonID: personID}}

	provider := &fakeProvider{err: errors.New("scraper timeout")}
	pool := NewPool(backend, provider, index.New(), fastOptions())

	_, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backend.completed)
	assert.Contains(t, backend.failed[7], "scraper timeout")
}

func TestDrainOnceLeavesRetryableFailureLeased(t *testing.T) {
	personID := uuid.New()
	backend := newFakeBackend()
	backend.people[personID] = &models.Person{
		ID:          personID,
		LinkedinURL: models.Str("https://linkedin.com/in/throttled"),
	}
	backend.items = []models.EnrichmentQueueItem{{QueueID: 9, PersonID: personID}}

	provider := &fakeProvider{err: apperrors.RateLimited(nil, "scraper throttled")}
	pool := NewPool(backend, provider, index.New(), fastOptions())

	_, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backend.completed)
	assert.Empty(t, backend.failed, "throttled items wait for the reaper instead of failing")
}

func TestDrainOnceFailsPersonWithoutURL(t *testing.T) {
	personID := uuid.New()
	backend := newFakeBackend()
	backend.people[personID] = &models.Person{ID: personID}
	backend.items = []models.EnrichmentQueueItem{{QueueID: 3, PersonID: personID}}

	pool := NewPool(backend, &fakeProvider{}, index.New(), fastOptions())
	_, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, backend.failed[3], "no linkedin url")
}

func TestDrainOnceEmptyQueue(t *testing.T) {
	pool := NewPool(newFakeBackend(), &fakeProvider{}, index.New(), fastOptions())
	n, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainOnceReusesKnownCompany(t *testing.T) {
	personID := uuid.New()
	backend := newFakeBackend()
	backend.people[personID] = &models.Person{
		ID:          personID,
		LinkedinURL: models.Str("https://linkedin.com/in/bob"),
	}
	backend.items = []models.EnrichmentQueueItem{{QueueID: 1, PersonID: personID}}

	ix := index.New()
	existing := uuid.New()
	ix.PutCompany(existing, "Uniswap Labs")

	provider := &fakeProvider{profiles: map[string]*scraper.Profile{
		"https://linkedin.com/in/bob": {
			FirstName: "Bob",
			Experience: []scraper.Experience{
				{CompanyName: "Uniswap Labs", Title: "Dev"},
			},
		},
	}}

	pool := NewPool(backend, provider, ix, fastOptions())
	_, err := pool.DrainOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, backend.companies, "known company must not be recreated")
	require.Len(t, backend.employment, 1)
	assert.Equal(t, existing, backend.employment[0].CompanyID)

	if !strings.HasPrefix(models.StrVal(backend.people[personID].FullName), "Bob") {
		t.Fatalf("full name not set: %v", models.StrVal(backend.people[personID].FullName))
	}
}
