package importer

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/resolve"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// fakeBackend records writes in memory and applies the same enrichment
// semantics as the SQL layer (fill-if-empty, conflict-do-nothing).
type fakeBackend struct {
	people      map[uuid.UUID]*models.Person
	companies   map[uuid.UUID]*models.Company
	emails      map[uuid.UUID][]models.PersonEmail
	employment  map[uuid.UUID][]models.Employment
	education   map[uuid.UUID][]string
	profiles    map[string]*models.GithubProfile
	logStarted  int
	logFinished int
	logMeta     []byte

	// conflictOnCreate simulates a unique-violation race on person create.
	conflictOnCreate bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		people:     make(map[uuid.UUID]*models.Person),
		companies:  make(map[uuid.UUID]*models.Company),
		emails:     make(map[uuid.UUID][]models.PersonEmail),
		employment: make(map[uuid.UUID][]models.Employment),
		education:  make(map[uuid.UUID][]string),
		profiles:   make(map[string]*models.GithubProfile),
	}
}

func (f *fakeBackend) CreatePerson(_ context.Context, p *models.Person) error {
	if f.conflictOnCreate {
		return apperrors.Conflictf("person exists")
	}
	cp := *p
	f.people[p.ID] = &cp
	return nil
}

func (f *fakeBackend) GetPersonByLinkedIn(_ context.Context, canonical string) (*models.Person, error) {
	for _, p := range f.people {
		if models.StrVal(p.LinkedinURLCanonical) == canonical {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func coalesce(dst **string, src *string) {
	if *dst == nil {
		*dst = src
	}
}

func (f *fakeBackend) EnrichPerson(_ context.Context, p *models.Person) error {
	existing := f.people[p.ID]
	coalesce(&existing.FullName, p.FullName)
	coalesce(&existing.FirstName, p.FirstName)
	coalesce(&existing.LastName, p.LastName)
	coalesce(&existing.Location, p.Location)
	coalesce(&existing.LinkedinURL, p.LinkedinURL)
	coalesce(&existing.LinkedinURLCanonical, p.LinkedinURLCanonical)
	coalesce(&existing.TwitterURL, p.TwitterURL)
	coalesce(&existing.School, p.School)
	coalesce(&existing.Website, p.Website)
	return nil
}

func (f *fakeBackend) AddEmail(_ context.Context, e *models.PersonEmail) (bool, error) {
	for _, existing := range f.emails[e.PersonID] {
		if strings.EqualFold(existing.Email, e.Email) {
			return false, nil
		}
	}
	f.emails[e.PersonID] = append(f.emails[e.PersonID], *e)
	return true, nil
}

func (f *fakeBackend) HasPrimaryEmail(_ context.Context, personID uuid.UUID) (bool, error) {
	for _, e := range f.emails[personID] {
		if e.IsPrimary {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) AddEducation(_ context.Context, personID uuid.UUID, school, _, _, _ string, _, _ *int) error {
	for _, s := range f.education[personID] {
		if strings.EqualFold(s, school) {
			return nil
		}
	}
	f.education[personID] = append(f.education[personID], school)
	return nil
}

func (f *fakeBackend) UpsertEmployment(_ context.Context, e *models.Employment) (bool, error) {
	for _, existing := range f.employment[e.PersonID] {
		if existing.CompanyID == e.CompanyID {
			return false, nil
		}
	}
	f.employment[e.PersonID] = append(f.employment[e.PersonID], *e)
	return true, nil
}

func (f *fakeBackend) CreateCompany(_ context.Context, c *models.Company) error {
	cp := *c
	if cp.Domain == "" {
		cp.Domain = storage.PlaceholderDomain(cp.CompanyName)
	}
	f.companies[c.ID] = &cp
	return nil
}

func (f *fakeBackend) GetCompanyByDomain(_ context.Context, domain string) (*models.Company, error) {
	for _, c := range f.companies {
		if c.Domain == domain {
			return c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBackend) UpsertGithubProfile(_ context.Context, p *models.GithubProfile) (uuid.UUID, bool, error) {
	key := strings.ToLower(p.GithubUsername)
	if existing, ok := f.profiles[key]; ok {
		if existing.PersonID == nil {
			existing.PersonID = p.PersonID
		}
		return existing.ID, false, nil
	}
	cp := *p
	cp.ID = uuid.New()
	f.profiles[key] = &cp
	return cp.ID, true, nil
}

func (f *fakeBackend) StartMigrationLog(_ context.Context, _, _ string) (int64, error) {
	f.logStarted++
	return int64(f.logStarted), nil
}

func (f *fakeBackend) FinishMigrationLog(_ context.Context, _ int64, _, _, _, _, _ int, metadata []byte) error {
	f.logFinished++
	f.logMeta = metadata
	return nil
}

// resolve.Backend.

func (f *fakeBackend) GetGithubProfileByUsername(_ context.Context, username string) (*models.GithubProfile, error) {
	if p, ok := f.profiles[strings.ToLower(username)]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBackend) CurrentEmployeeNames(_ context.Context, _ uuid.UUID) ([]storage.EmployeeName, error) {
	return nil, nil
}

func newTestImporter(backend *fakeBackend) *Importer {
	ix := index.New()
	resolver := resolve.New(ix, backend)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(backend, ix, resolver, log, "test-csv")
}

func TestImportCreateThenEnrich(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	report, err := im.Run(context.Background(), []Row{{
		FullName:    "Ada Lovelace",
		LinkedInURL: "https://www.linkedin.com/in/ada-lovelace/",
		Company:     "Analytical Engines",
		Emails:      "ada@ae.com",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	report, err = im.Run(context.Background(), []Row{{
		FullName:    "Ada Lovelace",
		LinkedInURL: "linkedin.com/in/ada-lovelace",
		Emails:      "ada@ae.com; ada@gmail.com",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Enriched, "second import of the same URL must enrich, not create")

	require.Len(t, backend.people, 1)
	require.Len(t, backend.companies, 1)

	var personID uuid.UUID
	for id := range backend.people {
		personID = id
	}
	emails := backend.emails[personID]
	require.Len(t, emails, 2)

	types := map[string]models.EmailType{}
	for _, e := range emails {
		types[e.Email] = e.EmailType
	}
	assert.Equal(t, models.EmailTypeWork, types["ada@ae.com"])
	assert.Equal(t, models.EmailTypePersonal, types["ada@gmail.com"])

	assert.Len(t, backend.employment[personID], 1)
}

func TestImportCreateConflictFallsBackToEnrich(t *testing.T) {
	backend := newFakeBackend()

	// A row the warm index missed (racing writer) already owns the URL.
	existing := &models.Person{
		ID:                   uuid.New(),
		FullName:             models.Str("Ada Lovelace"),
		LinkedinURLCanonical: models.Str("linkedin.com/in/ada-lovelace"),
	}
	backend.people[existing.ID] = existing
	backend.conflictOnCreate = true

	im := newTestImporter(backend)
	report, err := im.Run(context.Background(), []Row{{
		FullName:    "Ada Lovelace",
		LinkedInURL: "https://www.linkedin.com/in/ada-lovelace/",
		Location:    "London",
	}})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Enriched, "a create conflict must resolve to the existing row")
	assert.Empty(t, report.Errors)
	require.Len(t, backend.people, 1)
	assert.Equal(t, "London", models.StrVal(existing.Location))
}

func TestImportRejectsRowWithoutIdentifiers(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	report, err := im.Run(context.Background(), []Row{{
		FullName: "No Handles",
		Company:  "Acme Inc",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.SkipReasons["no_identifier"])
	assert.Empty(t, backend.people)
	assert.Empty(t, backend.companies, "skipped rows must not create side entities")
}

func TestImportSkipReasonsReachTheMigrationLog(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	report, err := im.Run(context.Background(), []Row{
		{FullName: "No Handles"},
		{FullName: "Bad Handles", LinkedInURL: "https://www.linkedin.com/company/acme", GithubURL: "https://github.com/explore"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.SkipReasons["no_identifier"])
	assert.Equal(t, 1, report.SkipReasons["invalid_identifier"])

	var meta struct {
		SkipReasons map[string]int `json:"skip_reasons"`
	}
	require.NoError(t, json.Unmarshal(backend.logMeta, &meta))
	assert.Equal(t, report.SkipReasons, meta.SkipReasons)
}

func TestImportGithubOnlyRowGetsPlaceholder(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	report, err := im.Run(context.Background(), []Row{{
		GithubURL: "https://github.com/0age",
	}})
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)

	for _, p := range backend.people {
		assert.Equal(t, models.PlaceholderNamePrefix+"0age", models.StrVal(p.FullName))
		assert.True(t, p.NeedsEnrichment)
	}
	profile, ok := backend.profiles["0age"]
	require.True(t, ok)
	assert.NotNil(t, profile.PersonID)
}

func TestImportIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	rows := []Row{{
		FullName:    "Grace Hopper",
		LinkedInURL: "linkedin.com/in/grace-hopper",
		Company:     "Eckert-Mauchly",
		Emails:      "grace@em.com",
	}}
	_, err := im.Run(context.Background(), rows)
	require.NoError(t, err)
	_, err = im.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Len(t, backend.people, 1)
	assert.Len(t, backend.companies, 1)
	for id := range backend.people {
		assert.Len(t, backend.emails[id], 1)
		assert.Len(t, backend.employment[id], 1)
	}
}

func TestImportInvalidCompanyNameSkipsEmployment(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	_, err := im.Run(context.Background(), []Row{{
		FullName:    "Solo Dev",
		LinkedInURL: "linkedin.com/in/solo-dev",
		Company:     "Self-employed",
	}})
	require.NoError(t, err)
	assert.Len(t, backend.people, 1)
	assert.Empty(t, backend.companies)
}

func TestImportPrimaryEmailSelection(t *testing.T) {
	backend := newFakeBackend()
	im := newTestImporter(backend)

	_, err := im.Run(context.Background(), []Row{{
		FullName:     "Multi Mail",
		LinkedInURL:  "linkedin.com/in/multi-mail",
		Emails:       "second@corp.com; first@corp.com",
		PrimaryEmail: "first@corp.com",
	}})
	require.NoError(t, err)

	for id := range backend.people {
		var primaries []string
		for _, e := range backend.emails[id] {
			if e.IsPrimary {
				primaries = append(primaries, e.Email)
			}
		}
		assert.Equal(t, []string{"first@corp.com"}, primaries)
	}
}

func TestReadRowsToleratesTypoHeader(t *testing.T) {
	csv := "Full Name,LinkedIn URL,Twiiter / X,All Emails\n" +
		"Ada Lovelace,linkedin.com/in/ada,https://x.com/ada,\"[\"\"ada@ae.com\"\"]\"\n"
	rows, err := ReadRows(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://x.com/ada", rows[0].Twitter)
	assert.Equal(t, `["ada@ae.com"]`, rows[0].AllEmails)
}

func TestCollectEmailsMergesAllColumns(t *testing.T) {
	emails := collectEmails(Row{
		Emails:       "a@x.com; b@x.com",
		PrimaryEmail: "b@x.com",
		AllEmails:    `["c@x.com", "A@X.com"]`,
	})
	assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, emails)
}
