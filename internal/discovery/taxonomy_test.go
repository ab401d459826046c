package discovery

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

type fakeTaxonomyBackend struct {
	ecosystems map[string]*models.CryptoEcosystem
	nextEcoID  int64

	repoIDs     map[string]uuid.UUID
	insertCalls int
	linkCalls   int
	links       []storage.EcosystemRepoLink

	companies    []models.Company
	companyLinks []models.CompanyEcosystem
}

func newFakeTaxonomyBackend() *fakeTaxonomyBackend {
	return &fakeTaxonomyBackend{
		ecosystems: make(map[string]*models.CryptoEcosystem),
		repoIDs:    make(map[string]uuid.UUID),
	}
}

func (f *fakeTaxonomyBackend) InsertEcosystems(_ context.Context, ecosystems []models.CryptoEcosystem) (int, error) {
	inserted := 0
	for _, e := range ecosystems {
		if _, ok := f.ecosystems[e.EcosystemName]; ok {
			continue
		}
		f.nextEcoID++
		row := e
		row.ID = f.nextEcoID
		f.ecosystems[e.EcosystemName] = &row
		inserted++
	}
	return inserted, nil
}

func (f *fakeTaxonomyBackend) GetEcosystemByName(_ context.Context, name string) (*models.CryptoEcosystem, error) {
	if e, ok := f.ecosystems[name]; ok {
		return e, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeTaxonomyBackend) InsertRepositoryNames(_ context.Context, fullNames []string) (int, error) {
	f.insertCalls++
	inserted := 0
	for _, name := range fullNames {
		if _, ok := f.repoIDs[name]; ok {
			continue
		}
		f.repoIDs[name] = uuid.New()
		inserted++
	}
	return inserted, nil
}

func (f *fakeTaxonomyBackend) RepositoryIDsByFullName(_ context.Context, fullNames []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(fullNames))
	for _, name := range fullNames {
		if id, ok := f.repoIDs[name]; ok {
			out[name] = id
		}
	}
	return out, nil
}

func (f *fakeTaxonomyBackend) LinkEcosystemRepositories(_ context.Context, links []storage.EcosystemRepoLink) (int, error) {
	f.linkCalls++
	linked := 0
	for _, l := range links {
		dup := false
		for _, existing := range f.links {
			if existing.EcosystemID == l.EcosystemID && existing.RepositoryID == l.RepositoryID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		f.links = append(f.links, l)
		linked++
	}
	return linked, nil
}

func (f *fakeTaxonomyBackend) ListCompanies(_ context.Context) ([]models.Company, error) {
	return f.companies, nil
}

func (f *fakeTaxonomyBackend) ListEcosystems(_ context.Context) ([]models.CryptoEcosystem, error) {
	var out []models.CryptoEcosystem
	for _, e := range f.ecosystems {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeTaxonomyBackend) LinkCompanyEcosystem(_ context.Context, link *models.CompanyEcosystem) error {
	f.companyLinks = append(f.companyLinks, *link)
	return nil
}

const taxonomyFixture = `
{"eco_name":"Ethereum","repo_url":"https://github.com/ethereum/go-ethereum","tags":["protocol"]}
{"eco_name":"Ethereum","repo_url":"https://github.com/ethereum/solidity","tags":[]}
{"eco_name":"Uniswap","repo_url":"https://github.com/Uniswap/v3-core","tags":["defi"]}
{"eco_name":"Uniswap","repo_url":"https://github.com/ethereum/go-ethereum","tags":["dependency"]}
{"eco_name":"Obscure Chain","repo_url":"not a github url","tags":[]}
`

func TestTaxonomyRunBatchesRepositoriesAndLinks(t *testing.T) {
	backend := newFakeTaxonomyBackend()
	imp := NewTaxonomyImporter(backend)

	stats, err := imp.Run(context.Background(), strings.NewReader(taxonomyFixture))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, 3, stats.Ecosystems)
	// go-ethereum appears under two ecosystems but is seeded once.
	assert.Equal(t, 3, stats.Repositories)
	assert.Equal(t, 4, stats.Links)
	assert.Equal(t, 1, stats.Skipped)

	// One batch call each, not one round trip per row.
	assert.Equal(t, 1, backend.insertCalls)
	assert.Equal(t, 1, backend.linkCalls)

	shared := backend.repoIDs["ethereum/go-ethereum"]
	ecoIDs := make(map[int64]bool)
	for _, l := range backend.links {
		if l.RepositoryID == shared {
			ecoIDs[l.EcosystemID] = true
		}
	}
	assert.Len(t, ecoIDs, 2, "shared repo links to both ecosystems")
}

func TestTaxonomyRunIsIdempotent(t *testing.T) {
	backend := newFakeTaxonomyBackend()
	imp := NewTaxonomyImporter(backend)

	_, err := imp.Run(context.Background(), strings.NewReader(taxonomyFixture))
	require.NoError(t, err)

	stats, err := imp.Run(context.Background(), strings.NewReader(taxonomyFixture))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Ecosystems, "conflict-do-nothing keeps re-runs clean")
	assert.Equal(t, 0, stats.Links)
	assert.Len(t, backend.links, 4)
}

func TestTaxonomyPriorityOnlyFilters(t *testing.T) {
	backend := newFakeTaxonomyBackend()
	imp := NewTaxonomyImporter(backend)
	imp.PriorityOnly = true

	stats, err := imp.Run(context.Background(), strings.NewReader(taxonomyFixture))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Ecosystems)
	_, ok := backend.ecosystems["Obscure Chain"]
	assert.False(t, ok)
	assert.Greater(t, stats.Skipped, 0)
}

func TestTaxonomyLinksCompaniesByNormalizedName(t *testing.T) {
	backend := newFakeTaxonomyBackend()
	backend.companies = []models.Company{
		{ID: uuid.New(), CompanyName: "Uniswap Labs"},
		{ID: uuid.New(), CompanyName: "Unrelated Co"},
	}
	imp := NewTaxonomyImporter(backend)

	stats, err := imp.Run(context.Background(), strings.NewReader(taxonomyFixture))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompaniesLinked)
	require.Len(t, backend.companyLinks, 1)
	assert.Equal(t, "normalized_name", backend.companyLinks[0].Attribution)
}
