package discovery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// TaxonomyLine is one JSONL record of the ecosystem export.
type TaxonomyLine struct {
	EcoName string   `json:"eco_name"`
	RepoURL string   `json:"repo_url"`
	Tags    []string `json:"tags"`
	Branch  []string `json:"branch"`
}

// priorityEcosystems are the canonical names scanned first when the
// priority-only flag is set. Matching is case-insensitive substring.
var priorityEcosystems = []string{
	"ethereum", "bitcoin", "solana", "polygon", "arbitrum", "optimism",
	"uniswap", "base", "avalanche", "cosmos", "polkadot", "near",
	"starknet", "zksync", "celestia", "sui", "aptos",
}

func isPriority(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range priorityEcosystems {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// TaxonomyBackend is the storage surface the taxonomy import needs.
// *storage.Store satisfies it.
type TaxonomyBackend interface {
	InsertEcosystems(ctx context.Context, ecosystems []models.CryptoEcosystem) (int, error)
	GetEcosystemByName(ctx context.Context, name string) (*models.CryptoEcosystem, error)
	InsertRepositoryNames(ctx context.Context, fullNames []string) (int, error)
	RepositoryIDsByFullName(ctx context.Context, fullNames []string) (map[string]uuid.UUID, error)
	LinkEcosystemRepositories(ctx context.Context, links []storage.EcosystemRepoLink) (int, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	ListEcosystems(ctx context.Context) ([]models.CryptoEcosystem, error)
	LinkCompanyEcosystem(ctx context.Context, link *models.CompanyEcosystem) error
}

// TaxonomyStats summarizes a taxonomy import.
type TaxonomyStats struct {
	Lines           int
	Ecosystems      int
	Repositories    int
	Links           int
	CompaniesLinked int
	Skipped         int
}

// TaxonomyImporter is the one-shot JSONL job.
type TaxonomyImporter struct {
	backend TaxonomyBackend
	logger  *slog.Logger

	// PriorityOnly restricts the import to the embedded priority list.
	PriorityOnly bool
}

// NewTaxonomyImporter creates the job.
func NewTaxonomyImporter(backend TaxonomyBackend) *TaxonomyImporter {
	return &TaxonomyImporter{
		backend: backend,
		logger:  slog.Default().With("component", "taxonomy"),
	}
}

// Run parses the JSONL stream and loads the taxonomy. Re-runs are no-ops
// thanks to conflict-do-nothing keys.
func (t *TaxonomyImporter) Run(ctx context.Context, r io.Reader) (*TaxonomyStats, error) {
	stats := &TaxonomyStats{}

	// First pass: parse all lines and dedupe ecosystems by name.
	byEco := make(map[string][]TaxonomyLine)
	var order []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		var parsed TaxonomyLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			stats.Skipped++
			continue
		}
		if parsed.EcoName == "" {
			stats.Skipped++
			continue
		}
		if t.PriorityOnly && !isPriority(parsed.EcoName) {
			stats.Skipped++
			continue
		}
		if _, ok := byEco[parsed.EcoName]; !ok {
			order = append(order, parsed.EcoName)
		}
		byEco[parsed.EcoName] = append(byEco[parsed.EcoName], parsed)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read taxonomy: %w", err)
	}

	// Batch-insert the ecosystem rows.
	ecosystems := make([]models.CryptoEcosystem, 0, len(order))
	for _, name := range order {
		tier := 5
		if isPriority(name) {
			tier = 1
		}
		ecosystems = append(ecosystems, models.CryptoEcosystem{
			EcosystemName:  name,
			NormalizedName: normalize.CompanyName(name),
			PriorityTier:   tier,
		})
	}
	inserted, err := t.backend.InsertEcosystems(ctx, ecosystems)
	if err != nil {
		return stats, fmt.Errorf("insert ecosystems: %w", err)
	}
	stats.Ecosystems = inserted

	// Seed every distinct repository in one chunked pass; metadata stays
	// empty until a discovery sweep reaches the live record.
	seen := make(map[string]bool)
	var fullNames []string
	for _, name := range order {
		for _, line := range byEco[name] {
			fullName := repoFullName(line.RepoURL)
			if fullName == "" {
				stats.Skipped++
				continue
			}
			if !seen[fullName] {
				seen[fullName] = true
				fullNames = append(fullNames, fullName)
			}
		}
	}
	if _, err := t.backend.InsertRepositoryNames(ctx, fullNames); err != nil {
		return stats, fmt.Errorf("insert repositories: %w", err)
	}
	stats.Repositories = len(fullNames)

	repoIDs, err := t.backend.RepositoryIDsByFullName(ctx, fullNames)
	if err != nil {
		return stats, fmt.Errorf("resolve repository ids: %w", err)
	}

	// Build the join rows per ecosystem, then link in one chunked pass.
	var links []storage.EcosystemRepoLink
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		eco, err := t.backend.GetEcosystemByName(ctx, name)
		if err != nil {
			t.logger.Warn("ecosystem lookup failed after insert", "ecosystem", name, "error", err)
			continue
		}
		for _, line := range byEco[name] {
			repoID, ok := repoIDs[repoFullName(line.RepoURL)]
			if !ok {
				continue
			}
			links = append(links, storage.EcosystemRepoLink{
				EcosystemID:  eco.ID,
				RepositoryID: repoID,
				Tags:         line.Tags,
			})
		}
	}
	linked, err := t.backend.LinkEcosystemRepositories(ctx, links)
	if err != nil {
		return stats, fmt.Errorf("link repositories: %w", err)
	}
	stats.Links = linked

	// Final pass: link ecosystems to companies by normalized name.
	if err := t.linkCompanies(ctx, stats); err != nil {
		t.logger.Warn("company linking incomplete", "error", err)
	}

	t.logger.Info("taxonomy import complete",
		"lines", stats.Lines,
		"ecosystems", stats.Ecosystems,
		"repositories", stats.Repositories,
		"companies_linked", stats.CompaniesLinked)
	return stats, nil
}

func (t *TaxonomyImporter) linkCompanies(ctx context.Context, stats *TaxonomyStats) error {
	companies, err := t.backend.ListCompanies(ctx)
	if err != nil {
		return err
	}
	ecosystems, err := t.backend.ListEcosystems(ctx)
	if err != nil {
		return err
	}

	ecoByNorm := make(map[string]models.CryptoEcosystem)
	for _, e := range ecosystems {
		if e.NormalizedName != "" {
			ecoByNorm[e.NormalizedName] = e
		}
	}

	for _, company := range companies {
		norm := normalize.CompanyName(company.CompanyName)
		eco, ok := ecoByNorm[norm]
		if !ok {
			continue
		}
		if err := t.backend.LinkCompanyEcosystem(ctx, &models.CompanyEcosystem{
			CompanyID:   company.ID,
			EcosystemID: eco.ID,
			Attribution: "normalized_name",
			Confidence:  0.9,
		}); err != nil {
			return err
		}
		stats.CompaniesLinked++
	}
	return nil
}

// repoFullName extracts "owner/repo" from a GitHub URL.
func repoFullName(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if !strings.HasPrefix(s, "github.com/") {
		return ""
	}
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + "/" + parts[1]
}
