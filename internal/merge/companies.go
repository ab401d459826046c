// Package merge combines duplicate entities: the richest record survives,
// dependent edges move to it, and the duplicates are deleted in the same
// transaction. Planning is separated from execution so callers can show a
// dry run.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// keepSeparatePairs lists normalized-colliding company names that are
// legally distinct organizations and must never be unified.
var keepSeparatePairs = [][2]string{
	{"uniswap labs", "uniswap foundation"},
	{"ethereum foundation", "ethereum classic labs"},
	{"solana labs", "solana foundation"},
	{"polygon labs", "polygon ventures"},
	{"consensys", "consensys ventures"},
}

// KeepSeparate reports whether two company names form a protected pair.
func KeepSeparate(a, b string) bool {
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	for _, pair := range keepSeparatePairs {
		if (la == pair[0] && lb == pair[1]) || (la == pair[1] && lb == pair[0]) {
			return true
		}
	}
	return false
}

// CompanyCandidate is a company plus the signals that decide which group
// member survives a merge.
type CompanyCandidate struct {
	models.Company
	Employees int
}

// ScoreCompany ranks a candidate within its duplicate group. A real
// domain dominates everything else.
func ScoreCompany(c CompanyCandidate) int {
	score := 0
	if c.Domain != "" && !strings.HasSuffix(c.Domain, models.PlaceholderDomainSuffix) {
		score += 1000
	}
	score += c.Employees
	if c.LinkedinURL != nil && *c.LinkedinURL != "" {
		score += 100
	}
	if c.Website != nil && *c.Website != "" {
		score += 50
	}
	if c.FoundedYear != nil {
		score += 10
	}
	if strings.Contains(strings.ToLower(c.CompanyName), "labs") {
		score += 20
	}
	return score
}

// CompanyPlan is one duplicate group resolved to a canonical survivor.
type CompanyPlan struct {
	Canonical  CompanyCandidate
	Duplicates []CompanyCandidate
}

// GroupCompanies buckets candidates by normalized name and resolves each
// bucket to a plan. Keep-separate pairs against the canonical are dropped
// from the group rather than merged.
func GroupCompanies(candidates []CompanyCandidate) []CompanyPlan {
	buckets := make(map[string][]CompanyCandidate)
	for _, c := range candidates {
		key := normalize.CompanyName(c.CompanyName)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], c)
	}

	var plans []CompanyPlan
	for _, group := range buckets {
		if len(group) < 2 {
			continue
		}

		canonical := group[0]
		best := ScoreCompany(canonical)
		for _, c := range group[1:] {
			if s := ScoreCompany(c); s > best {
				canonical, best = c, s
			}
		}

		var dups []CompanyCandidate
		for _, c := range group {
			if c.ID == canonical.ID {
				continue
			}
			if KeepSeparate(c.CompanyName, canonical.CompanyName) {
				continue
			}
			dups = append(dups, c)
		}
		if len(dups) == 0 {
			continue
		}
		plans = append(plans, CompanyPlan{Canonical: canonical, Duplicates: dups})
	}
	return plans
}

// Stats accumulates merge results.
type Stats struct {
	Groups         int
	Merged         int
	EdgesMoved     int
	SkippedHasEdge int
}

// Engine executes merge plans against the store.
type Engine struct {
	store  *storage.Store
	logger *slog.Logger
}

// NewEngine creates a merge engine.
func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store, logger: slog.Default().With("component", "merge")}
}

// PlanCompanies loads all companies with employee counts and produces the
// duplicate-group plans without writing anything.
func (e *Engine) PlanCompanies(ctx context.Context) ([]CompanyPlan, error) {
	companies, err := e.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan company merges: %w", err)
	}

	candidates := make([]CompanyCandidate, 0, len(companies))
	for _, c := range companies {
		n, err := e.store.EmployeeCount(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("plan company merges: %w", err)
		}
		candidates = append(candidates, CompanyCandidate{Company: c, Employees: n})
	}
	return GroupCompanies(candidates), nil
}

// ExecuteCompanyPlan merges one group in a single transaction. Employment
// rows that would collide with an existing row at the canonical company
// are dropped as duplicates rather than moved.
func (e *Engine) ExecuteCompanyPlan(ctx context.Context, plan CompanyPlan, stats *Stats) error {
	tx, err := e.store.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin company merge: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, dup := range plan.Duplicates {
		if _, err := tx.Exec(ctx, `
			DELETE FROM employment e
			WHERE e.company_id = $1 AND EXISTS (
				SELECT 1 FROM employment k
				WHERE k.company_id = $2 AND k.person_id = e.person_id
					AND COALESCE(k.start_date, DATE '1900-01-01') = COALESCE(e.start_date, DATE '1900-01-01')
			)
		`, dup.ID, plan.Canonical.ID); err != nil {
			return fmt.Errorf("drop colliding employment: %w", err)
		}

		moved, err := tx.Exec(ctx,
			`UPDATE employment SET company_id = $2 WHERE company_id = $1`,
			dup.ID, plan.Canonical.ID)
		if err != nil {
			return fmt.Errorf("move employment: %w", err)
		}
		stats.EdgesMoved += int(moved.RowsAffected())

		if _, err := tx.Exec(ctx, `
			DELETE FROM company_ecosystems ce
			WHERE ce.company_id = $1 AND EXISTS (
				SELECT 1 FROM company_ecosystems k
				WHERE k.company_id = $2 AND k.ecosystem_id = ce.ecosystem_id
			)
		`, dup.ID, plan.Canonical.ID); err != nil {
			return fmt.Errorf("drop colliding company ecosystems: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE company_ecosystems SET company_id = $2 WHERE company_id = $1`,
			dup.ID, plan.Canonical.ID); err != nil {
			return fmt.Errorf("move company ecosystems: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE github_repositories SET company_id = $2 WHERE company_id = $1`,
			dup.ID, plan.Canonical.ID); err != nil {
			return fmt.Errorf("move repositories: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM companies WHERE id = $1`, dup.ID); err != nil {
			return fmt.Errorf("delete duplicate company: %w", err)
		}
		stats.Merged++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit company merge: %w", err)
	}
	e.logger.Info("company group merged",
		"canonical", plan.Canonical.CompanyName,
		"duplicates", len(plan.Duplicates))
	return nil
}

// MergeCompanies plans and executes all company merges.
func (e *Engine) MergeCompanies(ctx context.Context) (*Stats, error) {
	plans, err := e.PlanCompanies(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Groups: len(plans)}
	for _, plan := range plans {
		if err := e.ExecuteCompanyPlan(ctx, plan, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// DuplicateIDs lists the IDs slated for deletion, for dry-run output.
func (p CompanyPlan) DuplicateIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Duplicates))
	for i, d := range p.Duplicates {
		ids[i] = d.ID
	}
	return ids
}
