package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// PersonCandidate carries the edge counts that decide which duplicate of
// a same-named group survives. Employment counts every row, ended ones
// included: deleting a person cascades to past employment history too.
type PersonCandidate struct {
	ID          uuid.UUID `db:"id"`
	FullName    string    `db:"full_name"`
	HasLinkedIn bool      `db:"has_linkedin"`
	HasTwitter  bool      `db:"has_twitter"`
	Employment  int       `db:"employment_count"`
	Emails      int       `db:"email_count"`
	Education   int       `db:"education_count"`
	Profiles    int       `db:"profile_count"`
}

// ScorePerson ranks a person by how enriched the record is.
func ScorePerson(p PersonCandidate) int {
	score := 0
	if p.HasLinkedIn {
		score += 100
	}
	score += p.Employment * 50
	score += p.Emails * 20
	score += p.Education * 30
	if p.HasTwitter {
		score += 25
	}
	score += p.Profiles * 25
	return score
}

// hasOwnedEdges reports whether deleting this person would orphan data.
// GitHub profiles are not counted because they are reparented first.
func hasOwnedEdges(p PersonCandidate) bool {
	return p.Employment > 0 || p.Emails > 0 || p.Education > 0 || p.HasTwitter
}

// PersonPlan is one same-named duplicate group.
type PersonPlan struct {
	Keeper     PersonCandidate
	Duplicates []PersonCandidate
}

// GroupPeople buckets candidates by exact full name and picks a keeper.
// Placeholder-named records never act as keeper over a real name, which
// ScorePerson already guarantees since placeholders carry no edges worth
// points, but ties are broken explicitly here.
func GroupPeople(candidates []PersonCandidate) []PersonPlan {
	buckets := make(map[string][]PersonCandidate)
	for _, c := range candidates {
		name := strings.TrimSpace(c.FullName)
		if name == "" {
			continue
		}
		buckets[name] = append(buckets[name], c)
	}

	var plans []PersonPlan
	for _, group := range buckets {
		if len(group) < 2 {
			continue
		}
		keeper := group[0]
		best := ScorePerson(keeper)
		for _, c := range group[1:] {
			s := ScorePerson(c)
			if s > best || (s == best && placeholderName(keeper.FullName) && !placeholderName(c.FullName)) {
				keeper, best = c, s
			}
		}
		var dups []PersonCandidate
		for _, c := range group {
			if c.ID != keeper.ID {
				dups = append(dups, c)
			}
		}
		plans = append(plans, PersonPlan{Keeper: keeper, Duplicates: dups})
	}
	return plans
}

func placeholderName(name string) bool {
	return strings.HasPrefix(name, models.PlaceholderNamePrefix)
}

// PlanPeople loads every named person with edge counts and produces the
// duplicate-group plans.
func (e *Engine) PlanPeople(ctx context.Context) ([]PersonPlan, error) {
	var candidates []PersonCandidate
	err := e.store.DB().SelectContext(ctx, &candidates, `
		SELECT p.id, p.full_name,
			(p.linkedin_url_canonical IS NOT NULL) AS has_linkedin,
			(p.twitter_url IS NOT NULL) AS has_twitter,
			(SELECT COUNT(*) FROM employment e WHERE e.person_id = p.id) AS employment_count,
			(SELECT COUNT(*) FROM person_emails m WHERE m.person_id = p.id) AS email_count,
			(SELECT COUNT(*) FROM person_education ed WHERE ed.person_id = p.id) AS education_count,
			(SELECT COUNT(*) FROM github_profiles g WHERE g.person_id = p.id) AS profile_count
		FROM people p
		WHERE p.full_name IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("plan person merges: %w", err)
	}
	return GroupPeople(candidates), nil
}

// ExecutePersonPlan reparents GitHub profiles to the keeper, then deletes
// duplicates that own no other edges. Duplicates still holding edges are
// left in place; edges are never orphaned silently.
func (e *Engine) ExecutePersonPlan(ctx context.Context, plan PersonPlan, stats *Stats) error {
	tx, err := e.store.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin person merge: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, dup := range plan.Duplicates {
		moved, err := tx.Exec(ctx,
			`UPDATE github_profiles SET person_id = $2 WHERE person_id = $1`,
			dup.ID, plan.Keeper.ID)
		if err != nil {
			return fmt.Errorf("reparent github profiles: %w", err)
		}
		stats.EdgesMoved += int(moved.RowsAffected())

		if hasOwnedEdges(dup) {
			stats.SkippedHasEdge++
			e.logger.Warn("duplicate person kept, still owns edges",
				"person", dup.ID, "name", dup.FullName)
			continue
		}

		if _, err := tx.Exec(ctx, `DELETE FROM people WHERE id = $1`, dup.ID); err != nil {
			return fmt.Errorf("delete duplicate person: %w", err)
		}
		stats.Merged++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit person merge: %w", err)
	}
	return nil
}

// MergePeople plans and executes all person merges.
func (e *Engine) MergePeople(ctx context.Context) (*Stats, error) {
	plans, err := e.PlanPeople(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Groups: len(plans)}
	for _, plan := range plans {
		if err := e.ExecutePersonPlan(ctx, plan, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
