package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// UpsertGithubProfile inserts or refreshes a profile keyed by the
// lowercased username. Stats are overwritten on revisit; person_id is only
// filled when currently NULL so a resolved linkage survives refreshes.
// The bool reports whether the row was inserted rather than updated,
// read off xmax: zero means no prior row version existed.
func (s *Store) UpsertGithubProfile(ctx context.Context, p *models.GithubProfile) (uuid.UUID, bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var row struct {
		ID       uuid.UUID `db:"id"`
		Inserted bool      `db:"inserted"`
	}
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO github_profiles (id, github_username, person_id, name, company, bio,
			location, email, blog, followers, following, public_repos,
			ecosystem_tags, importance_score, last_enriched)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (LOWER(github_username)) DO UPDATE SET
			person_id = COALESCE(github_profiles.person_id, EXCLUDED.person_id),
			name = COALESCE(EXCLUDED.name, github_profiles.name),
			company = COALESCE(EXCLUDED.company, github_profiles.company),
			bio = COALESCE(EXCLUDED.bio, github_profiles.bio),
			location = COALESCE(EXCLUDED.location, github_profiles.location),
			email = COALESCE(EXCLUDED.email, github_profiles.email),
			blog = COALESCE(EXCLUDED.blog, github_profiles.blog),
			followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			public_repos = EXCLUDED.public_repos,
			last_enriched = EXCLUDED.last_enriched
		RETURNING id, (xmax = 0) AS inserted
	`, p.ID, p.GithubUsername, p.PersonID, p.Name, p.Company, p.Bio,
		p.Location, p.Email, p.Blog, p.Followers, p.Following, p.PublicRepos,
		p.EcosystemTags, p.ImportanceScore, p.LastEnriched)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert github profile: %w", err)
	}
	return row.ID, row.Inserted, nil
}

// GetGithubProfileByUsername loads a profile by username, case-insensitive.
func (s *Store) GetGithubProfileByUsername(ctx context.Context, username string) (*models.GithubProfile, error) {
	var p models.GithubProfile
	err := s.db.GetContext(ctx, &p,
		`SELECT * FROM github_profiles WHERE LOWER(github_username) = LOWER($1)`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get github profile: %w", err)
	}
	return &p, nil
}

// AttachProfileToPerson links an orphan profile to a person. No-op if the
// profile already belongs to someone.
func (s *Store) AttachProfileToPerson(ctx context.Context, profileID, personID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE github_profiles SET person_id = $2 WHERE id = $1 AND person_id IS NULL`,
		profileID, personID)
	if err != nil {
		return fmt.Errorf("attach profile to person: %w", err)
	}
	return nil
}

// MergeEcosystemTags unions new tags into a profile's tag set.
func (s *Store) MergeEcosystemTags(ctx context.Context, profileID uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE github_profiles
		SET ecosystem_tags = (
			SELECT ARRAY(SELECT DISTINCT t FROM unnest(ecosystem_tags || $2::text[]) AS t ORDER BY t)
		)
		WHERE id = $1
	`, profileID, pq.Array(tags))
	if err != nil {
		return fmt.Errorf("merge ecosystem tags: %w", err)
	}
	return nil
}

// UpsertGithubRepository inserts or refreshes a repository keyed by its
// full name. Stars, forks, language and description are overwritten.
func (s *Store) UpsertGithubRepository(ctx context.Context, r *models.GithubRepository) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	var id uuid.UUID
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO github_repositories (id, full_name, company_id, stars, forks,
			language, description, ecosystem_ids, importance_score, contributor_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (full_name) DO UPDATE SET
			company_id = COALESCE(github_repositories.company_id, EXCLUDED.company_id),
			stars = EXCLUDED.stars,
			forks = EXCLUDED.forks,
			language = COALESCE(EXCLUDED.language, github_repositories.language),
			description = COALESCE(EXCLUDED.description, github_repositories.description)
		RETURNING id
	`, r.ID, r.FullName, r.CompanyID, r.Stars, r.Forks,
		r.Language, r.Description, r.EcosystemIDs, r.ImportanceScore, r.ContributorCount)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert github repository: %w", err)
	}
	return id, nil
}

// MarkRepositorySynced stamps the contributor-sync watermark and records
// the contributor count seen during the sweep.
func (s *Store) MarkRepositorySynced(ctx context.Context, repoID uuid.UUID, contributors int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE github_repositories
		SET last_contributor_sync = NOW(), contributor_count = $2
		WHERE id = $1
	`, repoID, contributors)
	if err != nil {
		return fmt.Errorf("mark repository synced: %w", err)
	}
	return nil
}

// ReposDueForSync selects repositories whose contributor sweep is older
// than the window (or never ran), best ecosystem tier first, then stars,
// then staleness.
func (s *Store) ReposDueForSync(ctx context.Context, window time.Duration, limit int) ([]models.GithubRepository, error) {
	var repos []models.GithubRepository
	err := s.db.SelectContext(ctx, &repos, `
		SELECT r.* FROM github_repositories r
		LEFT JOIN (
			SELECT er.repository_id, MIN(e.priority_tier) AS tier
			FROM ecosystem_repositories er
			JOIN crypto_ecosystems e ON e.id = er.ecosystem_id
			GROUP BY er.repository_id
		) t ON t.repository_id = r.id
		WHERE r.last_contributor_sync IS NULL OR r.last_contributor_sync < NOW() - $1::interval
		ORDER BY COALESCE(t.tier, 5) ASC, r.stars DESC, r.last_contributor_sync ASC NULLS FIRST
		LIMIT $2
	`, fmt.Sprintf("%d seconds", int(window.Seconds())), limit)
	if err != nil {
		return nil, fmt.Errorf("select repos due for sync: %w", err)
	}
	return repos, nil
}

// UpsertContribution records a (profile, repo) contribution edge. The
// count never decreases, so a partial sweep cannot clobber a fuller one.
func (s *Store) UpsertContribution(ctx context.Context, c *models.GithubContribution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO github_contributions (profile_id, repository_id, contribution_count, last_contribution_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, repository_id) DO UPDATE SET
			contribution_count = GREATEST(github_contributions.contribution_count, EXCLUDED.contribution_count),
			last_contribution_date = GREATEST(github_contributions.last_contribution_date, EXCLUDED.last_contribution_date)
	`, c.ProfileID, c.RepositoryID, c.ContributionCount, c.LastContributionDate)
	if err != nil {
		return fmt.Errorf("upsert contribution: %w", err)
	}
	return nil
}

// ContributionSummary is a contribution edge joined with its repository,
// for candidate briefs.
type ContributionSummary struct {
	FullName          string `db:"full_name"`
	Stars             int    `db:"stars"`
	ContributionCount int    `db:"contribution_count"`
}

// TopContributions returns a profile's most important repositories.
func (s *Store) TopContributions(ctx context.Context, profileID uuid.UUID, limit int) ([]ContributionSummary, error) {
	var rows []ContributionSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.full_name, r.stars, c.contribution_count
		FROM github_contributions c
		JOIN github_repositories r ON r.id = c.repository_id
		WHERE c.profile_id = $1
		ORDER BY r.importance_score DESC, r.stars DESC
		LIMIT $2
	`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("top contributions: %w", err)
	}
	return rows, nil
}

// ProfilesForPerson returns the GitHub profiles owned by a person.
func (s *Store) ProfilesForPerson(ctx context.Context, personID uuid.UUID) ([]models.GithubProfile, error) {
	var rows []models.GithubProfile
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM github_profiles
		WHERE person_id = $1
		ORDER BY followers DESC
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("profiles for person: %w", err)
	}
	return rows, nil
}

// ListOrphanProfiles returns profiles with no owning person.
func (s *Store) ListOrphanProfiles(ctx context.Context, limit int) ([]models.GithubProfile, error) {
	var rows []models.GithubProfile
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM github_profiles
		WHERE person_id IS NULL
		ORDER BY followers DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphan profiles: %w", err)
	}
	return rows, nil
}

// ContributionCount counts tracked-repo contributions for a profile.
func (s *Store) ContributionCount(ctx context.Context, profileID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM github_contributions WHERE profile_id = $1`, profileID)
	if err != nil {
		return 0, fmt.Errorf("contribution count: %w", err)
	}
	return n, nil
}

// CompanyNameExists reports whether any stored company matches the name,
// case-insensitive.
func (s *Store) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM companies WHERE LOWER(company_name) = LOWER($1))`, name)
	if err != nil {
		return false, fmt.Errorf("company name exists: %w", err)
	}
	return exists, nil
}

// GithubUsernameKey pairs a username with its profile and owning person
// for index warm-loading.
type GithubUsernameKey struct {
	GithubUsername string     `db:"github_username"`
	ProfileID      uuid.UUID  `db:"id"`
	PersonID       *uuid.UUID `db:"person_id"`
}

// GithubUsernameKeys returns every stored username keyed pair.
func (s *Store) GithubUsernameKeys(ctx context.Context) ([]GithubUsernameKey, error) {
	var keys []GithubUsernameKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT github_username, id, person_id FROM github_profiles`)
	if err != nil {
		return nil, fmt.Errorf("load github username keys: %w", err)
	}
	return keys, nil
}

// NotableContributor is a discovery-sweep candidate for orbit expansion.
type NotableContributor struct {
	ProfileID      uuid.UUID `db:"id"`
	GithubUsername string    `db:"github_username"`
	Followers      int       `db:"followers"`
	PublicRepos    int       `db:"public_repos"`
}

// TopNotableContributors returns a repository's most-followed contributors
// that clear the notability thresholds.
func (s *Store) TopNotableContributors(ctx context.Context, repoID uuid.UUID, minFollowers, minRepos, limit int) ([]NotableContributor, error) {
	var rows []NotableContributor
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.github_username, p.followers, p.public_repos
		FROM github_profiles p
		JOIN github_contributions c ON c.profile_id = p.id
		WHERE c.repository_id = $1 AND p.followers > $2 AND p.public_repos > $3
		ORDER BY p.followers DESC
		LIMIT $4
	`, repoID, minFollowers, minRepos, limit)
	if err != nil {
		return nil, fmt.Errorf("select notable contributors: %w", err)
	}
	return rows, nil
}
