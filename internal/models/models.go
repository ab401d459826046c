// Package models holds the entity records persisted by the talent graph.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Person is the central entity of the graph.
type Person struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	FullName             *string    `json:"full_name" db:"full_name"`
	FirstName            *string    `json:"first_name" db:"first_name"`
	LastName             *string    `json:"last_name" db:"last_name"`
	Headline             *string    `json:"headline" db:"headline"`
	Location             *string    `json:"location" db:"location"`
	Description          *string    `json:"description" db:"description"`
	LinkedinURL          *string    `json:"linkedin_url" db:"linkedin_url"`
	LinkedinURLCanonical *string    `json:"linkedin_url_canonical" db:"linkedin_url_canonical"`
	TwitterURL           *string    `json:"twitter_url" db:"twitter_url"`
	School               *string    `json:"school" db:"school"`
	Website              *string    `json:"website" db:"website"`
	NeedsEnrichment      bool       `json:"needs_enrichment" db:"needs_enrichment"`
	RefreshedAt          *time.Time `json:"refreshed_at" db:"refreshed_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}

// PlaceholderNamePrefix marks Persons synthesized from a GitHub-only row.
const PlaceholderNamePrefix = "[GitHub] "

// Company groups employment and ecosystem edges.
type Company struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CompanyName  string    `json:"company_name" db:"company_name"`
	Domain       string    `json:"domain" db:"domain"`
	Website      *string   `json:"website" db:"website"`
	LinkedinURL  *string   `json:"linkedin_url" db:"linkedin_url"`
	GithubOrg    *string   `json:"github_org" db:"github_org"`
	SizeBucket   *string   `json:"size_bucket" db:"size_bucket"`
	FoundedYear  *int      `json:"founded_year" db:"founded_year"`
	TaxonomySlug *string   `json:"taxonomy_slug" db:"taxonomy_slug"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PlaceholderDomainSuffix is the synthetic unique key used when a real
// domain is unknown; the domain is upgraded in place when one is learned.
const PlaceholderDomainSuffix = ".placeholder"

// Employment relates a Person to a Company. An open-ended row (nil
// EndDate) denotes current employment.
type Employment struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	PersonID      uuid.UUID  `json:"person_id" db:"person_id"`
	CompanyID     uuid.UUID  `json:"company_id" db:"company_id"`
	Title         *string    `json:"title" db:"title"`
	StartDate     *time.Time `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date" db:"end_date"`
	DatePrecision string     `json:"date_precision" db:"date_precision"` // "month", "year", "none"
	Source        string     `json:"source" db:"source"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// EmailType classifies a person email.
type EmailType string

const (
	EmailTypeWork     EmailType = "work"
	EmailTypePersonal EmailType = "personal"
	EmailTypeUnknown  EmailType = "unknown"
)

// PersonEmail is an additive relation; the import pipeline never deletes
// emails.
type PersonEmail struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PersonID  uuid.UUID `json:"person_id" db:"person_id"`
	Email     string    `json:"email" db:"email"`
	EmailType EmailType `json:"email_type" db:"email_type"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GithubProfile may exist without an owning Person (orphan state).
type GithubProfile struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	GithubUsername  string         `json:"github_username" db:"github_username"`
	PersonID        *uuid.UUID     `json:"person_id" db:"person_id"`
	Name            *string        `json:"name" db:"name"`
	Company         *string        `json:"company" db:"company"`
	Bio             *string        `json:"bio" db:"bio"`
	Location        *string        `json:"location" db:"location"`
	Email           *string        `json:"email" db:"email"`
	Blog            *string        `json:"blog" db:"blog"`
	Followers       int            `json:"followers" db:"followers"`
	Following       int            `json:"following" db:"following"`
	PublicRepos     int            `json:"public_repos" db:"public_repos"`
	EcosystemTags   pq.StringArray `json:"ecosystem_tags" db:"ecosystem_tags"`
	ImportanceScore float64        `json:"importance_score" db:"importance_score"`
	LastEnriched    *time.Time     `json:"last_enriched" db:"last_enriched"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// GithubRepository is created by the discovery engine and refreshed on
// revisit.
type GithubRepository struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	FullName            string        `json:"full_name" db:"full_name"`
	CompanyID           *uuid.UUID    `json:"company_id" db:"company_id"`
	Stars               int           `json:"stars" db:"stars"`
	Forks               int           `json:"forks" db:"forks"`
	Language            *string       `json:"language" db:"language"`
	Description         *string       `json:"description" db:"description"`
	EcosystemIDs        pq.Int64Array `json:"ecosystem_ids" db:"ecosystem_ids"`
	ImportanceScore     float64       `json:"importance_score" db:"importance_score"`
	ContributorCount    int           `json:"contributor_count" db:"contributor_count"`
	LastContributorSync *time.Time    `json:"last_contributor_sync" db:"last_contributor_sync"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
}

// GithubContribution links a profile to a repository. The contribution
// count is monotonically non-decreasing (GREATEST semantics on upsert).
type GithubContribution struct {
	ProfileID            uuid.UUID  `json:"profile_id" db:"profile_id"`
	RepositoryID         uuid.UUID  `json:"repository_id" db:"repository_id"`
	ContributionCount    int        `json:"contribution_count" db:"contribution_count"`
	LastContributionDate *time.Time `json:"last_contribution_date" db:"last_contribution_date"`
}

// CryptoEcosystem is a taxonomy facet applied to repositories and, by
// propagation, to contributing profiles. PriorityTier 1 is highest.
type CryptoEcosystem struct {
	ID             int64     `json:"id" db:"id"`
	EcosystemName  string    `json:"ecosystem_name" db:"ecosystem_name"`
	NormalizedName string    `json:"normalized_name" db:"normalized_name"`
	EcosystemType  *string   `json:"ecosystem_type" db:"ecosystem_type"`
	PriorityTier   int       `json:"priority_tier" db:"priority_tier"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EcosystemRepository joins ecosystems and repositories.
type EcosystemRepository struct {
	EcosystemID  int64          `json:"ecosystem_id" db:"ecosystem_id"`
	RepositoryID uuid.UUID      `json:"repository_id" db:"repository_id"`
	Tags         pq.StringArray `json:"tags" db:"tags"`
}

// CompanyEcosystem joins companies and ecosystems with a confidence score.
type CompanyEcosystem struct {
	CompanyID   uuid.UUID `json:"company_id" db:"company_id"`
	EcosystemID int64     `json:"ecosystem_id" db:"ecosystem_id"`
	Attribution string    `json:"attribution" db:"attribution"`
	Confidence  float64   `json:"confidence" db:"confidence"`
}

// QueueStatus enumerates enrichment queue item states.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueInProgress QueueStatus = "in_progress"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

// EnrichmentQueueItem is a durable unit of enrichment work. An in_progress
// item implies a lease held by exactly one worker with a TTL.
type EnrichmentQueueItem struct {
	QueueID      int64       `json:"queue_id" db:"queue_id"`
	PersonID     uuid.UUID   `json:"person_id" db:"person_id"`
	Priority     int         `json:"priority" db:"priority"`
	Status       QueueStatus `json:"status" db:"status"`
	Attempts     int         `json:"attempts" db:"attempts"`
	LastAttempt  *time.Time  `json:"last_attempt" db:"last_attempt"`
	ErrorMessage *string     `json:"error_message" db:"error_message"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at" db:"completed_at"`
}

// NetworkPath caches a BFS result for (source, target). TTL 7 days;
// negative results are never cached.
type NetworkPath struct {
	SourcePersonID uuid.UUID `json:"source_person_id" db:"source_person_id"`
	TargetPersonID uuid.UUID `json:"target_person_id" db:"target_person_id"`
	PathLength     int       `json:"path_length" db:"path_length"`
	PathData       []byte    `json:"path_data" db:"path_data"` // JSON nodes + edges
	CachedAt       time.Time `json:"cached_at" db:"cached_at"`
}

// MigrationLog is the append-only record of every import run.
type MigrationLog struct {
	ID          int64      `json:"id" db:"id"`
	JobName     string     `json:"job_name" db:"job_name"`
	Source      string     `json:"source" db:"source"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	RowsTotal   int        `json:"rows_total" db:"rows_total"`
	Created     int        `json:"created" db:"created"`
	Enriched    int        `json:"enriched" db:"enriched"`
	Skipped     int        `json:"skipped" db:"skipped"`
	Errors      int        `json:"errors" db:"errors"`
	Metadata    []byte     `json:"metadata" db:"metadata"` // JSON blob
}

// Str returns a pointer to s, or nil when s is empty. Import paths use it
// to keep empty CSV cells out of the database.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences p, returning "" for nil.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
