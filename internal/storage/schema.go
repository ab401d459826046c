package storage

import (
	"context"
	"fmt"
)

// schema is the full DDL. Every statement is idempotent so Migrate can run
// on every process start.
const schema = `
CREATE TABLE IF NOT EXISTS people (
	id UUID PRIMARY KEY,
	full_name TEXT,
	first_name TEXT,
	last_name TEXT,
	headline TEXT,
	location TEXT,
	description TEXT,
	linkedin_url TEXT,
	linkedin_url_canonical TEXT,
	twitter_url TEXT,
	school TEXT,
	website TEXT,
	needs_enrichment BOOLEAN NOT NULL DEFAULT FALSE,
	refreshed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS people_linkedin_canonical_uniq
	ON people (linkedin_url_canonical) WHERE linkedin_url_canonical IS NOT NULL;

CREATE TABLE IF NOT EXISTS person_emails (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	email TEXT NOT NULL,
	email_type TEXT NOT NULL DEFAULT 'unknown',
	is_primary BOOLEAN NOT NULL DEFAULT FALSE,
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS person_emails_uniq
	ON person_emails (person_id, LOWER(email));

CREATE TABLE IF NOT EXISTS person_education (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	school TEXT NOT NULL,
	degree TEXT,
	field_of_study TEXT,
	start_year INT,
	end_year INT,
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS person_education_uniq
	ON person_education (person_id, LOWER(school));

CREATE TABLE IF NOT EXISTS companies (
	id UUID PRIMARY KEY,
	company_name TEXT NOT NULL,
	domain TEXT NOT NULL UNIQUE,
	website TEXT,
	linkedin_url TEXT,
	github_org TEXT,
	size_bucket TEXT,
	founded_year INT,
	taxonomy_slug TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS companies_name_lower_idx ON companies (LOWER(company_name));

CREATE TABLE IF NOT EXISTS employment (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	company_id UUID NOT NULL REFERENCES companies(id),
	title TEXT,
	start_date DATE,
	end_date DATE,
	date_precision TEXT NOT NULL DEFAULT 'none',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (end_date IS NULL OR start_date IS NULL OR end_date >= start_date)
);

CREATE UNIQUE INDEX IF NOT EXISTS employment_uniq
	ON employment (person_id, company_id, COALESCE(start_date, DATE '1900-01-01'));

CREATE INDEX IF NOT EXISTS employment_company_idx ON employment (company_id);

CREATE TABLE IF NOT EXISTS github_profiles (
	id UUID PRIMARY KEY,
	github_username TEXT NOT NULL,
	person_id UUID REFERENCES people(id) ON DELETE SET NULL,
	name TEXT,
	company TEXT,
	bio TEXT,
	location TEXT,
	email TEXT,
	blog TEXT,
	followers INT NOT NULL DEFAULT 0,
	following INT NOT NULL DEFAULT 0,
	public_repos INT NOT NULL DEFAULT 0,
	ecosystem_tags TEXT[] NOT NULL DEFAULT '{}',
	importance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_enriched TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS github_profiles_username_uniq
	ON github_profiles (LOWER(github_username));

CREATE INDEX IF NOT EXISTS github_profiles_importance_idx
	ON github_profiles (importance_score DESC);

CREATE TABLE IF NOT EXISTS github_repositories (
	id UUID PRIMARY KEY,
	full_name TEXT NOT NULL UNIQUE,
	company_id UUID REFERENCES companies(id) ON DELETE SET NULL,
	stars INT NOT NULL DEFAULT 0,
	forks INT NOT NULL DEFAULT 0,
	language TEXT,
	description TEXT,
	ecosystem_ids BIGINT[] NOT NULL DEFAULT '{}',
	importance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	contributor_count INT NOT NULL DEFAULT 0,
	last_contributor_sync TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS github_repositories_importance_idx
	ON github_repositories (importance_score DESC);

CREATE TABLE IF NOT EXISTS github_contributions (
	profile_id UUID NOT NULL REFERENCES github_profiles(id) ON DELETE CASCADE,
	repository_id UUID NOT NULL REFERENCES github_repositories(id) ON DELETE CASCADE,
	contribution_count INT NOT NULL DEFAULT 0,
	last_contribution_date TIMESTAMPTZ,
	PRIMARY KEY (profile_id, repository_id)
);

CREATE INDEX IF NOT EXISTS github_contributions_repo_idx
	ON github_contributions (repository_id);

CREATE TABLE IF NOT EXISTS crypto_ecosystems (
	id BIGSERIAL PRIMARY KEY,
	ecosystem_name TEXT NOT NULL UNIQUE,
	normalized_name TEXT NOT NULL,
	ecosystem_type TEXT,
	priority_tier INT NOT NULL DEFAULT 5,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ecosystem_repositories (
	ecosystem_id BIGINT NOT NULL REFERENCES crypto_ecosystems(id) ON DELETE CASCADE,
	repository_id UUID NOT NULL REFERENCES github_repositories(id) ON DELETE CASCADE,
	tags TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (ecosystem_id, repository_id)
);

CREATE TABLE IF NOT EXISTS company_ecosystems (
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	ecosystem_id BIGINT NOT NULL REFERENCES crypto_ecosystems(id) ON DELETE CASCADE,
	attribution TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	PRIMARY KEY (company_id, ecosystem_id)
);

CREATE TABLE IF NOT EXISTS enrichment_queue (
	queue_id BIGSERIAL PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	priority INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INT NOT NULL DEFAULT 0,
	last_attempt TIMESTAMPTZ,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS enrichment_queue_pending_idx
	ON enrichment_queue (priority DESC, created_at ASC) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS network_paths (
	source_person_id UUID NOT NULL,
	target_person_id UUID NOT NULL,
	path_length INT NOT NULL,
	path_data JSONB NOT NULL,
	cached_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (source_person_id, target_person_id)
);

CREATE TABLE IF NOT EXISTS migration_log (
	id BIGSERIAL PRIMARY KEY,
	job_name TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ,
	rows_total INT NOT NULL DEFAULT 0,
	created INT NOT NULL DEFAULT 0,
	enriched INT NOT NULL DEFAULT 0,
	skipped INT NOT NULL DEFAULT 0,
	errors INT NOT NULL DEFAULT 0,
	metadata JSONB NOT NULL DEFAULT '{}'
);
`

// Migrate applies the schema. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("schema applied")
	return nil
}
