// Package resolve decides whether an incoming record refers to a person or
// company already in the graph. Identifier tiers are checked strongest
// first; a weaker signal never overrides a stronger one.
package resolve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// Backend is the storage surface the resolver needs. *storage.Store
// satisfies it.
type Backend interface {
	GetGithubProfileByUsername(ctx context.Context, username string) (*models.GithubProfile, error)
	CurrentEmployeeNames(ctx context.Context, companyID uuid.UUID) ([]storage.EmployeeName, error)
}

// Match explains how a resolution was made.
type Match string

const (
	MatchNone     Match = "none"
	MatchLinkedIn Match = "linkedin"
	MatchGithub   Match = "github"
	MatchFuzzy    Match = "fuzzy"
)

// Resolution is the outcome of a person lookup.
type Resolution struct {
	PersonID uuid.UUID
	Match    Match
}

// PersonQuery carries the identifiers extracted from an incoming row.
type PersonQuery struct {
	LinkedInURL    string // raw, canonicalized here
	GithubUsername string // raw, validated here
	FullName       string // fuzzy tier only
	CompanyHint    string // fuzzy tier only, current company name
}

// Resolver resolves against the warm index, falling back to the backend
// for keys the index missed.
type Resolver struct {
	ix      *index.Index
	backend Backend

	// EnableFuzzy turns on the name-similarity tier. Off by default:
	// fuzzy matches create silent mis-merges and the strong identifier
	// tiers cover the real corpus.
	EnableFuzzy bool

	logger *slog.Logger
}

// New creates a Resolver over the given index and backend.
func New(ix *index.Index, backend Backend) *Resolver {
	return &Resolver{
		ix:      ix,
		backend: backend,
		logger:  slog.Default().With("component", "resolve"),
	}
}

// ResolvePerson runs the identifier tiers in order. A backend error on a
// fallback lookup degrades to "no match" with a warning, so one flaky
// query turns into a duplicate row rather than a lost one.
func (r *Resolver) ResolvePerson(ctx context.Context, q PersonQuery) Resolution {
	if canonical := normalize.LinkedInURL(q.LinkedInURL); canonical != "" {
		if id, ok := r.ix.PersonByLinkedIn(canonical); ok {
			return Resolution{PersonID: id, Match: MatchLinkedIn}
		}
	}

	if username := normalize.GitHubSlug(q.GithubUsername); username != "" {
		if id, ok := r.ix.PersonByGithubUsername(username); ok {
			return Resolution{PersonID: id, Match: MatchGithub}
		}
		profile, err := r.backend.GetGithubProfileByUsername(ctx, username)
		if err == nil && profile.PersonID != nil {
			r.ix.PutPerson(*profile.PersonID, "", username)
			return Resolution{PersonID: *profile.PersonID, Match: MatchGithub}
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("github profile lookup failed, treating as new person",
				"username", username, "error", err)
		}
	}

	if r.EnableFuzzy && q.FullName != "" && q.CompanyHint != "" {
		if res, ok := r.fuzzyPerson(ctx, q); ok {
			return res
		}
	}

	return Resolution{Match: MatchNone}
}

// fuzzyPerson matches by name similarity among current employees of the
// hinted company. Requires similarity at or above SamePersonThreshold and
// a unique best candidate.
func (r *Resolver) fuzzyPerson(ctx context.Context, q PersonQuery) (Resolution, bool) {
	companyID, ok := r.ix.CompanyByName(q.CompanyHint)
	if !ok {
		return Resolution{}, false
	}

	candidates, err := r.backend.CurrentEmployeeNames(ctx, companyID)
	if err != nil {
		r.logger.Warn("fuzzy candidate query failed", "error", err)
		return Resolution{}, false
	}

	var best Resolution
	matches := 0
	for _, c := range candidates {
		if normalize.NameSimilarity(q.FullName, c.FullName) >= normalize.SamePersonThreshold {
			matches++
			best = Resolution{PersonID: c.PersonID, Match: MatchFuzzy}
		}
	}
	if matches != 1 {
		// Zero or ambiguous. Ambiguity means create, never guess.
		return Resolution{}, false
	}
	return best, true
}

// ResolveCompany finds a company by name, raw match before normalized.
func (r *Resolver) ResolveCompany(name string) (uuid.UUID, bool) {
	if !normalize.ValidCompanyName(name) {
		return uuid.Nil, false
	}
	return r.ix.CompanyByName(name)
}
