// Package index keeps an in-memory map of identifiers to entity IDs so
// the import and discovery paths can resolve without a database round trip
// per row. Writes go through the index before the database commit, with a
// rollback hook for failed transactions.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// Index is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	byLinkedIn       map[string]uuid.UUID // canonical URL -> person ID
	byGithubUsername map[string]uuid.UUID // lowercased username -> person ID
	byCompanyLower   map[string]uuid.UUID // lowercased raw name -> company ID
	byCompanyNorm    map[string]uuid.UUID // normalized name -> company ID

	logger *slog.Logger
}

// New creates an empty index.
func New() *Index {
	return &Index{
		byLinkedIn:       make(map[string]uuid.UUID),
		byGithubUsername: make(map[string]uuid.UUID),
		byCompanyLower:   make(map[string]uuid.UUID),
		byCompanyNorm:    make(map[string]uuid.UUID),
		logger:           slog.Default().With("component", "index"),
	}
}

// WarmLoad fills the index from the database. Called once at job start.
func (ix *Index) WarmLoad(ctx context.Context, store *storage.Store) error {
	linkedin, err := store.LinkedInKeys(ctx)
	if err != nil {
		return fmt.Errorf("warm load linkedin keys: %w", err)
	}
	github, err := store.GithubUsernameKeys(ctx)
	if err != nil {
		return fmt.Errorf("warm load github keys: %w", err)
	}
	companies, err := store.CompanyNameKeys(ctx)
	if err != nil {
		return fmt.Errorf("warm load company keys: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, k := range linkedin {
		ix.byLinkedIn[k.Canonical] = k.PersonID
	}
	for _, k := range github {
		if k.PersonID != nil {
			ix.byGithubUsername[strings.ToLower(k.GithubUsername)] = *k.PersonID
		}
	}
	for _, k := range companies {
		ix.byCompanyLower[strings.ToLower(k.CompanyName)] = k.ID
		if norm := normalize.CompanyName(k.CompanyName); norm != "" {
			ix.byCompanyNorm[norm] = k.ID
		}
	}

	ix.logger.Info("index warm-loaded",
		"linkedin", len(ix.byLinkedIn),
		"github", len(ix.byGithubUsername),
		"companies", len(ix.byCompanyLower))
	return nil
}

// PersonByLinkedIn looks up a person by canonical LinkedIn URL.
func (ix *Index) PersonByLinkedIn(canonical string) (uuid.UUID, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.byLinkedIn[canonical]
	return id, ok
}

// PersonByGithubUsername looks up a person by GitHub username.
func (ix *Index) PersonByGithubUsername(username string) (uuid.UUID, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.byGithubUsername[strings.ToLower(username)]
	return id, ok
}

// CompanyByName checks the raw lowercased name first, then the normalized
// form. Exact raw matches win so "Uniswap Labs" and "Uniswap Foundation"
// stay distinct even when normalization would collide them.
func (ix *Index) CompanyByName(name string) (uuid.UUID, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if id, ok := ix.byCompanyLower[strings.ToLower(name)]; ok {
		return id, true
	}
	if norm := normalize.CompanyName(name); norm != "" {
		if id, ok := ix.byCompanyNorm[norm]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// PutPerson registers a person's identifiers. Empty keys are skipped.
func (ix *Index) PutPerson(personID uuid.UUID, linkedinCanonical, githubUsername string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if linkedinCanonical != "" {
		ix.byLinkedIn[linkedinCanonical] = personID
	}
	if githubUsername != "" {
		ix.byGithubUsername[strings.ToLower(githubUsername)] = personID
	}
}

// PutCompany registers a company under both its raw and normalized names.
func (ix *Index) PutCompany(companyID uuid.UUID, name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byCompanyLower[strings.ToLower(name)] = companyID
	if norm := normalize.CompanyName(name); norm != "" {
		if _, taken := ix.byCompanyNorm[norm]; !taken {
			ix.byCompanyNorm[norm] = companyID
		}
	}
}

// RollbackPerson removes identifiers registered for a person whose
// database write failed.
func (ix *Index) RollbackPerson(linkedinCanonical, githubUsername string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if linkedinCanonical != "" {
		delete(ix.byLinkedIn, linkedinCanonical)
	}
	if githubUsername != "" {
		delete(ix.byGithubUsername, strings.ToLower(githubUsername))
	}
}

// RollbackCompany removes a company registration after a failed write.
func (ix *Index) RollbackCompany(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.byCompanyLower, strings.ToLower(name))
	if norm := normalize.CompanyName(name); norm != "" {
		delete(ix.byCompanyNorm, norm)
	}
}

// ReassignPerson repoints every identifier currently mapped to one person
// at another. Used after a person merge.
func (ix *Index) ReassignPerson(from, to uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for k, v := range ix.byLinkedIn {
		if v == from {
			ix.byLinkedIn[k] = to
		}
	}
	for k, v := range ix.byGithubUsername {
		if v == from {
			ix.byGithubUsername[k] = to
		}
	}
}

// Size returns entry counts for logging.
func (ix *Index) Size() (linkedin, github, companies int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byLinkedIn), len(ix.byGithubUsername), len(ix.byCompanyLower)
}
