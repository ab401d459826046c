// Package promotion converts orphan GitHub profiles into Person records
// using three confidence tiers. Tier 1 and 2 auto-promote; tier 3 skips.
package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// Backend is the storage surface the promotion engine needs.
// *storage.Store satisfies it.
type Backend interface {
	ListOrphanProfiles(ctx context.Context, limit int) ([]models.GithubProfile, error)
	ContributionCount(ctx context.Context, profileID uuid.UUID) (int, error)
	CompanyNameExists(ctx context.Context, name string) (bool, error)
	CreatePerson(ctx context.Context, p *models.Person) error
	AttachProfileToPerson(ctx context.Context, profileID, personID uuid.UUID) error
	AddEmail(ctx context.Context, e *models.PersonEmail) (bool, error)
}

// Tier is the promotion confidence level.
type Tier int

const (
	TierSkip Tier = iota
	TierHigh
	TierMedium
)

// cryptoVocabulary flags bios that signal ecosystem involvement.
var cryptoVocabulary = []string{
	"crypto", "blockchain", "web3", "defi", "ethereum", "solidity",
	"bitcoin", "smart contract", "zk", "zero-knowledge", "nft",
	"protocol", "validator", "evm", "rollup", "solana", "dao",
}

// Signals are the inputs to the tier decision.
type Signals struct {
	Contributions  int
	Followers      int
	HasName        bool
	HasEmail       bool
	HasLocation    bool
	CompanyTracked bool
	PublicRepos    int
	Bio            string
}

// Reason is the human-readable cause a profile was promoted.
type Reason string

const (
	ReasonContributor Reason = "contributor"
	ReasonFollowers   Reason = "followers"
	ReasonIdentity    Reason = "identity"
	ReasonCompany     Reason = "tracked_company"
	ReasonRepos       Reason = "public_repos"
	ReasonBio         Reason = "bio_keyword"
)

// Classify decides the tier and the first matching reason.
func Classify(s Signals) (Tier, Reason) {
	switch {
	case s.Contributions >= 1:
		return TierHigh, ReasonContributor
	case s.Followers > 100:
		return TierHigh, ReasonFollowers
	case s.HasName && (s.HasEmail || s.HasLocation):
		return TierHigh, ReasonIdentity
	case s.CompanyTracked:
		return TierMedium, ReasonCompany
	case s.PublicRepos > 10:
		return TierMedium, ReasonRepos
	case bioHasKeyword(s.Bio):
		return TierMedium, ReasonBio
	}
	return TierSkip, ""
}

func bioHasKeyword(bio string) bool {
	lower := strings.ToLower(bio)
	for _, kw := range cryptoVocabulary {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Stats summarizes a promotion run.
type Stats struct {
	Scanned  int
	Promoted int
	Skipped  int
}

// Engine runs the promotion sweep.
type Engine struct {
	backend Backend
	ix      *index.Index
	logger  *slog.Logger

	// DryRun classifies and counts without writing.
	DryRun bool
}

// New creates a promotion engine.
func New(backend Backend, ix *index.Index) *Engine {
	return &Engine{
		backend: backend,
		ix:      ix,
		logger:  slog.Default().With("component", "promotion"),
	}
}

// Run scans up to limit orphan profiles and promotes the qualifying ones.
func (e *Engine) Run(ctx context.Context, limit int) (*Stats, error) {
	profiles, err := e.backend.ListOrphanProfiles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("promotion sweep: %w", err)
	}

	stats := &Stats{}
	for _, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scanned++

		tier, reason, err := e.classify(ctx, profile)
		if err != nil {
			e.logger.Warn("classification failed, skipping profile",
				"username", profile.GithubUsername, "error", err)
			stats.Skipped++
			continue
		}
		if tier == TierSkip {
			stats.Skipped++
			continue
		}

		if e.DryRun {
			e.logger.Info("would promote",
				"username", profile.GithubUsername, "tier", int(tier), "reason", string(reason))
			stats.Promoted++
			continue
		}

		if err := e.promote(ctx, profile, reason); err != nil {
			e.logger.Warn("promotion failed",
				"username", profile.GithubUsername, "error", err)
			stats.Skipped++
			continue
		}
		stats.Promoted++
	}

	e.logger.Info("promotion sweep complete",
		"scanned", stats.Scanned, "promoted", stats.Promoted, "skipped", stats.Skipped)
	return stats, nil
}

func (e *Engine) classify(ctx context.Context, profile models.GithubProfile) (Tier, Reason, error) {
	contributions, err := e.backend.ContributionCount(ctx, profile.ID)
	if err != nil {
		return TierSkip, "", err
	}

	tracked := false
	if company := strings.TrimSpace(models.StrVal(profile.Company)); company != "" {
		tracked, err = e.backend.CompanyNameExists(ctx, strings.TrimPrefix(company, "@"))
		if err != nil {
			return TierSkip, "", err
		}
	}

	tier, reason := Classify(Signals{
		Contributions:  contributions,
		Followers:      profile.Followers,
		HasName:        strings.TrimSpace(models.StrVal(profile.Name)) != "",
		HasEmail:       strings.TrimSpace(models.StrVal(profile.Email)) != "",
		HasLocation:    strings.TrimSpace(models.StrVal(profile.Location)) != "",
		CompanyTracked: tracked,
		PublicRepos:    profile.PublicRepos,
		Bio:            models.StrVal(profile.Bio),
	})
	return tier, reason, nil
}

// promote creates the person, links the profile, and copies the public
// email when present. Pseudonymity is respected: a missing display name
// falls back to the username itself.
func (e *Engine) promote(ctx context.Context, profile models.GithubProfile, reason Reason) error {
	fullName := strings.TrimSpace(models.StrVal(profile.Name))
	if fullName == "" {
		fullName = profile.GithubUsername
	}
	sparse := profile.Name == nil || profile.Location == nil

	now := time.Now()
	person := &models.Person{
		ID:              uuid.New(),
		FullName:        &fullName,
		Location:        profile.Location,
		NeedsEnrichment: sparse,
		RefreshedAt:     &now,
	}
	if err := e.backend.CreatePerson(ctx, person); err != nil {
		return fmt.Errorf("create promoted person: %w", err)
	}
	if err := e.backend.AttachProfileToPerson(ctx, profile.ID, person.ID); err != nil {
		return fmt.Errorf("attach profile: %w", err)
	}
	e.ix.PutPerson(person.ID, "", profile.GithubUsername)

	if email := strings.TrimSpace(models.StrVal(profile.Email)); email != "" {
		if _, err := e.backend.AddEmail(ctx, &models.PersonEmail{
			PersonID:  person.ID,
			Email:     email,
			EmailType: models.EmailTypeUnknown,
			IsPrimary: true,
			Source:    "github",
		}); err != nil {
			return fmt.Errorf("add profile email: %w", err)
		}
	}

	e.logger.Info("profile promoted",
		"username", profile.GithubUsername, "person", person.ID, "reason", string(reason))
	return nil
}
