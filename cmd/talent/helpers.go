package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/talentgraph/talentgraph-go/internal/cache"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// openStore connects to PostgreSQL using the loaded config.
func openStore(ctx context.Context) (*storage.Store, error) {
	return storage.New(ctx, cfg.Storage.PostgresDSN)
}

// warmIndex loads the identifier index from the store.
func warmIndex(ctx context.Context, store *storage.Store) (*index.Index, error) {
	ix := index.New()
	if err := ix.WarmLoad(ctx, store); err != nil {
		return nil, fmt.Errorf("warm identifier index: %w", err)
	}
	linkedin, github, companies := ix.Size()
	logger.WithFields(map[string]interface{}{
		"linkedin":  linkedin,
		"github":    github,
		"companies": companies,
	}).Debug("identifier index warmed")
	return ix, nil
}

// openCache connects to Redis when configured. Returns nil (always-miss
// cache) when no host is set or the connection fails.
func openCache(ctx context.Context) *cache.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	client, err := cache.NewClient(ctx, addr, "")
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without response cache")
		return nil
	}
	return client
}

// signalContext returns a context cancelled by SIGINT/SIGTERM, for the
// long-running worker commands.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// resolvePersonArg maps a CLI person identifier to a person ID. Accepts
// a raw UUID, a LinkedIn URL, or a GitHub username.
func resolvePersonArg(ix *index.Index, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	if canonical := normalize.LinkedInURL(arg); canonical != "" {
		if id, ok := ix.PersonByLinkedIn(canonical); ok {
			return id, nil
		}
	}
	if username := normalize.GitHubUsername(arg); username != "" {
		if id, ok := ix.PersonByGithubUsername(username); ok {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no person found for %q (use a UUID, LinkedIn URL, or GitHub username)", arg)
}
