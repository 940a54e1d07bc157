package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbitsocial/backend/internal/auth"
	"github.com/orbitsocial/backend/internal/config"
	"github.com/orbitsocial/backend/internal/db"
	"github.com/orbitsocial/backend/internal/friends"
	"github.com/orbitsocial/backend/internal/handlers"
	"github.com/orbitsocial/backend/internal/media"
	"github.com/orbitsocial/backend/internal/middleware"
	"github.com/orbitsocial/backend/internal/profiles"
	"github.com/orbitsocial/backend/internal/repositories"
	"github.com/orbitsocial/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and must be invoked
// during shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	requests := repositories.NewPostgresFriendRequestRepository(pool)
	lists := repositories.NewPostgresFriendListRepository(pool)
	posts := repositories.NewPostgresPostRepository(pool)
	moderation := repositories.NewPostgresModerationRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	resolver := profiles.NewCachingResolver(profiles.NewRepositoryResolver(users), cfg.UsernameCacheTTL)
	reconciler := friends.NewReconciler(lists, requests)

	deps := handlers.Dependencies{
		Users:          users,
		Sessions:       auth.NewManager(15*time.Minute, 24*time.Hour, sessionStore),
		FriendRequests: requests,
		FriendLists:    lists,
		Reconciler:     reconciler,
		Profiles:       resolver,
		Posts:          posts,
		Moderation:     moderation,
		AuthLimiter:    middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}

	cleanup := func(context.Context) error { return nil }

	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
		}

		fetcher := media.NewHTTPFetcher(cfg.MediaTimeout, cfg.MediaMaxBytes)
		ingestor := media.NewIngestor(fetcher, store, posts, media.IngestorConfig{QueueSize: 32, Workers: 2}, slog.Default())

		deps.PostIngestor = ingestor
		cleanup = ingestor.Shutdown
	}

	return deps, cleanup, nil
}
