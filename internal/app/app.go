// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/serpmax/content-api/internal/auditlog"
	"github.com/serpmax/content-api/internal/clock"
	"github.com/serpmax/content-api/internal/clock/system"
	"github.com/serpmax/content-api/internal/config"
	"github.com/serpmax/content-api/internal/ratelimit"
	"github.com/serpmax/content-api/internal/revalidate"
	"github.com/serpmax/content-api/internal/store"
	"github.com/serpmax/content-api/internal/store/gcs"
	"github.com/serpmax/content-api/internal/store/github"
	"github.com/serpmax/content-api/internal/store/memory"
)

// App holds the shared, long-lived services for the content API. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	Store       store.Store
	Upserter    *store.Upserter
	Limiter     *ratelimit.Limiter
	Revalidator revalidate.Revalidator
	Audit       auditlog.Recorder
	Clock       clock.Clock
	Logger      *zap.Logger

	closers []func()
}

// New instantiates providers per configuration. It fails fast if any
// configured service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Clock: system.New(), Logger: logger}

	contentStore, err := a.newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = contentStore
	a.Upserter = store.NewUpserter(contentStore, store.UpsertConfig{
		Dir:            cfg.Content.Dir,
		MaxReadRetries: cfg.Retry.MaxRetries,
		BackoffInitial: cfg.BackoffInitial(),
		BackoffMax:     cfg.BackoffMax(),
	}, logger)

	a.Limiter = ratelimit.New(ratelimit.Config{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateWindow(),
	}, a.Clock)

	revalidator, err := a.newRevalidator(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Revalidator = revalidator

	audit, err := a.newAudit(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Audit = audit

	return a, nil
}

func (a *App) newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Content.Provider {
	case "github":
		logger.Info("using github content store",
			zap.String("owner", cfg.GitHub.Owner),
			zap.String("repo", cfg.GitHub.Repo),
			zap.String("branch", cfg.GitHub.Branch),
		)
		s, err := github.New(github.Config{
			BaseURL: cfg.GitHub.BaseURL,
			Token:   cfg.GitHub.Token,
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Branch:  cfg.GitHub.Branch,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize github store: %w", err)
		}
		return s, nil
	case "gcs":
		logger.Info("using gcs content store", zap.String("bucket", cfg.GCS.Bucket))
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("close gcs client", zap.Error(err))
			}
		})
		s, err := gcs.New(client, gcs.Config{Bucket: cfg.GCS.Bucket})
		if err != nil {
			return nil, fmt.Errorf("initialize gcs store: %w", err)
		}
		return s, nil
	case "memory":
		logger.Info("using in-memory content store, documents are not persisted")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown content provider: %s", cfg.Content.Provider)
	}
}

func (a *App) newRevalidator(ctx context.Context, cfg config.Config, logger *zap.Logger) (revalidate.Revalidator, error) {
	switch cfg.Revalidate.Provider {
	case "webhook":
		logger.Info("using webhook revalidator", zap.String("url", cfg.Revalidate.WebhookURL))
		wh, err := revalidate.NewWebhook(revalidate.WebhookConfig{
			URL:    cfg.Revalidate.WebhookURL,
			Secret: cfg.Revalidate.Secret,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize webhook revalidator: %w", err)
		}
		return wh, nil
	case "pubsub":
		logger.Info("using pubsub revalidator", zap.String("topic", cfg.Revalidate.TopicID))
		ps, err := revalidate.NewPubSub(ctx, revalidate.PubSubConfig{
			ProjectID: cfg.Revalidate.ProjectID,
			TopicID:   cfg.Revalidate.TopicID,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub revalidator: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := ps.Close(); err != nil {
				logger.Warn("close pubsub revalidator", zap.Error(err))
			}
		})
		return ps, nil
	case "noop":
		logger.Info("revalidation disabled, rendered pages will go stale until rebuilt")
		return revalidate.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown revalidate provider: %s", cfg.Revalidate.Provider)
	}
}

func (a *App) newAudit(ctx context.Context, cfg config.Config, logger *zap.Logger) (auditlog.Recorder, error) {
	switch cfg.Audit.Provider {
	case "postgres":
		logger.Info("using postgres audit log")
		rec, err := auditlog.NewPostgres(ctx, cfg.Audit.DSN)
		if err != nil {
			return nil, fmt.Errorf("initialize audit log: %w", err)
		}
		a.closers = append(a.closers, rec.Close)
		return rec, nil
	case "noop":
		return auditlog.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown audit provider: %s", cfg.Audit.Provider)
	}
}

// Close shuts down all services in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
