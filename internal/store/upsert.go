package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UpsertConfig controls the Upserter.
type UpsertConfig struct {
	// Dir is the content directory all article documents live under.
	Dir string
	// MaxReadRetries bounds retries of the version read on transient
	// failure. The write step is never retried; retrying an ambiguous write
	// could double-apply, while the read is idempotent.
	MaxReadRetries int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// UpsertResult reports the outcome of a successful upsert.
type UpsertResult struct {
	Created bool
	Message string
	// Token is the version token of the newly written object.
	Token string
}

// Upserter performs read-then-write upserts of article documents against a
// Store, preserving optimistic-concurrency semantics.
type Upserter struct {
	store  Store
	cfg    UpsertConfig
	logger *zap.Logger
}

// NewUpserter constructs an Upserter.
func NewUpserter(s Store, cfg UpsertConfig, logger *zap.Logger) *Upserter {
	if cfg.Dir == "" {
		cfg.Dir = "content/articles"
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 250 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upserter{store: s, cfg: cfg, logger: logger}
}

// Path returns the storage path for a slug. One document per slug.
func (u *Upserter) Path(slug string) string {
	return path.Join(u.cfg.Dir, slug+".md")
}

// Upsert writes the full document for slug, creating it if absent and
// replacing it in place otherwise. The current version token is read first
// and passed as a write precondition so a concurrent publish of the same
// slug surfaces as ErrConflict instead of a silent overwrite.
func (u *Upserter) Upsert(ctx context.Context, slug string, doc []byte) (UpsertResult, error) {
	p := u.Path(slug)

	token, err := u.statWithRetry(ctx, p)
	exists := true
	switch {
	case errors.Is(err, ErrNotFound):
		exists = false
		token = ""
	case err != nil:
		return UpsertResult{}, fmt.Errorf("read current version of %s: %w", p, err)
	}

	newToken, err := u.store.Write(ctx, p, doc, token)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("write %s: %w", p, err)
	}

	res := UpsertResult{Created: !exists, Message: "article updated", Token: newToken}
	if res.Created {
		res.Message = "article created"
	}
	u.logger.Info("article upserted",
		zap.String("slug", slug),
		zap.Bool("created", res.Created),
		zap.String("version", newToken),
	)
	return res, nil
}

// Slugs lists the slugs of all stored article documents.
func (u *Upserter) Slugs(ctx context.Context) ([]string, error) {
	names, err := u.store.List(ctx, u.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", u.cfg.Dir, err)
	}
	slugs := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, ".md") {
			slugs = append(slugs, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (u *Upserter) statWithRetry(ctx context.Context, p string) (string, error) {
	backoff := u.cfg.BackoffInitial
	for attempt := 0; ; attempt++ {
		token, err := u.store.Stat(ctx, p)
		if err == nil || errors.Is(err, ErrNotFound) {
			return token, err
		}
		if attempt >= u.cfg.MaxReadRetries {
			return "", err
		}
		u.logger.Warn("version read failed, retrying",
			zap.String("path", p),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > u.cfg.BackoffMax {
			backoff = u.cfg.BackoffMax
		}
	}
}
