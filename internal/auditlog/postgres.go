package auditlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// insertPublishEvent assumes a table schema like:
//
//	CREATE TABLE publish_events (
//	    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//	    slug TEXT NOT NULL,
//	    action TEXT NOT NULL,
//	    client_key TEXT NOT NULL,
//	    version TEXT NOT NULL,
//	    published_at TIMESTAMPTZ NOT NULL
//	);
const insertPublishEvent = `INSERT INTO publish_events (slug, action, client_key, version, published_at) VALUES ($1, $2, $3, $4, $5)`

// DB is the subset of pgxpool.Pool the recorder needs; it also matches
// pgxmock's pool interface so tests can substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres records publish entries in a Postgres table.
type Postgres struct {
	db DB
}

// NewPostgres connects a pgx pool and pings it to fail fast on bad config.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: pool}, nil
}

// NewPostgresWithDB wraps an existing connection, mainly for tests.
func NewPostgresWithDB(db DB) *Postgres {
	return &Postgres{db: db}
}

// Record inserts one row per publish.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if _, err := p.db.Exec(ctx, insertPublishEvent, e.Slug, e.Action, e.ClientKey, e.Version, e.At); err != nil {
		return fmt.Errorf("insert publish event: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.db.Close()
}
