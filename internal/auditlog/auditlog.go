// Package auditlog records successful publishes for later inspection.
// Recording is best-effort: a failed insert is logged by the caller and
// never fails the publish itself.
package auditlog

import (
	"context"
	"time"
)

// Entry is one recorded publish.
type Entry struct {
	Slug      string
	Action    string // "created" or "updated"
	ClientKey string
	Version   string
	At        time.Time
}

// Recorder persists publish entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close()
}

// NoOp discards entries. The default when no audit store is configured.
type NoOp struct{}

// Record does nothing and always succeeds.
func (NoOp) Record(_ context.Context, _ Entry) error { return nil }

// Close does nothing.
func (NoOp) Close() {}
