// Package revalidate signals the rendering site that cached pages for the
// given paths must be rebuilt. The site is an external collaborator; a
// failed signal is logged but never fails the publish that triggered it.
package revalidate

import "context"

// Revalidator invalidates cached rendering for the given public paths.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string) error
}

// NoOp discards revalidation signals. Used in development and tests.
type NoOp struct{}

// Revalidate does nothing and always succeeds.
func (NoOp) Revalidate(_ context.Context, _ ...string) error {
	return nil
}
