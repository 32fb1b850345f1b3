// Package gcs implements the content store on Google Cloud Storage. The
// version token is the object generation; writes carry a GenerationMatch or
// DoesNotExist precondition so a concurrent modification fails with 412
// rather than silently overwriting.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/serpmax/content-api/internal/store"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// Store reads and writes content documents in a configured GCS bucket.
type Store struct {
	client *gstorage.Client
	bucket string
}

// New creates a GCS-backed content store.
func New(client *gstorage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Stat returns the object generation at p as an opaque token.
func (s *Store) Stat(ctx context.Context, p string) (string, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(p).Attrs(ctx)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("object attrs %s: %w", p, err)
	}
	return strconv.FormatInt(attrs.Generation, 10), nil
}

// Write uploads the full content to p. A non-empty expectedToken becomes a
// GenerationMatch precondition; an empty token a DoesNotExist precondition.
func (s *Store) Write(ctx context.Context, p string, data []byte, expectedToken string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(p)
	if expectedToken == "" {
		obj = obj.If(gstorage.Conditions{DoesNotExist: true})
	} else {
		gen, err := strconv.ParseInt(expectedToken, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid version token %q: %w", expectedToken, err)
		}
		obj = obj.If(gstorage.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "text/markdown; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil && isPreconditionFailure(closeErr) {
			return "", store.ErrConflict
		}
		return "", fmt.Errorf("write object %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailure(err) {
			return "", store.ErrConflict
		}
		return "", fmt.Errorf("close writer for %s: %w", p, err)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

// List returns the names of objects directly under dir.
func (s *Store) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	it := s.client.Bucket(s.bucket).Objects(ctx, &gstorage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		// Skip anything nested deeper than the content directory itself.
		if strings.Contains(strings.TrimPrefix(attrs.Name, prefix), "/") {
			continue
		}
		names = append(names, path.Base(attrs.Name))
	}
}

func isPreconditionFailure(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
