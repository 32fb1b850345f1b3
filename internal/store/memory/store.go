// Package memory stores content in-memory for development and tests.
package memory

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/serpmax/content-api/internal/store"
)

type object struct {
	data  []byte
	token string
}

// Store keeps objects in a map with monotonically increasing version tokens.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	seq     int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// Stat returns the version token for path.
func (s *Store) Stat(_ context.Context, p string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[p]
	if !ok {
		return "", store.ErrNotFound
	}
	return obj.token, nil
}

// Write stores the full content, enforcing the token precondition.
func (s *Store) Write(_ context.Context, p string, data []byte, expectedToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.objects[p]
	if expectedToken == "" && exists {
		return "", store.ErrConflict
	}
	if expectedToken != "" && (!exists || cur.token != expectedToken) {
		return "", store.ErrConflict
	}

	s.seq++
	token := strconv.FormatInt(s.seq, 10)
	s.objects[p] = object{data: append([]byte(nil), data...), token: token}
	return token, nil
}

// List returns the names of objects directly under dir.
func (s *Store) List(_ context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := strings.TrimSuffix(dir, "/") + "/"
	var names []string
	for p := range s.objects {
		if strings.HasPrefix(p, prefix) {
			names = append(names, path.Base(p))
		}
	}
	return names, nil
}

// Get returns the stored content for path. Test helper.
func (s *Store) Get(p string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[p]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// SetToken overwrites the version token for path without changing content.
// Test helper for simulating a concurrent modification between the read and
// write steps of an upsert.
func (s *Store) SetToken(p, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[p]; ok {
		obj.token = token
		s.objects[p] = obj
	}
}
