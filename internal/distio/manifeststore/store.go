// Package manifeststore holds the current manifest for every profile behind
// a concurrent map, so readers never block on a rescan in progress.
package manifeststore

import (
	"sync"
	"time"

	"github.com/lighty-launcher/distserver/internal/distio/manifest"
)

// Store is a concurrent map profile name → current manifest, plus the
// RFC-3339 timestamp of its last commit. Commits are whole-manifest
// replacements; readers always see a complete manifest with a URL index
// matching its entries.
type Store struct {
	mu          sync.RWMutex
	manifests   map[string]*manifest.Manifest
	lastUpdated map[string]string
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		manifests:   make(map[string]*manifest.Manifest),
		lastUpdated: make(map[string]string),
	}
}

// Get returns the current manifest for profile, or nil if none has been
// committed yet.
func (s *Store) Get(profile string) *manifest.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifests[profile]
}

// LastUpdated returns the RFC-3339 timestamp of the last commit for
// profile, or "" if none.
func (s *Store) LastUpdated(profile string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated[profile]
}

// Commit replaces the manifest for profile and stamps the current time.
func (s *Store) Commit(profile string, m *manifest.Manifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[profile] = m
	s.lastUpdated[profile] = time.Now().UTC().Format(time.RFC3339)
}

// Profiles returns the names of every profile with a committed manifest.
func (s *Store) Profiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		out = append(out, name)
	}
	return out
}

// Delete removes profile's manifest and timestamp entirely. Not called by
// the hot-reload controller today — profile removal does not evict (see
// the config reload controller's documented open question) — but kept for
// callers (e.g. admin tooling, shutdown) that need an explicit eviction.
func (s *Store) Delete(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manifests, profile)
	delete(s.lastUpdated, profile)
}
