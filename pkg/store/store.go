// Package store persists memory graph snapshots.
//
// The engine itself never performs I/O: it consumes immutable snapshots the
// caller fetched from somewhere. This package is that somewhere - the remote
// store the upstream data provider refreshes snapshots from. Two backends
// are provided: a Mongo-backed store for deployments and an in-memory store
// for the CLI and tests.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/memlens/memlens/pkg/graph"
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Store persists and retrieves graph snapshots by ID.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the snapshot with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*graph.Snapshot, error)

	// Put stores a snapshot, assigning a fresh UUID when the snapshot has
	// no ID, and returns the ID under which it was stored. An existing
	// snapshot with the same ID is replaced.
	Put(ctx context.Context, s *graph.Snapshot) (string, error)

	// List returns all stored snapshot IDs in unspecified order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a snapshot. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore keeps snapshots in a map. Intended for tests and the CLI.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*graph.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*graph.Snapshot)}
}

// Get returns the snapshot with the given ID, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*graph.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snap, nil
}

// Put stores a snapshot, assigning a UUID when it has no ID.
func (s *MemoryStore) Put(ctx context.Context, snap *graph.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.snapshots[snap.ID] = snap
	s.mu.Unlock()
	return snap.ID, nil
}

// List returns all stored snapshot IDs.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes a snapshot.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.snapshots, id)
	s.mu.Unlock()
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
