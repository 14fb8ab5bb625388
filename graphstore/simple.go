package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the graph capability behind graph and hybrid collections.
type Store interface {
	// UpsertTriplets adds triplets, skipping exact duplicates.
	UpsertTriplets(ctx context.Context, triplets []Triplet) error
	// Get returns all triplets with the given subject.
	Get(ctx context.Context, subject string) ([]Triplet, error)
	// All returns every triplet in the store.
	All(ctx context.Context) ([]Triplet, error)
	// Delete removes one triplet; absent triplets are a no-op.
	Delete(ctx context.Context, subject, relation, object string) error
	// Count returns the number of stored triplets.
	Count(ctx context.Context) (int, error)
}

// SimpleStore is an in-memory triplet store guarded by a mutex. With a
// persist path every mutation is flushed to one JSON file.
type SimpleStore struct {
	mu          sync.RWMutex
	bySubject   map[string][]Triplet
	seen        map[string]bool
	persistPath string
}

// SimpleStoreOption configures a SimpleStore.
type SimpleStoreOption func(*SimpleStore)

// WithPersistPath makes the store durable at the given JSON file.
func WithPersistPath(path string) SimpleStoreOption {
	return func(s *SimpleStore) { s.persistPath = path }
}

// NewSimpleStore creates a store. With a persist path the existing file,
// if any, is loaded first.
func NewSimpleStore(opts ...SimpleStoreOption) (*SimpleStore, error) {
	s := &SimpleStore{
		bySubject: make(map[string][]Triplet),
		seen:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.persistPath != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type persistedGraph struct {
	Triplets []Triplet `json:"triplets"`
}

func (s *SimpleStore) load() error {
	raw, err := os.ReadFile(s.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load graph store: %w", err)
	}
	var data persistedGraph
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse graph store %s: %w", s.persistPath, err)
	}
	for _, t := range data.Triplets {
		s.bySubject[t.Subject] = append(s.bySubject[t.Subject], t)
		s.seen[t.Key()] = true
	}
	return nil
}

// persist writes the full graph; callers hold the write lock.
func (s *SimpleStore) persist() error {
	if s.persistPath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(persistedGraph{Triplets: s.allLocked()}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.persistPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.persistPath, raw, 0o644)
}

func (s *SimpleStore) allLocked() []Triplet {
	subjects := make([]string, 0, len(s.bySubject))
	for subj := range s.bySubject {
		subjects = append(subjects, subj)
	}
	sort.Strings(subjects)

	var out []Triplet
	for _, subj := range subjects {
		out = append(out, s.bySubject[subj]...)
	}
	return out
}

func (s *SimpleStore) UpsertTriplets(ctx context.Context, triplets []Triplet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, t := range triplets {
		if s.seen[t.Key()] {
			continue
		}
		s.seen[t.Key()] = true
		s.bySubject[t.Subject] = append(s.bySubject[t.Subject], t)
		changed = true
	}
	if !changed {
		return nil
	}
	return s.persist()
}

func (s *SimpleStore) Get(ctx context.Context, subject string) ([]Triplet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	triplets := s.bySubject[subject]
	out := make([]Triplet, len(triplets))
	copy(out, triplets)
	return out, nil
}

func (s *SimpleStore) All(ctx context.Context) ([]Triplet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked(), nil
}

func (s *SimpleStore) Delete(ctx context.Context, subject, relation, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	triplets, ok := s.bySubject[subject]
	if !ok {
		return nil
	}
	kept := triplets[:0]
	removed := false
	for _, t := range triplets {
		if t.Relation == relation && t.Object == object {
			delete(s.seen, t.Key())
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		return nil
	}
	if len(kept) == 0 {
		delete(s.bySubject, subject)
	} else {
		s.bySubject[subject] = kept
	}
	return s.persist()
}

func (s *SimpleStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen), nil
}

var _ Store = (*SimpleStore)(nil)

// Manager maps collection names to graph stores; creation is get-or-create
// atomic under one mutex.
type Manager struct {
	mu         sync.Mutex
	stores     map[string]*SimpleStore
	persistDir string
}

// NewManager creates a manager. With a persist dir each collection's graph
// lives at <dir>/<collection>.json; without one, graphs are memory-only.
func NewManager(persistDir string) *Manager {
	return &Manager{
		stores:     make(map[string]*SimpleStore),
		persistDir: persistDir,
	}
}

// Get returns the store for the collection, creating it on first use.
func (m *Manager) Get(collection string) (*SimpleStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[collection]; ok {
		return store, nil
	}
	var opts []SimpleStoreOption
	if m.persistDir != "" {
		opts = append(opts, WithPersistPath(filepath.Join(m.persistDir, collection+".json")))
	}
	store, err := NewSimpleStore(opts...)
	if err != nil {
		return nil, err
	}
	m.stores[collection] = store
	return store, nil
}

// Has reports whether a store exists for the collection, in memory or on
// disk.
func (m *Manager) Has(collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[collection]; ok {
		return true
	}
	if m.persistDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(m.persistDir, collection+".json"))
	return err == nil
}

// Drop removes the collection's store and its persisted file. Idempotent.
func (m *Manager) Drop(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, collection)
	if m.persistDir == "" {
		return nil
	}
	err := os.Remove(filepath.Join(m.persistDir, collection+".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Collections lists the in-memory collection names, sorted.
func (m *Manager) Collections() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
