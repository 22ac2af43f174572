package menu

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"Restaurant/internal/snapshot"
)

// SnapshotName is the key the menu is persisted under.
const SnapshotName = "menu"

var (
	ErrNotFound  = errors.New("dish not found")
	ErrMissingID = errors.New("dish id required")
)

// Store is the in-memory menu. Every mutation rewrites the whole snapshot
// while still holding the write lock, so snapshots are written in mutation order.
type Store struct {
	mu   sync.RWMutex
	m    map[string]Dish
	snap snapshot.Store
	log  *zap.Logger
}

// Open loads the menu snapshot; a missing snapshot yields an empty menu.
func Open(ctx context.Context, snap snapshot.Store, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	m := map[string]Dish{}
	if _, err := snapshot.LoadJSON(ctx, snap, SnapshotName, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]Dish{}
	}
	for id, d := range m {
		d.ID = id
		m[id] = d
	}

	log.Info("menu loaded", zap.Int("dishes", len(m)))
	return &Store{m: m, snap: snap, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.snap.Ping(ctx)
}

// Upsert inserts d or fully replaces the dish stored under d.ID.
func (s *Store) Upsert(ctx context.Context, d Dish) (Dish, error) {
	if d.ID == "" {
		return Dish{}, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.m[d.ID]
	s.m[d.ID] = d.Clone()
	s.log.Info("dish stored", zap.String("dish_id", d.ID), zap.Bool("replaced", replaced))

	return d.Clone(), s.persistLocked(ctx)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return ErrNotFound
	}
	delete(s.m, id)
	s.log.Info("dish removed", zap.String("dish_id", id))

	return s.persistLocked(ctx)
}

// ToggleAvailability flips the dish's available flag and returns the result.
func (s *Store) ToggleAvailability(ctx context.Context, id string) (Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.m[id]
	if !ok {
		return Dish{}, ErrNotFound
	}
	d.Available = !d.Available
	s.m[id] = d
	s.log.Info("dish availability toggled", zap.String("dish_id", id), zap.Bool("available", d.Available))

	return d.Clone(), s.persistLocked(ctx)
}

// Get returns a copy of the dish, so callers may keep it past later edits.
func (s *Store) Get(ctx context.Context, id string) (Dish, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.m[id]
	if !ok {
		return Dish{}, false, nil
	}
	return d.Clone(), true, nil
}

func (s *Store) List(ctx context.Context) (map[string]Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Dish, len(s.m))
	for id, d := range s.m {
		out[id] = d.Clone()
	}
	return out, nil
}

// Flush writes the current menu even when nothing changed.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := snapshot.SaveJSON(ctx, s.snap, SnapshotName, s.m); err != nil {
		s.log.Error("menu snapshot failed", zap.Error(err))
		return err
	}
	return nil
}
