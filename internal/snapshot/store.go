// Package snapshot persists whole-store snapshots under a name. Every write
// replaces the previous snapshot for that name.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

var ErrNotFound = errors.New("snapshot not found")

type Store interface {
	// Load returns ErrNotFound when nothing was saved under name yet.
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Ping(ctx context.Context) error
}

// LoadJSON decodes the snapshot into v. found is false for a missing snapshot,
// in which case v is left untouched.
func LoadJSON(ctx context.Context, s Store, name string, v any) (found bool, err error) {
	data, err := s.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return true, nil
}

func SaveJSON(ctx context.Context, s Store, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", name, err)
	}
	if err := s.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
