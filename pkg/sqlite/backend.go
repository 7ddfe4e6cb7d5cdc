// Package sqlite provides the public API for the SQLite order store.
// This package exposes the factory functions for creating backends while
// keeping implementation details internal.
package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/ordertracker/internal/sqlite"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Option configures a backend created by NewBackend or Open.
type Option = sqlite.Option

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) Option {
	return sqlite.WithLogger(logger)
}

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return sqlite.WithClock(now)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(ctx, types.Config{DataDir: dir})
//	defer backend.Detach()
func NewBackend(opts ...Option) *sqlite.Backend {
	return sqlite.NewBackend(opts...)
}

// Open creates a backend and attaches it to cfg in one step.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (types.Store, error) {
	b := sqlite.NewBackend(opts...)
	if err := b.Attach(ctx, cfg); err != nil {
		return nil, err
	}
	return b, nil
}
