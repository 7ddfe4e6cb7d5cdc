// Package sqlite implements the order tracker's persistent store on an
// embedded SQLite database: the tab registry and per-tab tables, the column
// settings table, and row CRUD against the tab tables.
//
// One Backend is attached per process and shared by every component. Each
// method runs its statements directly against the database, so a single
// statement commits immediately; operations that must be all-or-nothing
// (creating or dropping a tab, replacing a tab's settings) run inside
// runInTransaction.
//
// Table and column names cannot be bound as SQL parameters. Every
// identifier that reaches SQL text is first checked against the allow-list
// in pkg/types and then resolved against the registry or the table's own
// column list, and is always double-quoted. Values are always bound.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// dbConn abstracts *sql.DB and *sql.Tx for query execution.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// attachState is shared between a Backend and its transaction-bound copies.
type attachState struct {
	mu       sync.RWMutex
	attached bool
}

// Backend implements types.Store on SQLite.
type Backend struct {
	state  *attachState
	db     *sql.DB // original connection, used for BeginTx
	conn   dbConn  // active connection (db or tx)
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock replaces time.Now as the source of Created_At and Last_Updated.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		state:  &attachState{},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "store")
	return b
}

// Attach creates DataDir if it does not exist, opens (or creates) the
// database file inside it and ensures the registry and settings tables
// exist. A directory or open failure wraps ErrStorageIO.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return storageErr("create application directory", err)
	}

	path := filepath.Join(config.DataDir, config.DatabaseFile())
	db, err := sql.Open(driverName, dsn(path, [][2]string{{"foreign_keys", "1"}, {"busy_timeout", "5000"}}))
	if err != nil {
		return storageErr("open database", err)
	}
	if err := b.attachDB(ctx, db, path); err != nil {
		db.Close()
		return err
	}
	return nil
}

// attachDB installs an already opened handle and bootstraps the schema.
func (b *Backend) attachDB(ctx context.Context, db *sql.DB, path string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	if b.state.attached {
		return fmt.Errorf("%w: backend is already attached", types.ErrInvalidConfig)
	}

	// database/sql pools connections; a single one keeps every statement on
	// the same SQLite connection, which is the only writer in the process.
	db.SetMaxOpenConns(1)

	if err := bootstrap(ctx, db); err != nil {
		return err
	}

	b.db = db
	b.conn = db
	b.path = path
	b.state.attached = true
	b.logger.Info("opened database", "path", path)
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	if !b.state.attached {
		return nil
	}
	b.state.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return storageErr("close database", err)
		}
		b.db = nil
	}
	b.logger.Info("closed database", "path", b.path)
	return nil
}

// Path returns the database file path, empty before Attach.
func (b *Backend) Path() string {
	return b.path
}

// checkAttached returns ErrStoreClosed once the backend is detached.
func (b *Backend) checkAttached() error {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	if !b.state.attached {
		return types.ErrStoreClosed
	}
	return nil
}

// runInTransaction runs fn against a copy of the backend bound to a new
// transaction. A nil return commits; an error or panic rolls back.
func (b *Backend) runInTransaction(ctx context.Context, fn func(tx *Backend) error) (err error) {
	if _, inTx := b.conn.(*sql.Tx); inTx {
		return fn(b)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}

	txBackend := *b
	txBackend.conn = tx

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				b.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(&txBackend); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// storageErr wraps a driver or filesystem failure as ErrStorageIO, keeping
// the cause reachable through errors.Is and errors.As.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStorageIO, err)
}

// timestamp returns the current time in the stored layout.
func (b *Backend) timestamp() string {
	return types.FormatTimestamp(b.now())
}
