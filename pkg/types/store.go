package types

import "context"

// TabRegistry creates, lists and drops tabs.
type TabRegistry interface {
	// CreateTab creates the physical table for name with the given user
	// columns and registers it. Returns ErrDuplicateName when the tab
	// exists and ErrSchema when name or columns break the identifier rules.
	CreateTab(ctx context.Context, name string, columns []string) error

	// DeleteTab drops the tab's table, its registry entry and all of its
	// column settings. Returns ErrNotFound for an unknown tab.
	DeleteTab(ctx context.Context, name string) error

	// ListTabs returns the tab names in ascending order.
	ListTabs(ctx context.Context) ([]string, error)

	// Columns returns the physical columns of tab, reserved ones included.
	// Returns ErrNotFound for an unknown tab.
	Columns(ctx context.Context, tab string) ([]string, error)

	// UserColumns returns the editable columns of tab.
	UserColumns(ctx context.Context, tab string) ([]string, error)
}

// ColumnSettings stores per-column input configuration.
type ColumnSettings interface {
	// Setting returns the configuration of one column; FreeText when none
	// is stored.
	Setting(ctx context.Context, tab, column string) (ColumnSetting, error)

	// Settings returns the stored configuration of every configured column
	// of tab.
	Settings(ctx context.Context, tab string) (map[string]ColumnSetting, error)

	// ReplaceSettings clears every stored setting of tab and writes the
	// given mapping in one transaction.
	ReplaceSettings(ctx context.Context, tab string, settings map[string]ColumnSetting) error
}

// RowStore mutates and reads the rows of a tab.
type RowStore interface {
	// AddRow appends a row. values is aligned with UserColumns(tab); missing
	// trailing values are stored as NULL. Returns the new row ID.
	AddRow(ctx context.Context, tab string, values []Value) (int64, error)

	// EditField sets one user column of a row and refreshes Last_Updated.
	EditField(ctx context.Context, tab string, id int64, column string, value Value) error

	// DeleteRow removes a row. Deleting an absent row is not an error.
	DeleteRow(ctx context.Context, tab string, id int64) error

	// GetRow returns a single row with the tab's display columns.
	GetRow(ctx context.Context, tab string, id int64) (*Grid, error)

	// Load returns every row of tab in ID order.
	Load(ctx context.Context, tab string) (*Grid, error)
}

// TabTransfer moves rows between a tab and JSON Lines files.
type TabTransfer interface {
	// ExportTab writes every row of tab to path and returns the row count.
	ExportTab(ctx context.Context, tab, path string) (int, error)

	// ImportTab appends the rows stored at path to tab and returns how many
	// were added.
	ImportTab(ctx context.Context, tab, path string) (int, error)
}

// Store is the process-wide persistent store.
type Store interface {
	TabRegistry
	ColumnSettings
	RowStore
	TabTransfer

	// Detach releases the database handle. Detach is idempotent; after it
	// every operation returns ErrStoreClosed.
	Detach() error
}
