package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// CreateTab creates the tab table and its registry entry in one transaction.
func (b *Backend) CreateTab(ctx context.Context, name string, columns []string) error {
	if err := b.checkAttached(); err != nil {
		return err
	}
	if err := types.ValidateTabName(name); err != nil {
		return err
	}
	if err := types.ValidateColumns(columns); err != nil {
		return err
	}

	err := b.runInTransaction(ctx, func(tx *Backend) error {
		if _, err := tx.resolveTab(ctx, name); err == nil {
			return fmt.Errorf("%w: tab %q already exists", types.ErrDuplicateName, name)
		} else if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		exists, err := tx.tableExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: a table named %q already exists", types.ErrDuplicateName, name)
		}

		if _, err := tx.conn.ExecContext(ctx, createTabSQL(name, columns)); err != nil {
			return storageErr("create tab table", err)
		}
		if _, err := tx.conn.ExecContext(ctx, "INSERT INTO tabs (name) VALUES (?)", name); err != nil {
			return storageErr("register tab", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("created tab", "tab", name, "columns", columns)
	return nil
}

// DeleteTab drops the tab table, its registry entry and its column settings
// in one transaction. A registered tab whose table is already gone is still
// removed from the registry.
func (b *Backend) DeleteTab(ctx context.Context, name string) error {
	if err := b.checkAttached(); err != nil {
		return err
	}

	var canonical string
	err := b.runInTransaction(ctx, func(tx *Backend) error {
		var err error
		canonical, err = tx.resolveTab(ctx, name)
		if err != nil {
			return err
		}
		if _, err := tx.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+types.QuoteIdentifier(canonical)); err != nil {
			return storageErr("drop tab table", err)
		}
		if _, err := tx.conn.ExecContext(ctx, "DELETE FROM tabs WHERE name = ?", canonical); err != nil {
			return storageErr("unregister tab", err)
		}
		if _, err := tx.conn.ExecContext(ctx, "DELETE FROM column_settings WHERE tab = ?", canonical); err != nil {
			return storageErr("delete column settings", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("deleted tab", "tab", canonical)
	return nil
}

// ListTabs returns the registered tab names in ascending order.
func (b *Backend) ListTabs(ctx context.Context) ([]string, error) {
	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	rows, err := b.conn.QueryContext(ctx, "SELECT name FROM tabs ORDER BY name ASC")
	if err != nil {
		return nil, storageErr("list tabs", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan tab name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list tabs", err)
	}
	return names, nil
}

// Columns returns the physical columns of tab in table order.
func (b *Backend) Columns(ctx context.Context, tab string) ([]string, error) {
	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return nil, err
	}
	return b.tableColumns(ctx, canonical)
}

// UserColumns returns the columns of tab that users may fill in and edit.
func (b *Backend) UserColumns(ctx context.Context, tab string) ([]string, error) {
	cols, err := b.Columns(ctx, tab)
	if err != nil {
		return nil, err
	}
	return types.UserColumns(cols), nil
}

// resolveTab maps name to the registered tab name. Lookup ignores case, as
// SQLite does for the table itself. Names that are not valid identifiers
// can never be registered and report ErrNotFound without touching SQL.
func (b *Backend) resolveTab(ctx context.Context, name string) (string, error) {
	if err := types.ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("%w: tab %q", types.ErrNotFound, name)
	}

	var canonical string
	err := b.conn.QueryRowContext(ctx,
		"SELECT name FROM tabs WHERE name = ? COLLATE NOCASE ORDER BY name LIMIT 1", name,
	).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: tab %q", types.ErrNotFound, name)
	}
	if err != nil {
		return "", storageErr("look up tab", err)
	}
	return canonical, nil
}

// tableExists reports whether any table with the given name exists.
func (b *Backend) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := b.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name,
	).Scan(&n)
	if err != nil {
		return false, storageErr("check table", err)
	}
	return n > 0, nil
}

// tableColumns reads the column list of a resolved tab table.
func (b *Backend) tableColumns(ctx context.Context, tab string) ([]string, error) {
	rows, err := b.conn.QueryContext(ctx, "PRAGMA table_info("+types.QuoteIdentifier(tab)+")")
	if err != nil {
		return nil, storageErr("read table columns", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, storageErr("scan table column", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read table columns", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table for tab %q is missing", types.ErrNotFound, tab)
	}
	return columns, nil
}

// resolveColumn maps column to its name in columns, ignoring case.
func resolveColumn(columns []string, column string) (string, bool) {
	for _, c := range columns {
		if strings.EqualFold(c, column) {
			return c, true
		}
	}
	return "", false
}
