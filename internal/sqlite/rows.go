package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// AddRow appends a row to tab. values is aligned with the tab's user
// columns; a shorter slice leaves the remaining columns NULL. Created_At and
// Last_Updated are both set to the current time. Dropdown settings are not
// enforced here: restricting entry is the input surface's job.
func (b *Backend) AddRow(ctx context.Context, tab string, values []types.Value) (int64, error) {
	if err := b.checkAttached(); err != nil {
		return 0, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrSchema, err)
	}
	columns, err := b.tableColumns(ctx, canonical)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrSchema, err)
	}
	userColumns := types.UserColumns(columns)
	if len(values) > len(userColumns) {
		return 0, fmt.Errorf("%w: %d values for %d columns of tab %q",
			types.ErrSchema, len(values), len(userColumns), canonical)
	}

	now := b.timestamp()
	args := make([]any, 0, len(userColumns)+2)
	for i := range userColumns {
		v := types.Null
		if i < len(values) {
			v = values[i]
		}
		args = append(args, v)
	}
	args = append(args, now, now)

	res, err := b.conn.ExecContext(ctx, insertRowSQL(canonical, userColumns), args...)
	if err != nil {
		return 0, storageErr("insert row", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read row id", err)
	}

	b.logger.Debug("added row", "tab", canonical, "id", id)
	return id, nil
}

// EditField sets column of row id to value and refreshes Last_Updated.
// The column must be a user column of tab.
func (b *Backend) EditField(ctx context.Context, tab string, id int64, column string, value types.Value) error {
	if err := b.checkAttached(); err != nil {
		return err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return err
	}
	columns, err := b.tableColumns(ctx, canonical)
	if err != nil {
		return err
	}
	col, ok := resolveColumn(types.UserColumns(columns), column)
	if !ok {
		return fmt.Errorf("%w: %q is not an editable column of tab %q", types.ErrInvalidColumn, column, canonical)
	}

	query := "UPDATE " + types.QuoteIdentifier(canonical) +
		" SET " + types.QuoteIdentifier(col) + " = ?, " + types.QuoteIdentifier(types.ColumnLastUpdated) + " = ?" +
		" WHERE " + types.QuoteIdentifier(types.ColumnID) + " = ?"
	res, err := b.conn.ExecContext(ctx, query, value, b.timestamp(), id)
	if err != nil {
		return storageErr("update field", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("update field", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: row %d in tab %q", types.ErrNotFound, id, canonical)
	}

	b.logger.Debug("edited field", "tab", canonical, "id", id, "column", col)
	return nil
}

// DeleteRow removes row id from tab. Deleting a row that does not exist
// succeeds so that repeated deletes are harmless; an unknown tab is still
// ErrNotFound.
func (b *Backend) DeleteRow(ctx context.Context, tab string, id int64) error {
	if err := b.checkAttached(); err != nil {
		return err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return err
	}

	query := "DELETE FROM " + types.QuoteIdentifier(canonical) + " WHERE " + types.QuoteIdentifier(types.ColumnID) + " = ?"
	res, err := b.conn.ExecContext(ctx, query, id)
	if err != nil {
		return storageErr("delete row", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		b.logger.Debug("row already absent", "tab", canonical, "id", id)
		return nil
	}

	b.logger.Debug("deleted row", "tab", canonical, "id", id)
	return nil
}

// GetRow returns a grid holding the single row id.
func (b *Backend) GetRow(ctx context.Context, tab string, id int64) (*types.Grid, error) {
	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + types.QuoteIdentifier(canonical) + " WHERE " + types.QuoteIdentifier(types.ColumnID) + " = ?"
	grid, err := b.queryGrid(ctx, canonical, query, id)
	if err != nil {
		return nil, err
	}
	if len(grid.Rows) == 0 {
		return nil, fmt.Errorf("%w: row %d in tab %q", types.ErrNotFound, id, canonical)
	}
	return grid, nil
}

// Load returns all rows of tab in ID order.
func (b *Backend) Load(ctx context.Context, tab string) (*types.Grid, error) {
	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + types.QuoteIdentifier(canonical) + " ORDER BY " + types.QuoteIdentifier(types.ColumnID)
	return b.queryGrid(ctx, canonical, query)
}

// queryGrid runs a SELECT * query and scans every column as text.
func (b *Backend) queryGrid(ctx context.Context, tab, query string, args ...any) (*types.Grid, error) {
	rows, err := b.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("load rows", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, storageErr("load rows", err)
	}
	idIndex := -1
	for i, c := range columns {
		if c == types.ColumnID {
			idIndex = i
			break
		}
	}
	if idIndex < 0 {
		return nil, fmt.Errorf("%w: tab %q has no %s column", types.ErrSchema, tab, types.ColumnID)
	}

	grid := &types.Grid{Tab: tab, Columns: columns, Rows: []types.Row{}}
	for rows.Next() {
		values := make([]types.Value, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storageErr("scan row", err)
		}
		id, err := parseID(values[idIndex])
		if err != nil {
			return nil, fmt.Errorf("%w: tab %q: %w", types.ErrSchema, tab, err)
		}
		grid.Rows = append(grid.Rows, types.Row{ID: id, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load rows", err)
	}
	return grid, nil
}

var errBadID = errors.New("row id is not an integer")

func parseID(v sql.NullString) (int64, error) {
	if !v.Valid {
		return 0, errBadID
	}
	id, err := strconv.ParseInt(v.String, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadID, v.String)
	}
	return id, nil
}
