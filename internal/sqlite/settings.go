package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Setting returns the input configuration of one column of tab. Columns
// without a stored row, and rows with an unrecognised input_type, are free
// text. When several rows exist for the same column the first one wins.
func (b *Backend) Setting(ctx context.Context, tab, column string) (types.ColumnSetting, error) {
	if err := b.checkAttached(); err != nil {
		return types.FreeText, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return types.FreeText, err
	}

	var kind, options sql.NullString
	err = b.conn.QueryRowContext(ctx,
		"SELECT input_type, options FROM column_settings WHERE tab = ? AND column_name = ? COLLATE NOCASE LIMIT 1",
		canonical, column,
	).Scan(&kind, &options)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FreeText, nil
	}
	if err != nil {
		return types.FreeText, storageErr("read column setting", err)
	}
	return decodeSetting(kind, options), nil
}

// Settings returns every stored column setting of tab keyed by column name.
func (b *Backend) Settings(ctx context.Context, tab string) (map[string]types.ColumnSetting, error) {
	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	canonical, err := b.resolveTab(ctx, tab)
	if err != nil {
		return nil, err
	}

	rows, err := b.conn.QueryContext(ctx,
		"SELECT column_name, input_type, options FROM column_settings WHERE tab = ? ORDER BY rowid",
		canonical,
	)
	if err != nil {
		return nil, storageErr("read column settings", err)
	}
	defer rows.Close()

	settings := make(map[string]types.ColumnSetting)
	for rows.Next() {
		var column, kind, options sql.NullString
		if err := rows.Scan(&column, &kind, &options); err != nil {
			return nil, storageErr("scan column setting", err)
		}
		if !column.Valid {
			continue
		}
		if _, seen := settings[column.String]; seen {
			continue
		}
		settings[column.String] = decodeSetting(kind, options)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read column settings", err)
	}
	return settings, nil
}

// ReplaceSettings clears the stored settings of tab and writes one row per
// entry of settings, in the tab's column order, within one transaction.
// Every key must name a user column of tab.
func (b *Backend) ReplaceSettings(ctx context.Context, tab string, settings map[string]types.ColumnSetting) error {
	if err := b.checkAttached(); err != nil {
		return err
	}

	var canonical string
	err := b.runInTransaction(ctx, func(tx *Backend) error {
		var err error
		canonical, err = tx.resolveTab(ctx, tab)
		if err != nil {
			return err
		}
		columns, err := tx.tableColumns(ctx, canonical)
		if err != nil {
			return err
		}
		userColumns := types.UserColumns(columns)

		byColumn := make(map[string]types.ColumnSetting, len(settings))
		for name, s := range settings {
			col, ok := resolveColumn(userColumns, name)
			if !ok {
				return fmt.Errorf("%w: %q is not an editable column of tab %q", types.ErrInvalidColumn, name, canonical)
			}
			byColumn[col] = s
		}

		if _, err := tx.conn.ExecContext(ctx, "DELETE FROM column_settings WHERE tab = ?", canonical); err != nil {
			return storageErr("clear column settings", err)
		}
		for _, col := range userColumns {
			s, ok := byColumn[col]
			if !ok {
				continue
			}
			if _, err := tx.conn.ExecContext(ctx,
				"INSERT INTO column_settings (tab, column_name, input_type, options) VALUES (?, ?, ?, ?)",
				canonical, col, string(s.Kind), s.EncodeOptions(),
			); err != nil {
				return storageErr("write column setting", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("replaced column settings", "tab", canonical, "columns", len(settings))
	return nil
}

// decodeSetting converts a stored row to a ColumnSetting.
func decodeSetting(kind, options sql.NullString) types.ColumnSetting {
	k, err := types.ParseInputKind(kind.String)
	if err != nil || k != types.InputDropdown {
		return types.FreeText
	}
	return types.ColumnSetting{Kind: types.InputDropdown, Choices: types.ParseChoices(options.String)}
}
