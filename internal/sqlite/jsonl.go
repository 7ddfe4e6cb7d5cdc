package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// ExportTab writes every row of tab to path as JSON Lines, one object per
// row keyed by column name, reserved columns included. NULL fields are
// written as null. The file is replaced atomically.
func (b *Backend) ExportTab(ctx context.Context, tab, path string) (int, error) {
	grid, err := b.Load(ctx, tab)
	if err != nil {
		return 0, err
	}

	records := make([]json.RawMessage, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		obj := make(map[string]*string, len(grid.Columns))
		for i, col := range grid.Columns {
			if row.Values[i].Valid {
				s := row.Values[i].String
				obj[col] = &s
			} else {
				obj[col] = nil
			}
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return 0, fmt.Errorf("encoding row %d: %w", row.ID, err)
		}
		records = append(records, data)
	}

	if err := writeJSONL(path, records); err != nil {
		return 0, storageErr("export tab", err)
	}
	b.logger.Info("exported tab", "tab", grid.Tab, "rows", len(records), "path", path)
	return len(records), nil
}

// ImportTab appends the rows in a JSON Lines file to tab. Reserved columns
// in the file are ignored: imported rows get fresh IDs and timestamps.
// Every record is checked before the first insert, so an unknown column
// aborts the import without adding anything. Each row then commits on its
// own.
func (b *Backend) ImportTab(ctx context.Context, tab, path string) (int, error) {
	columns, err := b.UserColumns(ctx, tab)
	if err != nil {
		return 0, err
	}

	records, err := readJSONL(path)
	if err != nil {
		return 0, storageErr("import tab", err)
	}

	rows := make([][]types.Value, 0, len(records))
	for n, rec := range records {
		values, err := recordValues(rec, columns)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", n+1, err)
		}
		rows = append(rows, values)
	}

	for n, values := range rows {
		if _, err := b.AddRow(ctx, tab, values); err != nil {
			return n, fmt.Errorf("record %d: %w", n+1, err)
		}
	}
	b.logger.Info("imported rows", "tab", tab, "rows", len(rows), "path", path)
	return len(rows), nil
}

// recordValues aligns one JSON object with the user columns.
func recordValues(rec json.RawMessage, columns []string) ([]types.Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(rec, &obj); err != nil {
		return nil, fmt.Errorf("%w: record is not a JSON object: %w", types.ErrSchema, err)
	}

	values := make([]types.Value, len(columns))
	seen := make([]string, len(columns))
	for key, raw := range obj {
		if types.IsReservedColumn(key) {
			continue
		}
		col, ok := resolveColumn(columns, key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", types.ErrInvalidColumn, key)
		}
		idx := 0
		for i, c := range columns {
			if c == col {
				idx = i
				break
			}
		}
		if seen[idx] != "" {
			return nil, fmt.Errorf("%w: keys %q and %q both name column %q",
				types.ErrDuplicateName, seen[idx], key, col)
		}
		seen[idx] = key
		values[idx] = jsonValue(raw)
	}
	return values, nil
}

// jsonValue stores strings as-is, null as NULL and any other JSON value as
// its compact text.
func jsonValue(raw json.RawMessage) types.Value {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return types.Null
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return types.Text(s)
	}
	return types.Text(strings.TrimSpace(string(trimmed)))
}

// readJSONL reads a JSONL file and returns each non-empty line as a
// json.RawMessage. Blank lines are skipped; a malformed line is an error
// because silently dropping an order row would lose data.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s:%d: malformed JSON", path, line)
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
