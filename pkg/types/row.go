package types

import (
	"database/sql"
	"strings"
	"time"
)

// TimestampLayout is the stored format of Created_At and Last_Updated.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in TimestampLayout with second precision.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Value is one stored field. Valid is false for NULL.
type Value = sql.NullString

// Text returns a non-null Value.
func Text(s string) Value {
	return Value{String: s, Valid: true}
}

// Null is the missing value.
var Null = Value{}

// Row is one record of a tab. Values is aligned with the Columns of the Grid
// the row belongs to, reserved columns included.
type Row struct {
	ID     int64
	Values []Value
}

// Grid is a snapshot of a tab: its display columns and rows.
type Grid struct {
	Tab     string
	Columns []string
	Rows    []Row
}

// ColumnIndex returns the position of column in g.Columns, matched
// case-insensitively, or -1.
func (g *Grid) ColumnIndex(column string) int {
	return columnIndex(g.Columns, column)
}

// Field returns the value of column in row r, or Null when the grid has no
// such column.
func (g *Grid) Field(r Row, column string) Value {
	i := g.ColumnIndex(column)
	if i < 0 || i >= len(r.Values) {
		return Null
	}
	return r.Values[i]
}

func columnIndex(columns []string, column string) int {
	for i, c := range columns {
		if strings.EqualFold(c, column) {
			return i
		}
	}
	return -1
}
