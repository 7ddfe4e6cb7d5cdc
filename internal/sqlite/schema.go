package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Bootstrap DDL. The column names and types match databases written by
// earlier versions of the tracker, so an existing company_data.db opens
// unchanged.
const (
	createTabs = `CREATE TABLE IF NOT EXISTS tabs (name TEXT PRIMARY KEY)`

	createColumnSettings = `CREATE TABLE IF NOT EXISTS column_settings (
    tab TEXT,
    column_name TEXT,
    input_type TEXT,
    options TEXT
)`
)

// bootstrapDDL lists the statements run on every Attach.
var bootstrapDDL = []string{
	createTabs,
	createColumnSettings,
}

// bootstrap creates the registry and settings tables when missing.
func bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range bootstrapDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return storageErr("bootstrap schema", err)
		}
	}
	return nil
}

// createTabSQL builds the CREATE TABLE statement for a tab. Names must have
// passed types.ValidateTabName and types.ValidateColumns.
func createTabSQL(name string, columns []string) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(types.QuoteIdentifier(name))
	sb.WriteString(" (")
	sb.WriteString(types.QuoteIdentifier(types.ColumnID))
	sb.WriteString(" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range append(append([]string{}, columns...), types.ColumnCreatedAt, types.ColumnLastUpdated) {
		sb.WriteString(", ")
		sb.WriteString(types.QuoteIdentifier(c))
		sb.WriteString(" TEXT")
	}
	sb.WriteString(")")
	return sb.String()
}

// insertRowSQL builds the INSERT statement for the given user columns plus
// both timestamps.
func insertRowSQL(tab string, columns []string) string {
	all := append(append([]string{}, columns...), types.ColumnCreatedAt, types.ColumnLastUpdated)
	quoted := make([]string, len(all))
	marks := make([]string, len(all))
	for i, c := range all {
		quoted[i] = types.QuoteIdentifier(c)
		marks[i] = "?"
	}
	return "INSERT INTO " + types.QuoteIdentifier(tab) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}
