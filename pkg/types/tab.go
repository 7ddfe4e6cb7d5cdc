package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Reserved columns present on every tab table.
const (
	ColumnID          = "ID"
	ColumnCreatedAt   = "Created_At"
	ColumnLastUpdated = "Last_Updated"
)

// ReservedColumns lists the system-managed columns in physical order: ID
// first, the two timestamps last.
var ReservedColumns = []string{ColumnID, ColumnCreatedAt, ColumnLastUpdated}

// Internal table names. Tab names may not collide with them.
const (
	RegistryTable = "tabs"
	SettingsTable = "column_settings"
)

// MaxIdentifierLength bounds tab and column names.
const MaxIdentifierLength = 64

// identPattern is the allow-list for every identifier that reaches SQL text.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tab is a named, user-defined table. Columns holds the user-declared
// columns in declaration order; reserved columns are not included.
type Tab struct {
	Name    string
	Columns []string
}

// IsReservedColumn reports whether name is one of the reserved columns.
// SQLite identifiers are case-insensitive, so the comparison is too.
func IsReservedColumn(name string) bool {
	for _, r := range ReservedColumns {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// ValidateIdentifier checks name against the identifier allow-list.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, MaxIdentifierLength)
	}
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidName, name)
	}
	return nil
}

// ValidateTabName checks that name can be used as a tab and physical table
// name.
func ValidateTabName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return fmt.Errorf("%w: tab name: %w", ErrSchema, err)
	}
	lower := strings.ToLower(name)
	if lower == RegistryTable || lower == SettingsTable || strings.HasPrefix(lower, "sqlite_") {
		return fmt.Errorf("%w: %w: tab name %q is reserved", ErrSchema, ErrDuplicateName, name)
	}
	return nil
}

// ValidateColumns checks a user column list: at least one column, every
// name a valid identifier, no reserved names and no duplicates (compared
// case-insensitively).
func ValidateColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: at least one column is required", ErrSchema)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return fmt.Errorf("%w: column: %w", ErrSchema, err)
		}
		if IsReservedColumn(c) {
			return fmt.Errorf("%w: %w: column %q is reserved", ErrSchema, ErrDuplicateName, c)
		}
		key := strings.ToLower(c)
		if seen[key] {
			return fmt.Errorf("%w: %w: column %q is declared twice", ErrSchema, ErrDuplicateName, c)
		}
		seen[key] = true
	}
	return nil
}

// ParseColumnList splits a comma-separated column list and trims each entry.
// Empty entries are kept so ValidateColumns reports them.
func ParseColumnList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// DisplayColumns returns the full physical column order for a tab with the
// given user columns.
func DisplayColumns(userColumns []string) []string {
	out := make([]string, 0, len(userColumns)+len(ReservedColumns))
	out = append(out, ColumnID)
	out = append(out, userColumns...)
	return append(out, ColumnCreatedAt, ColumnLastUpdated)
}

// UserColumns filters the reserved columns out of a physical column list.
func UserColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !IsReservedColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

// QuoteIdentifier returns name as a double-quoted SQL identifier. Callers
// validate name first; the quoting keeps keywords such as Order usable.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
