package types

import (
	"fmt"
	"slices"
	"strings"
)

// InputKind selects how values for a column are entered. The string values
// are the ones persisted in the column_settings table.
type InputKind string

const (
	// InputText accepts any string.
	InputText InputKind = "text"
	// InputDropdown restricts entry to the configured choices.
	InputDropdown InputKind = "dropdown"
)

// ParseInputKind maps a stored or user-supplied kind to an InputKind.
// Unknown values return ErrInvalidColumn.
func ParseInputKind(s string) (InputKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "free-text":
		return InputText, nil
	case "dropdown", "choice", "enum":
		return InputDropdown, nil
	default:
		return InputText, fmt.Errorf("%w: unknown input kind %q", ErrInvalidColumn, s)
	}
}

// ColumnSetting is the input configuration of one (tab, column) pair. A
// column without a stored setting is free text.
type ColumnSetting struct {
	Kind    InputKind `json:"kind"`
	Choices []string  `json:"choices,omitempty"`
}

// FreeText is the setting of every unconfigured column.
var FreeText = ColumnSetting{Kind: InputText}

// IsDropdown reports whether entry is constrained to Choices.
func (s ColumnSetting) IsDropdown() bool {
	return s.Kind == InputDropdown
}

// Allows reports whether value may be entered through a restricted input.
// Free-text columns allow everything; a dropdown allows its choices and the
// empty selection.
func (s ColumnSetting) Allows(value string) bool {
	if !s.IsDropdown() || value == "" {
		return true
	}
	return slices.Contains(s.Choices, value)
}

// EncodeOptions joins choices into the comma-separated storage form. Text
// columns always store an empty string.
func (s ColumnSetting) EncodeOptions() string {
	if !s.IsDropdown() {
		return ""
	}
	return strings.Join(s.Choices, ",")
}

// ParseChoices splits a comma-separated option string, trimming whitespace
// and dropping empty entries. An empty string yields no choices.
func ParseChoices(options string) []string {
	var out []string
	for _, p := range strings.Split(options, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseColumnSetting parses the CLI form "text", "dropdown" or
// "dropdown:A,B,C".
func ParseColumnSetting(s string) (ColumnSetting, error) {
	kind, options, _ := strings.Cut(s, ":")
	k, err := ParseInputKind(kind)
	if err != nil {
		return ColumnSetting{}, err
	}
	if k == InputText {
		if strings.TrimSpace(options) != "" {
			return ColumnSetting{}, fmt.Errorf("%w: text columns take no choices", ErrInvalidColumn)
		}
		return FreeText, nil
	}
	return ColumnSetting{Kind: InputDropdown, Choices: ParseChoices(options)}, nil
}

// String renders the setting in the form ParseColumnSetting accepts.
func (s ColumnSetting) String() string {
	if !s.IsDropdown() {
		return string(InputText)
	}
	return string(InputDropdown) + ":" + strings.Join(s.Choices, ",")
}
