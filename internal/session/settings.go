package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Field is one editable column of a tab with its input setting.
type Field struct {
	Column  string
	Setting types.ColumnSetting
}

func (f Field) check(value string) error {
	if !f.Setting.Allows(value) {
		return fmt.Errorf("%w: %q for column %q (choices: %s)",
			types.ErrInvalidChoice, value, f.Column, strings.Join(f.Setting.Choices, ", "))
	}
	return nil
}

// Form lists the editable columns of a tab in table order.
type Form []Field

func (f Form) index(column string) int {
	for i, field := range f {
		if strings.EqualFold(field.Column, column) {
			return i
		}
	}
	return -1
}

// Field returns the entry for column, matched ignoring case.
func (f Form) Field(column string) (Field, bool) {
	if i := f.index(column); i >= 0 {
		return f[i], true
	}
	return Field{}, false
}

// Form returns the editable columns of the current tab with their
// settings. Unconfigured columns are free text.
func (s *Session) Form(ctx context.Context) (Form, error) {
	if err := s.requireTab(); err != nil {
		return nil, err
	}
	columns, err := s.store.UserColumns(ctx, s.tab)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Settings(ctx, s.tab)
	if err != nil {
		return nil, err
	}

	form := make(Form, len(columns))
	for i, col := range columns {
		form[i] = Field{Column: col, Setting: types.FreeText}
		for name, setting := range stored {
			if strings.EqualFold(name, col) {
				form[i].Setting = setting
				break
			}
		}
	}
	return form, nil
}

// SaveSettings replaces every stored setting of the current tab with
// settings. Columns left out revert to free text.
func (s *Session) SaveSettings(ctx context.Context, settings map[string]types.ColumnSetting) error {
	logger, err := s.mutate("save-settings")
	if err != nil {
		return err
	}
	if err := s.requireTab(); err != nil {
		return err
	}
	if err := s.store.ReplaceSettings(ctx, s.tab, settings); err != nil {
		return err
	}
	logger.Info("saved column settings", "tab", s.tab, "columns", len(settings))
	return nil
}

// ConfigureColumns changes the settings of the named columns and keeps the
// rest. It is SaveSettings over the current form with updates applied.
func (s *Session) ConfigureColumns(ctx context.Context, updates map[string]types.ColumnSetting) error {
	if !s.admin {
		_, err := s.mutate("save-settings")
		return err
	}
	form, err := s.Form(ctx)
	if err != nil {
		return err
	}

	settings := make(map[string]types.ColumnSetting, len(form))
	for _, f := range form {
		settings[f.Column] = f.Setting
	}
	for name, setting := range updates {
		f, ok := form.Field(name)
		if !ok {
			return fmt.Errorf("%w: %q is not an editable column of tab %q", types.ErrInvalidColumn, name, s.tab)
		}
		settings[f.Column] = setting
	}
	return s.SaveSettings(ctx, settings)
}
