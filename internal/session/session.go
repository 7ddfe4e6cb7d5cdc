// Package session is the state behind one interactive use of the tracker:
// the selected tab, the admin-mode switch, the header sort toggle, and the
// actions a user can take. Presentation layers (the CLI commands and the
// interactive shell) drive a Session and render the pages it returns.
//
// Mutating actions require admin mode. With admin mode off they return
// ErrReadOnly without touching the store.
//
// Dropdown columns are enforced here, at input time: AddRow and EditRow
// reject values outside a column's choices with types.ErrInvalidChoice. The
// store itself accepts any value.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/ordertracker/internal/view"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

var (
	// ErrReadOnly is returned by mutating actions while admin mode is off.
	ErrReadOnly = errors.New("admin mode is off")
	// ErrNoTab is returned by row actions when no tab is selected.
	ErrNoTab = errors.New("no tab selected")
)

// Session holds per-user view state over a shared store.
type Session struct {
	store     types.Store
	projector *view.Projector
	sorter    view.Sorter
	logger    *slog.Logger
	admin     bool
	tab       string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAdminMode sets the initial admin mode. Sessions start in admin mode.
func WithAdminMode(on bool) Option {
	return func(s *Session) { s.admin = on }
}

// New returns a Session over store with no tab selected.
func New(store types.Store, opts ...Option) *Session {
	s := &Session{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		admin:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.projector = view.NewProjector(store, s.logger)
	s.logger = s.logger.With("component", "session")
	return s
}

// Admin reports whether mutating actions are enabled.
func (s *Session) Admin() bool { return s.admin }

// SetAdmin switches admin mode.
func (s *Session) SetAdmin(on bool) {
	s.admin = on
	s.logger.Debug("admin mode changed", "admin", on)
}

// Tab returns the selected tab, or "" when none is selected.
func (s *Session) Tab() string { return s.tab }

// action starts a logged action and returns its logger. Every action gets
// a fresh time-ordered ID so its log lines can be correlated.
func (s *Session) action(name string) *slog.Logger {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	logger := s.logger.With("action", name, "action_id", id.String())
	logger.Debug("action started", "tab", s.tab)
	return logger
}

// mutate gates a mutating action on admin mode.
func (s *Session) mutate(name string) (*slog.Logger, error) {
	logger := s.action(name)
	if !s.admin {
		logger.Info("action skipped: admin mode is off")
		return logger, ErrReadOnly
	}
	return logger, nil
}

func (s *Session) requireTab() error {
	if s.tab == "" {
		return ErrNoTab
	}
	return nil
}

// Start selects the alphabetically first tab and loads it. It returns a nil
// page when there are no tabs.
func (s *Session) Start(ctx context.Context) (*view.Page, error) {
	tabs, err := s.Tabs(ctx)
	if err != nil {
		return nil, err
	}
	if len(tabs) == 0 {
		return nil, nil
	}
	return s.Select(ctx, tabs[0])
}

// Tabs lists the tab names in ascending order.
func (s *Session) Tabs(ctx context.Context) ([]string, error) {
	s.action("list-tabs")
	return s.store.ListTabs(ctx)
}

// Select makes tab the current tab and loads it in natural order. The sort
// toggle starts over. On error the previous selection is kept.
func (s *Session) Select(ctx context.Context, tab string) (*view.Page, error) {
	logger := s.action("select-tab")
	page, err := s.projector.Load(ctx, tab)
	if err != nil {
		return nil, err
	}
	if page.Tab != s.tab {
		s.sorter.Reset()
	}
	s.tab = page.Tab
	logger.Debug("selected tab", "tab", s.tab, "rows", len(page.Rows))
	return page, nil
}

// Load reloads the current tab in natural ID order.
func (s *Session) Load(ctx context.Context) (*view.Page, error) {
	s.action("load-tab")
	if err := s.requireTab(); err != nil {
		return nil, err
	}
	return s.projector.Load(ctx, s.tab)
}

// SortBy reloads the current tab sorted on column. Repeating the same
// column flips the direction; a different column starts ascending.
func (s *Session) SortBy(ctx context.Context, column string) (*view.Page, error) {
	logger := s.action("sort")
	if err := s.requireTab(); err != nil {
		return nil, err
	}
	saved := s.sorter
	key := s.sorter.Toggle(s.tab, column)
	page, err := s.projector.Sort(ctx, s.tab, key)
	if err != nil {
		s.sorter = saved
		return nil, err
	}
	logger.Debug("sorted", "column", page.Sort.Column, "ascending", page.Sort.Ascending)
	return page, nil
}

// Sort reloads the current tab sorted by key and records key as the toggle
// state, so a following SortBy on the same column flips it.
func (s *Session) Sort(ctx context.Context, key view.SortKey) (*view.Page, error) {
	s.action("sort")
	if err := s.requireTab(); err != nil {
		return nil, err
	}
	page, err := s.projector.Sort(ctx, s.tab, key)
	if err != nil {
		return nil, err
	}
	s.sorter.Set(s.tab, *page.Sort)
	return page, nil
}

// CreateTab creates a tab from a comma-separated column list. Surrounding
// whitespace of each column name is ignored. The selection is unchanged.
func (s *Session) CreateTab(ctx context.Context, name, columns string) error {
	logger, err := s.mutate("create-tab")
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := s.store.CreateTab(ctx, name, types.ParseColumnList(columns)); err != nil {
		return err
	}
	logger.Info("created tab", "tab", name)
	return nil
}

// DeleteTab drops tab with all its rows and settings. Callers confirm with
// the user first. Deleting the selected tab clears the selection.
func (s *Session) DeleteTab(ctx context.Context, tab string) error {
	logger, err := s.mutate("delete-tab")
	if err != nil {
		return err
	}
	if err := s.store.DeleteTab(ctx, tab); err != nil {
		return err
	}
	if strings.EqualFold(tab, s.tab) {
		s.tab = ""
		s.sorter.Reset()
	}
	logger.Info("deleted tab", "tab", tab)
	return nil
}

// AddRow appends a row to the current tab. fields maps column names to
// values; columns left out are stored as NULL. Dropdown columns only accept
// their configured choices.
func (s *Session) AddRow(ctx context.Context, fields map[string]string) (int64, error) {
	logger, err := s.mutate("add-row")
	if err != nil {
		return 0, err
	}
	if err := s.requireTab(); err != nil {
		return 0, err
	}

	form, err := s.Form(ctx)
	if err != nil {
		return 0, err
	}
	values := make([]types.Value, len(form))
	for key, value := range fields {
		i := form.index(key)
		if i < 0 {
			return 0, fmt.Errorf("%w: tab %q has no editable column %q", types.ErrInvalidColumn, s.tab, key)
		}
		if values[i].Valid {
			return 0, fmt.Errorf("%w: column %q is given twice", types.ErrDuplicateName, form[i].Column)
		}
		if err := form[i].check(value); err != nil {
			return 0, err
		}
		values[i] = types.Text(value)
	}

	id, err := s.store.AddRow(ctx, s.tab, values)
	if err != nil {
		return 0, err
	}
	logger.Info("added row", "tab", s.tab, "id", id)
	return id, nil
}

// EditRow sets one field of row id in the current tab.
func (s *Session) EditRow(ctx context.Context, id int64, column, value string) error {
	logger, err := s.mutate("edit-row")
	if err != nil {
		return err
	}
	if err := s.requireTab(); err != nil {
		return err
	}

	form, err := s.Form(ctx)
	if err != nil {
		return err
	}
	i := form.index(column)
	if i < 0 {
		return fmt.Errorf("%w: %q is not an editable column of tab %q", types.ErrInvalidColumn, column, s.tab)
	}
	if err := form[i].check(value); err != nil {
		return err
	}
	if err := s.store.EditField(ctx, s.tab, id, form[i].Column, types.Text(value)); err != nil {
		return err
	}
	logger.Info("edited row", "tab", s.tab, "id", id, "column", form[i].Column)
	return nil
}

// DeleteRow removes row id from the current tab.
func (s *Session) DeleteRow(ctx context.Context, id int64) error {
	logger, err := s.mutate("delete-row")
	if err != nil {
		return err
	}
	if err := s.requireTab(); err != nil {
		return err
	}
	if err := s.store.DeleteRow(ctx, s.tab, id); err != nil {
		return err
	}
	logger.Info("deleted row", "tab", s.tab, "id", id)
	return nil
}

// Row returns row id of the current tab, for pre-filling edits.
func (s *Session) Row(ctx context.Context, id int64) (*types.Grid, error) {
	s.action("get-row")
	if err := s.requireTab(); err != nil {
		return nil, err
	}
	return s.store.GetRow(ctx, s.tab, id)
}

// ExportTab writes the rows of tab to a JSON Lines file at path.
func (s *Session) ExportTab(ctx context.Context, tab, path string) (int, error) {
	logger := s.action("export-tab")
	n, err := s.store.ExportTab(ctx, tab, path)
	if err != nil {
		return 0, err
	}
	logger.Info("exported tab", "tab", tab, "path", path, "rows", n)
	return n, nil
}

// ImportTab appends the rows of a JSON Lines file to tab. Dropdown choices
// are not checked: imported data is taken as stored.
func (s *Session) ImportTab(ctx context.Context, tab, path string) (int, error) {
	logger, err := s.mutate("import-tab")
	if err != nil {
		return 0, err
	}
	n, err := s.store.ImportTab(ctx, tab, path)
	if err != nil {
		return 0, err
	}
	logger.Info("imported rows", "tab", tab, "path", path, "rows", n)
	return n, nil
}
