// Package view turns a tab's stored rows into display-ready pages: loaded
// in ID order or sorted on one column, each row tagged with its display
// category and stripe parity. Pages are rebuilt from the store on every call
// and never cached.
package view

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// CategoryColumn is the column whose value becomes a row's display
// category.
const CategoryColumn = "Priority"

// DefaultCategory is used when a tab has no CategoryColumn or the value is
// missing.
const DefaultCategory = "Low"

// Stripe is the zebra parity of a row in display order.
type Stripe int

const (
	StripeEven Stripe = iota
	StripeOdd
)

func (s Stripe) String() string {
	if s == StripeOdd {
		return "odd"
	}
	return "even"
}

// DisplayRow is a stored row plus its presentation tags.
type DisplayRow struct {
	types.Row
	Category string
	Stripe   Stripe
}

// SortKey names the sort column and direction.
type SortKey struct {
	Column    string
	Ascending bool
}

// Page is one rendered snapshot of a tab.
type Page struct {
	Tab     string
	Columns []string
	Rows    []DisplayRow
	// Sort is nil for natural ID order.
	Sort *SortKey
}

// Field returns the value of column in r.
func (p *Page) Field(r DisplayRow, column string) types.Value {
	g := types.Grid{Columns: p.Columns}
	return g.Field(r.Row, column)
}

// Loader reads a full tab snapshot.
type Loader interface {
	Load(ctx context.Context, tab string) (*types.Grid, error)
}

// Projector builds pages from a Loader.
type Projector struct {
	store  Loader
	logger *slog.Logger
}

// NewProjector returns a Projector reading from store.
func NewProjector(store Loader, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Projector{store: store, logger: logger.With("component", "projector")}
}

// Load returns every row of tab in natural ID order.
func (p *Projector) Load(ctx context.Context, tab string) (*Page, error) {
	grid, err := p.store.Load(ctx, tab)
	if err != nil {
		return nil, err
	}
	return newPage(grid, nil), nil
}

// Sort returns every row of tab ordered by column. Rows whose value is NULL
// or empty sort last in both directions; ties keep ID order.
func (p *Projector) Sort(ctx context.Context, tab string, key SortKey) (*Page, error) {
	grid, err := p.store.Load(ctx, tab)
	if err != nil {
		return nil, err
	}
	column, err := SortRows(grid, key.Column, key.Ascending)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("sorted tab", "tab", grid.Tab, "column", column, "ascending", key.Ascending, "rows", len(grid.Rows))
	return newPage(grid, &SortKey{Column: column, Ascending: key.Ascending}), nil
}

// SortRows reorders grid.Rows in place by column and returns the column's
// canonical name. The sort is stable. ID compares numerically, every other
// column as plain strings. Empty values (NULL or "") sort last in both
// directions. Unknown columns return ErrInvalidColumn.
func SortRows(grid *types.Grid, column string, ascending bool) (string, error) {
	idx := grid.ColumnIndex(column)
	if idx < 0 {
		return "", fmt.Errorf("%w: tab %q has no column %q", types.ErrInvalidColumn, grid.Tab, column)
	}
	canonical := grid.Columns[idx]
	byID := canonical == types.ColumnID

	slices.SortStableFunc(grid.Rows, func(a, b types.Row) int {
		if byID {
			return directed(cmp.Compare(a.ID, b.ID), ascending)
		}
		va, vb := a.Values[idx], b.Values[idx]
		ea, eb := empty(va), empty(vb)
		switch {
		case ea && eb:
			return 0
		case ea:
			return 1
		case eb:
			return -1
		}
		return directed(cmp.Compare(va.String, vb.String), ascending)
	})
	return canonical, nil
}

func empty(v types.Value) bool {
	return !v.Valid || v.String == ""
}

func directed(c int, ascending bool) int {
	if ascending {
		return c
	}
	return -c
}

// Category returns the display category of row r in grid.
func Category(grid *types.Grid, r types.Row) string {
	v := grid.Field(r, CategoryColumn)
	if empty(v) {
		return DefaultCategory
	}
	return v.String
}

func newPage(grid *types.Grid, key *SortKey) *Page {
	page := &Page{
		Tab:     grid.Tab,
		Columns: grid.Columns,
		Rows:    make([]DisplayRow, len(grid.Rows)),
		Sort:    key,
	}
	for i, r := range grid.Rows {
		page.Rows[i] = DisplayRow{
			Row:      r,
			Category: Category(grid, r),
			Stripe:   Stripe(i % 2),
		}
	}
	return page
}
