package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ordertracker/internal/testutil"
	"github.com/mesh-intelligence/ordertracker/pkg/sqlite"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

func setupProjector(t *testing.T) (*Projector, types.Store) {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)
	store, err := sqlite.Open(ctx, types.Config{DataDir: t.TempDir()}, sqlite.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { store.Detach() })

	require.NoError(t, store.CreateTab(ctx, "Orders", []string{"Customer", "OrderID", "Priority"}))
	rows := [][]types.Value{
		{types.Text("Acme"), types.Text("B-2"), types.Text("High")},
		{types.Text("Globex"), types.Null, types.Text("Medium")},
		{types.Text("Initech"), types.Text("A-1")},
		{types.Text("Umbrella"), types.Text("B-2"), types.Text("")},
		{types.Text("Hooli"), types.Null, types.Text("Low")},
	}
	for _, r := range rows {
		_, err := store.AddRow(ctx, "Orders", r)
		require.NoError(t, err)
	}
	return NewProjector(store, logger), store
}

func customers(p *Page) []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = p.Field(r, "Customer").String
	}
	return out
}

func TestProjector_Load(t *testing.T) {
	proj, _ := setupProjector(t)

	page, err := proj.Load(context.Background(), "Orders")
	require.NoError(t, err)
	assert.Nil(t, page.Sort)
	assert.Equal(t, []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}, customers(page))

	var categories []string
	var stripes []Stripe
	for _, r := range page.Rows {
		categories = append(categories, r.Category)
		stripes = append(stripes, r.Stripe)
	}
	assert.Equal(t, []string{"High", "Medium", "Low", "Low", "Low"}, categories)
	assert.Equal(t, []Stripe{StripeEven, StripeOdd, StripeEven, StripeOdd, StripeEven}, stripes)
}

func TestProjector_SortNullsLast(t *testing.T) {
	proj, _ := setupProjector(t)
	ctx := context.Background()

	asc, err := proj.Sort(ctx, "Orders", SortKey{Column: "OrderID", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Initech", "Acme", "Umbrella", "Globex", "Hooli"}, customers(asc),
		"ties keep ID order, NULLs last")
	assert.Equal(t, &SortKey{Column: "OrderID", Ascending: true}, asc.Sort)

	desc, err := proj.Sort(ctx, "Orders", SortKey{Column: "orderid", Ascending: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Umbrella", "Initech", "Globex", "Hooli"}, customers(desc),
		"NULLs stay last when descending")
	assert.Equal(t, "OrderID", desc.Sort.Column)

	assert.Equal(t, StripeEven, desc.Rows[0].Stripe, "stripes follow display order")
	assert.Equal(t, StripeOdd, desc.Rows[1].Stripe)
}

func TestProjector_SortEmptyLast(t *testing.T) {
	proj, _ := setupProjector(t)
	ctx := context.Background()

	// Initech has no Priority and Umbrella an empty one; both go last.
	asc, err := proj.Sort(ctx, "Orders", SortKey{Column: "Priority", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Hooli", "Globex", "Initech", "Umbrella"}, customers(asc))

	desc, err := proj.Sort(ctx, "Orders", SortKey{Column: "Priority", Ascending: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"Globex", "Hooli", "Acme", "Initech", "Umbrella"}, customers(desc))
}

func TestSortRows_EmptyString(t *testing.T) {
	row := func(id int64, order types.Value) types.Row {
		return types.Row{ID: id, Values: []types.Value{types.Text(""), order}}
	}
	for _, ascending := range []bool{true, false} {
		grid := &types.Grid{
			Tab:     "Orders",
			Columns: []string{"ID", "OrderID"},
			Rows:    []types.Row{row(1, types.Text("")), row(2, types.Text("B")), row(3, types.Null), row(4, types.Text("A"))},
		}
		_, err := SortRows(grid, "OrderID", ascending)
		require.NoError(t, err)

		var ids []int64
		for _, r := range grid.Rows {
			ids = append(ids, r.ID)
		}
		want := []int64{4, 2, 1, 3}
		if !ascending {
			want = []int64{2, 4, 1, 3}
		}
		assert.Equal(t, want, ids, "ascending=%v", ascending)
	}
}

func TestProjector_SortByID(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, types.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer store.Detach()
	require.NoError(t, store.CreateTab(ctx, "Orders", []string{"Customer"}))
	for i := 0; i < 12; i++ {
		_, err := store.AddRow(ctx, "Orders", []types.Value{types.Text("c")})
		require.NoError(t, err)
	}

	page, err := NewProjector(store, nil).Sort(ctx, "Orders", SortKey{Column: "ID", Ascending: false})
	require.NoError(t, err)
	require.Len(t, page.Rows, 12)
	assert.Equal(t, int64(12), page.Rows[0].ID, "IDs compare numerically")
	assert.Equal(t, int64(1), page.Rows[11].ID)
}

func TestProjector_SortErrors(t *testing.T) {
	proj, _ := setupProjector(t)
	ctx := context.Background()

	_, err := proj.Sort(ctx, "Orders", SortKey{Column: "Status", Ascending: true})
	assert.ErrorIs(t, err, types.ErrInvalidColumn)

	_, err = proj.Sort(ctx, "Missing", SortKey{Column: "Customer", Ascending: true})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestProjector_SnapshotIsFresh(t *testing.T) {
	proj, store := setupProjector(t)
	ctx := context.Background()

	_, err := proj.Load(ctx, "Orders")
	require.NoError(t, err)
	require.NoError(t, store.DeleteRow(ctx, "Orders", 1))

	page, err := proj.Load(ctx, "Orders")
	require.NoError(t, err)
	assert.Len(t, page.Rows, 4)
}

func TestCategory_NoPriorityColumn(t *testing.T) {
	grid := &types.Grid{
		Columns: []string{"ID", "Customer", "Created_At", "Last_Updated"},
		Rows:    []types.Row{{ID: 1, Values: []types.Value{types.Text("1"), types.Text("Acme"), types.Null, types.Null}}},
	}
	assert.Equal(t, DefaultCategory, Category(grid, grid.Rows[0]))
}

func TestSorter_Toggle(t *testing.T) {
	var s Sorter

	_, ok := s.Current("Orders")
	assert.False(t, ok)

	assert.Equal(t, SortKey{Column: "OrderID", Ascending: true}, s.Toggle("Orders", "OrderID"))
	assert.Equal(t, SortKey{Column: "OrderID", Ascending: false}, s.Toggle("Orders", "OrderID"), "same column flips")
	assert.Equal(t, SortKey{Column: "OrderID", Ascending: true}, s.Toggle("Orders", "orderid"))
	assert.Equal(t, SortKey{Column: "Customer", Ascending: true}, s.Toggle("Orders", "Customer"), "new column resets")
	s.Toggle("Orders", "Customer")

	key, ok := s.Current("Orders")
	require.True(t, ok)
	assert.False(t, key.Ascending)

	assert.Equal(t, SortKey{Column: "Customer", Ascending: true}, s.Toggle("Archive", "Customer"), "new tab resets")
	_, ok = s.Current("Orders")
	assert.False(t, ok)

	s.Reset()
	_, ok = s.Current("Archive")
	assert.False(t, ok)
}

func TestSorter_Set(t *testing.T) {
	var s Sorter
	s.Set("Orders", SortKey{Column: "Customer", Ascending: false})
	key, ok := s.Current("Orders")
	require.True(t, ok)
	assert.False(t, key.Ascending)

	assert.True(t, s.Toggle("Orders", "customer").Ascending)
}
