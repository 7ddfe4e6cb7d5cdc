package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ordertracker/internal/testutil"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// fakeClock is a settable time source for timestamp assertions.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)}
}

// setupBackend attaches a Backend to a fresh data directory and detaches it
// when the test ends.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(context.Background(), types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	ctx := context.Background()
	dataDir := filepath.Join(t.TempDir(), "Order Management")

	b := NewBackend()
	require.NoError(t, b.Attach(ctx, types.Config{DataDir: dataDir}))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dataDir, types.DefaultDBFile))
	assert.NoError(t, err, "database file should be created inside the application directory")
	assert.Equal(t, filepath.Join(dataDir, types.DefaultDBFile), b.Path())

	tabs, err := b.ListTabs(ctx)
	require.NoError(t, err)
	assert.Empty(t, tabs)

	err = b.Attach(ctx, types.Config{DataDir: dataDir})
	assert.ErrorIs(t, err, types.ErrInvalidConfig, "second attach must fail")
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	err := NewBackend().Attach(context.Background(), types.Config{})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestBackend_AttachDirectoryFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := NewBackend().Attach(context.Background(), types.Config{DataDir: filepath.Join(blocker, "app")})
	assert.ErrorIs(t, err, types.ErrStorageIO)
}

func TestBackend_Detach(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	require.NoError(t, b.Attach(ctx, types.Config{DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err := b.ListTabs(ctx)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	err = b.CreateTab(ctx, "Orders", []string{"Customer"})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestBackend_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	b := NewBackend()
	require.NoError(t, b.Attach(ctx, types.Config{DataDir: dataDir}))
	require.NoError(t, b.CreateTab(ctx, "Orders", []string{"Customer", "Priority"}))
	_, err := b.AddRow(ctx, "Orders", []types.Value{types.Text("Acme"), types.Text("High")})
	require.NoError(t, err)
	require.NoError(t, b.ReplaceSettings(ctx, "Orders", map[string]types.ColumnSetting{
		"Priority": {Kind: types.InputDropdown, Choices: []string{"High", "Medium", "Low"}},
	}))
	require.NoError(t, b.Detach())

	reopened := NewBackend()
	require.NoError(t, reopened.Attach(ctx, types.Config{DataDir: dataDir}))
	defer reopened.Detach()

	tabs, err := reopened.ListTabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, tabs)

	grid, err := reopened.Load(ctx, "Orders")
	require.NoError(t, err)
	require.Len(t, grid.Rows, 1)
	assert.Equal(t, types.Text("Acme"), grid.Field(grid.Rows[0], "Customer"))

	s, err := reopened.Setting(ctx, "Orders", "Priority")
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Medium", "Low"}, s.Choices)
}

func TestBackend_StorageFailuresWrapStorageIO(t *testing.T) {
	diskErr := errors.New("disk I/O error")

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		run    func(ctx context.Context, b *Backend) error
	}{
		{
			name: "bootstrap failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(createTabs)).WillReturnError(diskErr)
			},
		},
		{
			name: "list tabs query failure",
			expect: func(mock sqlmock.Sqlmock) {
				expectBootstrap(mock)
				mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM tabs ORDER BY name ASC")).WillReturnError(diskErr)
			},
			run: func(ctx context.Context, b *Backend) error {
				_, err := b.ListTabs(ctx)
				return err
			},
		},
		{
			name: "tab lookup failure",
			expect: func(mock sqlmock.Sqlmock) {
				expectBootstrap(mock)
				mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM tabs WHERE name = ?")).WillReturnError(diskErr)
			},
			run: func(ctx context.Context, b *Backend) error {
				_, err := b.Load(ctx, "Orders")
				return err
			},
		},
		{
			name: "create tab rolls back when registration fails",
			expect: func(mock sqlmock.Sqlmock) {
				expectBootstrap(mock)
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM tabs WHERE name = ?")).
					WillReturnRows(sqlmock.NewRows([]string{"name"}))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sqlite_master")).
					WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
				mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "Orders"`)).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tabs (name) VALUES (?)")).WillReturnError(diskErr)
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, b *Backend) error {
				return b.CreateTab(ctx, "Orders", []string{"Customer"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.expect(mock)

			b := NewBackend(WithLogger(testutil.NewTestLogger(t)))
			err = b.attachDB(ctx, db, "mock.db")
			if tt.run != nil {
				require.NoError(t, err)
				err = tt.run(ctx, b)
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrStorageIO)
			assert.ErrorIs(t, err, diskErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func expectBootstrap(mock sqlmock.Sqlmock) {
	for _, stmt := range bootstrapDDL {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}
