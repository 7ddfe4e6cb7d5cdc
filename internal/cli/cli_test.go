package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ordertracker/internal/session"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// testEnv is an isolated config and application directory pair.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(envLog, "")
	tmp := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(tmp, "config"),
		dataDir:   filepath.Join(tmp, "data"),
	}
}

// runWith executes one ordertracker invocation in-process.
func (e *testEnv) runWith(opts []Option, stdin string, args ...string) (stdout, stderr string, code int) {
	e.t.Helper()
	root, a := newRoot(opts...)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	code = run(context.Background(), root, a)
	return out.String(), errOut.String(), code
}

func (e *testEnv) run(stdin string, args ...string) (stdout, stderr string, code int) {
	e.t.Helper()
	return e.runWith(nil, stdin, args...)
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, code := e.run("", args...)
	require.Equal(e.t, exitSuccess, code, "ordertracker %s\nstderr: %s", strings.Join(args, " "), stderr)
	return stdout
}

// rows runs show with JSON output and decodes the result.
func (e *testEnv) rows(args ...string) []map[string]*string {
	e.t.Helper()
	out := e.mustRun(append([]string{"show", "--output", "json"}, args...)...)
	var rows []map[string]*string
	require.NoError(e.t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

// setupOrders creates an Orders tab with Priority as a dropdown.
func (e *testEnv) setupOrders() {
	e.t.Helper()
	e.mustRun("tab", "create", "Orders", "Customer, OrderID", "Priority")
	e.mustRun("settings", "set", "--tab", "Orders", "Priority=dropdown:High,Medium,Low")
}

func field(row map[string]*string, column string) string {
	if v := row[column]; v != nil {
		return *v
	}
	return "<null>"
}

func TestCLI_Version(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("version")
	assert.Contains(t, out, "ordertracker v"+Version)
	assert.Contains(t, out, modulePath)
	assert.NoDirExists(t, e.configDir, "version does not touch the config dir")
}

func TestCLI_Init(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("init")
	assert.Contains(t, out, e.dataDir)
	assert.FileExists(t, filepath.Join(e.dataDir, types.DefaultDBFile))

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ordertracker configuration", "comments kept")
	assert.Contains(t, string(data), "data_dir: "+e.dataDir)
	assert.Contains(t, string(data), "admin_mode: true")

	// A second init is harmless.
	e.mustRun("init")
}

func TestCLI_TabLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("tab", "create", "Shipping", "Carrier,Tracking")
	e.mustRun("tab", "create", "Active", "Customer")

	out := e.mustRun("tab", "list", "--output", "json")
	var tabs []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &tabs))
	assert.Equal(t, []map[string]string{{"tab": "Active"}, {"tab": "Shipping"}}, tabs)

	out = e.mustRun("tab", "columns", "Shipping", "--all", "--output", "csv")
	assert.Equal(t, "Column\nID\nCarrier\nTracking\nCreated_At\nLast_Updated", strings.TrimSpace(out))

	_, stderr, code := e.run("", "tab", "create", "Active", "Customer")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "Error:")

	_, _, code = e.run("", "tab", "create", "Bad", "ID,Customer")
	assert.Equal(t, exitUserError, code, "reserved column name")

	out = e.mustRun("tab", "delete", "Shipping", "--yes")
	assert.Contains(t, out, "Deleted tab Shipping")
	out = e.mustRun("tab", "list", "--output", "csv")
	assert.Equal(t, "Tab\nActive", strings.TrimSpace(out))
}

func TestCLI_TabDeleteConfirm(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("tab", "create", "Orders", "Customer")

	stdout, _, code := e.run("n\n", "tab", "delete", "Orders")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "Cancelled")

	p := &scriptedPrompter{confirms: []bool{true}}
	stdout, _, code = e.runWith([]Option{WithPrompter(p)}, "", "tab", "delete", "Orders")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "Deleted tab Orders")
	assert.Equal(t, []string{"Delete tab Orders and all its rows?"}, p.questions)
}

func TestCLI_Rows(t *testing.T) {
	e := newTestEnv(t)
	e.setupOrders()

	e.mustRun("row", "add", "--tab", "Orders", "Customer=Globex", "OrderID=B", "Priority=Low")
	e.mustRun("row", "add", "Customer=Acme", "OrderID=A", "priority=High")
	e.mustRun("row", "add", "Customer=Initech")

	rows := e.rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "1", field(rows[0], "ID"))
	assert.Equal(t, "Acme", field(rows[1], "Customer"))
	assert.Equal(t, "<null>", field(rows[2], "OrderID"))
	assert.Equal(t, field(rows[0], "Created_At"), field(rows[0], "Last_Updated"))

	_, stderr, code := e.run("", "row", "add", "Priority=Urgent")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "Urgent")
	_, _, code = e.run("", "row", "add", "Status=Open")
	assert.Equal(t, exitUserError, code)
	_, _, code = e.run("", "row", "add", "Customer")
	assert.Equal(t, exitUserError, code, "missing =")

	e.mustRun("row", "edit", "3", "OrderID", "C")
	_, _, code = e.run("", "row", "edit", "9", "OrderID", "C")
	assert.Equal(t, exitUserError, code, "missing row")
	_, _, code = e.run("", "row", "edit", "x", "OrderID", "C")
	assert.Equal(t, exitUserError, code, "bad ID")

	e.mustRun("row", "delete", "1")
	e.mustRun("row", "delete", "1")
	rows = e.rows("--sort", "OrderID", "--desc")
	require.Len(t, rows, 2)
	assert.Equal(t, "C", field(rows[0], "OrderID"))
	assert.Equal(t, "A", field(rows[1], "OrderID"))
}

func TestCLI_RowAssignments(t *testing.T) {
	e := newTestEnv(t)
	e.setupOrders()

	_, stderr, code := e.run("", "row", "add", "customer=A", "Customer=B")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "same column")
	assert.Empty(t, e.rows())

	e.mustRun("row", "add", "Customer=Acme", "Priority=")
	rows := e.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "", field(rows[0], "Priority"), "empty dropdown selection is stored")
}

func TestCLI_PromptedRow(t *testing.T) {
	e := newTestEnv(t)
	e.setupOrders()

	// Customer, OrderID (left empty), Priority (a bad choice, then a good one).
	_, stderr, code := e.run("Acme\n\nUrgent\nHigh\n", "row", "add")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stderr, `"Urgent" is not a choice for Priority`)

	rows := e.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", field(rows[0], "Customer"))
	assert.Equal(t, "<null>", field(rows[0], "OrderID"))
	assert.Equal(t, "High", field(rows[0], "Priority"))

	// An empty answer keeps the current value.
	_, stderr, code = e.run("\n", "row", "edit", "1", "Customer")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stderr, "Customer (Acme): ")
	_, stderr, code = e.run("Globex\n", "row", "edit", "1", "Customer")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Equal(t, "Globex", field(e.rows()[0], "Customer"))

	_, _, code = e.run("", "row", "add")
	assert.Equal(t, exitUserError, code, "no input to answer the prompt")
}

func TestCLI_Show(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("tab", "list")
	assert.NotContains(t, out, "Orders")

	_, stderr, code := e.run("", "show")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "no tabs yet")

	e.setupOrders()
	out = e.mustRun("show")
	assert.Contains(t, out, "Orders: (0 rows)")

	e.mustRun("row", "add", "Customer=Acme", "Priority=High")
	e.mustRun("row", "add", "Customer=Globex")
	out = e.mustRun("show", "Orders", "--sort", "Customer")
	assert.Contains(t, out, "CUSTOMER ▲")
	assert.Contains(t, out, "(2 rows)")
	assert.Less(t, strings.Index(out, "Acme"), strings.Index(out, "Globex"))

	out = e.mustRun("show", "--output", "md")
	assert.Contains(t, out, "| Acme |")

	_, _, code = e.run("", "show", "Missing")
	assert.Equal(t, exitUserError, code)
	_, _, code = e.run("", "show", "--sort", "Status")
	assert.Equal(t, exitUserError, code)
}

func TestCLI_Settings(t *testing.T) {
	e := newTestEnv(t)
	e.setupOrders()
	e.mustRun("settings", "set", "OrderID=dropdown:A, B")

	out := e.mustRun("settings", "show", "--output", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"Column,Input,Choices",
		"Customer,text,",
		`OrderID,dropdown,"A, B"`,
		`Priority,dropdown,"High, Medium, Low"`,
	}, lines)

	e.mustRun("settings", "set", "Priority=text")
	out = e.mustRun("settings", "show", "--output", "csv")
	assert.Contains(t, out, "Priority,text,")
	assert.Contains(t, out, "OrderID,dropdown")

	_, _, code := e.run("", "settings", "set", "Status=text")
	assert.Equal(t, exitUserError, code)
	_, _, code = e.run("", "settings", "set", "Priority=checkbox")
	assert.Equal(t, exitUserError, code)
}

func TestCLI_AdminModeOff(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("admin_mode: false\n"), 0o644))

	_, stderr, code := e.run("", "tab", "create", "Orders", "Customer")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stderr, "admin mode is off")
	assert.Equal(t, "Tab", strings.TrimSpace(e.mustRun("tab", "list", "--output", "csv")))

	e.mustRun("--admin=true", "tab", "create", "Orders", "Customer")
	e.mustRun("--admin=true", "row", "add", "Customer=Acme")

	for _, args := range [][]string{
		{"row", "add", "Customer=Globex"},
		{"row", "add"},
		{"row", "edit", "1", "Customer", "Globex"},
		{"row", "delete", "1"},
		{"settings", "set", "Customer=dropdown:Acme"},
		{"tab", "delete", "Orders"},
	} {
		_, stderr, code := e.run("", args...)
		assert.Equal(t, exitSuccess, code, args)
		assert.Contains(t, stderr, "admin mode is off", args)
	}

	rows := e.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", field(rows[0], "Customer"))
}

func TestCLI_ExportImport(t *testing.T) {
	e := newTestEnv(t)
	e.setupOrders()
	e.mustRun("row", "add", "Customer=Acme", "Priority=High")
	e.mustRun("row", "add", "Customer=Globex")

	file := filepath.Join(t.TempDir(), "orders.jsonl")
	out := e.mustRun("tab", "export", "Orders", file)
	assert.Contains(t, out, "Exported 2 rows")

	e.mustRun("tab", "create", "Archive", "Customer", "OrderID", "Priority")
	out = e.mustRun("tab", "import", "Archive", file)
	assert.Contains(t, out, "Imported 2 rows")

	rows := e.rows("Archive")
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", field(rows[0], "Customer"))
	assert.Equal(t, "<null>", field(rows[1], "Priority"))

	_, _, code := e.run("", "tab", "import", "Archive", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Equal(t, exitSysError, code)
}

func TestCLI_ExitCodes(t *testing.T) {
	e := newTestEnv(t)

	_, _, code := e.run("", "--output", "yaml", "tab", "list")
	assert.Equal(t, exitSysError, code, "bad output format is a configuration error")

	_, _, code = e.run("", "--log-level", "loud", "tab", "list")
	assert.Equal(t, exitSysError, code)

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, stderr, code := e.run("", "tab", "list", "--data-dir", file)
	assert.Equal(t, exitSysError, code, stderr)

	_, _, code = e.run("", "tab", "delete")
	assert.Equal(t, exitUserError, code, "missing argument")
}

func TestCLI_LogLevelFromEnv(t *testing.T) {
	e := newTestEnv(t)
	t.Setenv(envLog, "info")

	_, stderr, code := e.run("", "tab", "create", "Orders", "Customer")
	require.Equal(t, exitSuccess, code)
	assert.Contains(t, stderr, "created tab")

	_, stderr, code = e.run("", "--log-level", "error", "tab", "create", "Archive", "Customer")
	require.Equal(t, exitSuccess, code)
	assert.NotContains(t, stderr, "created tab", "flag beats environment")
}

func TestCLI_Shell(t *testing.T) {
	e := newTestEnv(t)
	script := strings.Join([]string{
		"new Orders Customer, Priority",
		"use orders",
		`add Customer="Acme Inc" Priority=High`,
		"add Customer=Globex",
		"sort Customer",
		"sort Customer",
		"set Priority=dropdown:High,Low",
		"add Priority=Urgent",
		"admin off",
		"delete 1",
		"bogus",
		"admin on",
		"drop Orders",
		"n",
		"quit",
		"tabs",
	}, "\n") + "\n"

	stdout, stderr, code := e.run(script, "shell")
	require.Equal(t, exitSuccess, code, stderr)

	assert.Contains(t, stdout, "No tabs yet")
	assert.Contains(t, stdout, "Created tab Orders")
	assert.Contains(t, stdout, "Acme Inc")
	assert.Contains(t, stdout, "CUSTOMER ▲")
	assert.Contains(t, stdout, "CUSTOMER ▼")
	assert.Contains(t, stdout, "Admin mode is off")
	assert.Contains(t, stdout, "Cancelled")
	assert.Contains(t, stderr, `"Urgent"`)
	assert.Contains(t, stderr, "Admin mode is off; nothing was changed")
	assert.Contains(t, stderr, `unknown command "bogus"`)

	rows := e.rows()
	require.Len(t, rows, 2, "delete was refused while admin mode was off")
	assert.Equal(t, "Acme Inc", field(rows[0], "Customer"))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"  tabs  ", []string{"tabs"}},
		{`add Customer="Acme Inc" Priority=High`, []string{"add", "Customer=Acme Inc", "Priority=High"}},
		{`edit 1 Notes 'say "hi"'`, []string{"edit", "1", "Notes", `say "hi"`}},
		{`edit 1 Notes a\ b`, []string{"edit", "1", "Notes", "a b"}},
		{`set Customer=""`, []string{"set", "Customer="}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := splitArgs(`add Customer="Acme`)
	assert.ErrorIs(t, err, errUsage)
	_, err = splitArgs(`add Notes=a;b`)
	assert.ErrorIs(t, err, errUsage, "unquoted separator")
	got, err := splitArgs(`add Notes="a;b"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "Notes=a;b"}, got)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(types.ErrNotFound))
	assert.Equal(t, exitUserError, exitCode(session.ErrNoTab))
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("open: %w", types.ErrStorageIO)))
	assert.Equal(t, exitSysError, exitCode(configErr("load config", os.ErrPermission)))
}

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# keep me\nadmin_mode: true\ndata_dir: /old\n"), 0o644))

	require.NoError(t, setConfigValue(path, cfgKeyDataDir, "/new"))
	require.NoError(t, setConfigValue(path, cfgKeyOutput, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# keep me")
	assert.Contains(t, out, "data_dir: /new")
	assert.NotContains(t, out, "/old")
	assert.Contains(t, out, "output: json")
	assert.Less(t, strings.Index(out, "admin_mode"), strings.Index(out, "output"), "new keys go last")
}

// scriptedPrompter answers prompts from fixed lists.
type scriptedPrompter struct {
	answers   []string
	confirms  []bool
	questions []string
}

func (p *scriptedPrompter) Ask(label, current string, choices []string) (string, error) {
	if len(p.answers) == 0 {
		return "", errCancelled
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == "" {
		return current, nil
	}
	return a, nil
}

func (p *scriptedPrompter) Confirm(question string) (bool, error) {
	p.questions = append(p.questions, question)
	if len(p.confirms) == 0 {
		return false, nil
	}
	c := p.confirms[0]
	p.confirms = p.confirms[1:]
	return c, nil
}

func (p *scriptedPrompter) Close() error { return nil }
