// Package cli implements the ordertracker command-line interface: one
// cobra command per tracker action, plus an interactive shell that keeps a
// session (selected tab, sort toggle, admin mode) between commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/ordertracker/internal/logging"
	"github.com/mesh-intelligence/ordertracker/internal/paths"
	"github.com/mesh-intelligence/ordertracker/internal/render"
	"github.com/mesh-intelligence/ordertracker/internal/session"
	"github.com/mesh-intelligence/ordertracker/internal/view"
	"github.com/mesh-intelligence/ordertracker/pkg/sqlite"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
}

// app carries what the commands of one invocation share.
type app struct {
	flags     rootFlags
	v         *viper.Viper
	logger    *slog.Logger
	configDir string
	dataDir   string
	format    render.Format
	store     types.Store
	prompter  Prompter
}

// Option configures the root command.
type Option func(*app)

// WithPrompter replaces the terminal prompter, mainly for tests.
func WithPrompter(p Prompter) Option {
	return func(a *app) { a.prompter = p }
}

// newRoot creates the top-level "ordertracker" command with global flags
// and all subcommands registered, and the state they share.
func newRoot(opts ...Option) (*cobra.Command, *app) {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "ordertracker",
		Short: "Track orders in user-defined tabs",
		Long: "ordertracker keeps orders in tabs: user-defined tables stored in a local\n" +
			"SQLite database. Columns can be free text or dropdowns with fixed choices.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/ordertracker)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "application directory holding company_data.db (default: $XDG_DATA_HOME/ordertracker)")
	pf.Bool("admin", true, "allow commands that change tabs, rows or settings")
	pf.StringP("output", "o", "table", "output format: table, json, csv or markdown")
	pf.String("log-level", "warn", "log spec, e.g. info or warn,store=debug")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newTabCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newRowCmd(a))
	root.AddCommand(newSettingsCmd(a))
	root.AddCommand(newShellCmd(a))

	return root, a
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, a := newRoot()
	return run(ctx, root, a)
}

// run executes root and releases the store and prompter whether or not the
// command succeeded.
func run(ctx context.Context, root *cobra.Command, a *app) int {
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit code. Storage and
// configuration failures are system errors; everything else is the user's.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStorageIO), errors.Is(err, types.ErrInvalidConfig):
		return exitSysError
	default:
		return exitUserError
	}
}

// setup loads config.yaml, binds the global flags over it and builds the
// logger. The store is opened lazily by openSession.
func (a *app) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return configErr("resolve config dir", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return configErr("load config", err)
	}

	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		cfgKeyAdminMode: "admin",
		cfgKeyOutput:    "output",
		cfgKeyLogLevel:  "log-level",
		cfgKeyLogFormat: "log-format",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return configErr("bind flag", err)
		}
	}

	logFormat, err := logging.ParseFormat(v.GetString(cfgKeyLogFormat))
	if err != nil {
		return configErr("log format", err)
	}
	logger, err := logging.New(logging.Options{
		Spec:   v.GetString(cfgKeyLogLevel),
		Format: logFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return configErr("log level", err)
	}
	format, err := render.ParseFormat(v.GetString(cfgKeyOutput))
	if err != nil {
		return configErr("output", err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return configErr("resolve data dir", err)
	}

	a.v = v
	a.logger = logger
	a.configDir = configDir
	a.dataDir = dataDir
	a.format = format
	a.logger.Debug("configuration loaded", "component", "cli", "config_dir", configDir, "data_dir", dataDir)
	return nil
}

// openSession attaches the store if needed and starts a session on it.
// A failure here is fatal for the command.
func (a *app) openSession(ctx context.Context) (*session.Session, error) {
	if a.store == nil {
		store, err := sqlite.Open(ctx, types.Config{DataDir: a.dataDir}, sqlite.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return session.New(a.store,
		session.WithLogger(a.logger),
		session.WithAdminMode(a.v.GetBool(cfgKeyAdminMode)),
	), nil
}

func (a *app) close() error {
	var err error
	if a.prompter != nil {
		err = a.prompter.Close()
	}
	if a.store != nil {
		if derr := a.store.Detach(); derr != nil {
			err = derr
		}
		a.store = nil
	}
	return err
}

func (a *app) renderer(w io.Writer) *render.Renderer {
	return render.New(w, a.format)
}

// selectTab selects tab, or the first tab when tab is empty.
func selectTab(ctx context.Context, s *session.Session, tab string) (*view.Page, error) {
	if tab != "" {
		return s.Select(ctx, tab)
	}
	page, err := s.Start(ctx)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: no tabs yet, create one with \"ordertracker tab create\"", types.ErrNotFound)
	}
	return page, nil
}

// readOnly turns ErrReadOnly into a notice: with admin mode off a mutating
// command does nothing and still succeeds.
func readOnly(cmd *cobra.Command, err error) error {
	if errors.Is(err, session.ErrReadOnly) {
		fmt.Fprintln(cmd.ErrOrStderr(), "admin mode is off; nothing was changed")
		return nil
	}
	return err
}

func configErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrInvalidConfig, err)
}
