package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mesh-intelligence/ordertracker/internal/session"
	"github.com/mesh-intelligence/ordertracker/internal/view"
)

const historyFileName = ".ordertracker_history"

const shellHelp = `Commands:
  tabs                          list tabs
  use TAB                       select a tab and show it
  show                          reload the selected tab in ID order
  sort COLUMN                   sort by COLUMN; again to flip the direction
  add [COLUMN=VALUE...]         add a row; asks for each column without arguments
  edit ID COLUMN [VALUE]        change one field; asks with the current value
  delete ID                     delete a row
  new TAB COLUMN[,COLUMN...]    create a tab
  drop TAB                      delete a tab after confirmation
  settings                      show the column input settings
  set COLUMN=SETTING...         SETTING is text or dropdown:A,B,C
  export FILE                   write the selected tab to a JSON Lines file
  import FILE                   append rows from a JSON Lines file
  admin [on|off]                show or switch admin mode
  help                          this text
  quit                          leave the shell
`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "shell",
		Aliases: []string{"repl"},
		Short:   "Work with tabs interactively",
		Long: "Start an interactive session. The selected tab, the sort toggle and\n" +
			"admin mode are kept between commands. Type help for the command list.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			sh := &shell{ctx: ctx, a: a, s: s, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && a.prompter == nil && term.IsTerminal(int(f.Fd())) {
				return sh.runTerminal(f)
			}
			return sh.runLines(in)
		},
	}
}

// shell runs line commands against one session.
type shell struct {
	ctx    context.Context
	a      *app
	s      *session.Session
	p      Prompter
	out    io.Writer
	errOut io.Writer
}

func (sh *shell) runTerminal(in *os.File) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            sh.prompt(),
		HistoryFile:       filepath.Join(sh.a.dataDir, historyFileName),
		AutoComplete:      sh.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		Stdin:             in,
		Stdout:            sh.out,
		Stderr:            sh.errOut,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()
	sh.p = &readlinePrompter{rl: rl, base: rl.Config.Clone(), shared: true}

	sh.start()
	for {
		rl.SetPrompt(sh.prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.exec(line) {
			return nil
		}
	}
}

// runLines reads commands from a pipe. Prompts read their answers from the
// same input.
func (sh *shell) runLines(in io.Reader) error {
	r := bufio.NewReader(in)
	sh.p = sh.a.prompter
	if sh.p == nil {
		sh.p = &linePrompter{in: r, out: sh.errOut}
	}

	sh.start()
	for {
		line, err := r.ReadString('\n')
		if line != "" && sh.exec(line) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (sh *shell) prompt() string {
	tab := sh.s.Tab()
	if tab == "" {
		tab = "-"
	}
	if !sh.s.Admin() {
		tab += " ro"
	}
	return "ordertracker[" + tab + "]> "
}

// start selects the first tab, as opening the tracker does.
func (sh *shell) start() {
	page, err := sh.s.Start(sh.ctx)
	if err != nil {
		sh.report(err)
		return
	}
	if page == nil {
		fmt.Fprintln(sh.out, "No tabs yet. Create one with: new TAB COLUMN,COLUMN")
		return
	}
	sh.report(sh.a.renderer(sh.out).Page(page))
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(line string) bool {
	args, err := splitArgs(line)
	if err != nil {
		sh.report(err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	name, args := strings.ToLower(args[0]), args[1:]
	if name == "quit" || name == "exit" || name == "q" {
		return true
	}
	sh.report(sh.run(name, args))
	return false
}

func (sh *shell) run(name string, args []string) error {
	ctx := sh.ctx
	switch name {
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
		return nil

	case "tabs":
		tabs, err := sh.s.Tabs(ctx)
		if err != nil {
			return err
		}
		records := make([][]string, len(tabs))
		for i, t := range tabs {
			records[i] = []string{t}
		}
		return sh.a.renderer(sh.out).Records([]string{"Tab"}, records)

	case "use":
		if len(args) != 1 {
			return usage("use TAB")
		}
		return sh.show(sh.s.Select(ctx, args[0]))

	case "show", "load":
		return sh.show(sh.s.Load(ctx))

	case "sort":
		if len(args) != 1 {
			return usage("sort COLUMN")
		}
		return sh.show(sh.s.SortBy(ctx, args[0]))

	case "add":
		fields, err := parseAssignments(args)
		if err != nil {
			return err
		}
		if len(args) == 0 && sh.s.Admin() && sh.s.Tab() != "" {
			if fields, err = askRow(ctx, sh.s, sh.p, sh.errOut); err != nil {
				return err
			}
		}
		id, err := sh.s.AddRow(ctx, fields)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Added row %d\n", id)
		return sh.show(sh.s.Load(ctx))

	case "edit":
		if len(args) < 2 || len(args) > 3 {
			return usage("edit ID COLUMN [VALUE]")
		}
		id, err := parseRowID(args[0])
		if err != nil {
			return err
		}
		var value string
		if len(args) == 3 {
			value = args[2]
		} else if sh.s.Admin() && sh.s.Tab() != "" {
			if value, err = askEdit(ctx, sh.s, sh.p, sh.errOut, id, args[1]); err != nil {
				return err
			}
		}
		if err := sh.s.EditRow(ctx, id, args[1], value); err != nil {
			return err
		}
		return sh.show(sh.s.Load(ctx))

	case "delete":
		if len(args) != 1 {
			return usage("delete ID")
		}
		id, err := parseRowID(args[0])
		if err != nil {
			return err
		}
		if err := sh.s.DeleteRow(ctx, id); err != nil {
			return err
		}
		return sh.show(sh.s.Load(ctx))

	case "new":
		if len(args) < 2 {
			return usage("new TAB COLUMN[,COLUMN...]")
		}
		if err := sh.s.CreateTab(ctx, args[0], joinColumns(args[1:])); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Created tab %s\n", args[0])
		return nil

	case "drop":
		if len(args) != 1 {
			return usage("drop TAB")
		}
		if sh.s.Admin() {
			ok, err := sh.p.Confirm(fmt.Sprintf("Delete tab %s and all its rows?", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(sh.out, "Cancelled")
				return nil
			}
		}
		if err := sh.s.DeleteTab(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Deleted tab %s\n", args[0])
		return nil

	case "settings":
		return showForm(ctx, sh.a, sh.s, sh.out)

	case "set":
		if len(args) == 0 {
			return usage("set COLUMN=SETTING...")
		}
		updates, err := parseSettings(args)
		if err != nil {
			return err
		}
		if err := sh.s.ConfigureColumns(ctx, updates); err != nil {
			return err
		}
		return showForm(ctx, sh.a, sh.s, sh.out)

	case "export":
		if len(args) != 1 {
			return usage("export FILE")
		}
		if sh.s.Tab() == "" {
			return session.ErrNoTab
		}
		n, err := sh.s.ExportTab(ctx, sh.s.Tab(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Exported %d rows to %s\n", n, args[0])
		return nil

	case "import":
		if len(args) != 1 {
			return usage("import FILE")
		}
		if sh.s.Tab() == "" {
			return session.ErrNoTab
		}
		n, err := sh.s.ImportTab(ctx, sh.s.Tab(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Imported %d rows\n", n)
		return sh.show(sh.s.Load(ctx))

	case "admin":
		switch {
		case len(args) == 0:
		case strings.EqualFold(args[0], "on"):
			sh.s.SetAdmin(true)
		case strings.EqualFold(args[0], "off"):
			sh.s.SetAdmin(false)
		default:
			return usage("admin [on|off]")
		}
		state := "off"
		if sh.s.Admin() {
			state = "on"
		}
		fmt.Fprintf(sh.out, "Admin mode is %s\n", state)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q (type help)", errUsage, name)
	}
}

func (sh *shell) show(page *view.Page, err error) error {
	if err != nil {
		return err
	}
	return sh.a.renderer(sh.out).Page(page)
}

// report prints a command error. The shell keeps running.
func (sh *shell) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrReadOnly):
		fmt.Fprintln(sh.errOut, "Admin mode is off; nothing was changed")
	case errors.Is(err, errCancelled):
		fmt.Fprintln(sh.errOut, "Cancelled")
	default:
		fmt.Fprintln(sh.errOut, "Error:", err)
	}
}

func (sh *shell) completer() readline.AutoCompleter {
	tabs := readline.PcItemDynamic(sh.tabNames)
	return readline.NewPrefixCompleter(
		readline.PcItem("tabs"),
		readline.PcItem("use", tabs),
		readline.PcItem("show"),
		readline.PcItem("sort", readline.PcItemDynamic(sh.columnNames)),
		readline.PcItem("add", readline.PcItemDynamic(sh.assignments)),
		readline.PcItem("edit"),
		readline.PcItem("delete"),
		readline.PcItem("new"),
		readline.PcItem("drop", tabs),
		readline.PcItem("settings"),
		readline.PcItem("set", readline.PcItemDynamic(sh.assignments)),
		readline.PcItem("export"),
		readline.PcItem("import"),
		readline.PcItem("admin", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (sh *shell) tabNames(string) []string {
	tabs, _ := sh.a.store.ListTabs(sh.ctx)
	return tabs
}

func (sh *shell) columnNames(string) []string {
	if sh.s.Tab() == "" {
		return nil
	}
	columns, _ := sh.a.store.Columns(sh.ctx, sh.s.Tab())
	return columns
}

func (sh *shell) assignments(string) []string {
	if sh.s.Tab() == "" {
		return nil
	}
	columns, _ := sh.a.store.UserColumns(sh.ctx, sh.s.Tab())
	for i, c := range columns {
		columns[i] = c + "="
	}
	return columns
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", errUsage, form)
}

// splitArgs splits a command line into words with shell quoting rules.
// Unquoted ; & | < and > are rejected rather than cutting the line short.
func splitArgs(line string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if r := []rune(line); p.Position >= 0 && p.Position < len(r) {
		return nil, fmt.Errorf("%w: quote %q to use it in a value", errUsage, string(r[p.Position]))
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
