package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mesh-intelligence/ordertracker/internal/session"
)

// errCancelled is returned when the user aborts a prompt.
var errCancelled = errors.New("cancelled")

// Prompter asks the user for values.
type Prompter interface {
	// Ask reads one value. current pre-fills the answer and is returned
	// when the user enters nothing; choices are offered for completion.
	Ask(label, current string, choices []string) (string, error)
	// Confirm asks a yes/no question. The default is no.
	Confirm(question string) (bool, error)
	Close() error
}

// prompterFor returns the injected prompter, a readline prompter when the
// command reads from a terminal, or a line prompter otherwise.
func (a *app) prompterFor(cmd *cobra.Command) (Prompter, error) {
	if a.prompter != nil {
		return a.prompter, nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p, err := newReadlinePrompter(&readline.Config{
			Stdin:  f,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
		if err != nil {
			return nil, err
		}
		a.prompter = p
		return p, nil
	}
	a.prompter = &linePrompter{in: bufio.NewReader(in), out: cmd.ErrOrStderr()}
	return a.prompter, nil
}

type readlinePrompter struct {
	rl     *readline.Instance
	base   *readline.Config
	// shared is set when rl belongs to the shell, which closes it.
	shared bool
}

func newReadlinePrompter(cfg *readline.Config) (*readlinePrompter, error) {
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &readlinePrompter{rl: rl, base: rl.Config.Clone()}, nil
}

func (p *readlinePrompter) Ask(label, current string, choices []string) (string, error) {
	cfg := p.base.Clone()
	cfg.Prompt = label + ": "
	cfg.AutoComplete = choiceCompleter(choices)
	p.rl.SetConfig(cfg)
	defer p.rl.SetConfig(p.base.Clone())

	line, err := p.rl.ReadlineWithDefault(current)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errCancelled
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

func (p *readlinePrompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question+" [y/N]", "", []string{"yes", "no"})
	if errors.Is(err, errCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func (p *readlinePrompter) Close() error {
	if p.shared {
		return nil
	}
	return p.rl.Close()
}

func choiceCompleter(choices []string) readline.AutoCompleter {
	items := make([]readline.PrefixCompleterInterface, len(choices))
	for i, c := range choices {
		items[i] = readline.PcItem(c)
	}
	return readline.NewPrefixCompleter(items...)
}

// linePrompter reads answers line by line, for pipes and tests.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *linePrompter) Ask(label, current string, choices []string) (string, error) {
	fmt.Fprint(p.out, label)
	if len(choices) > 0 {
		fmt.Fprintf(p.out, " [%s]", strings.Join(choices, "/"))
	}
	if current != "" {
		fmt.Fprintf(p.out, " (%s)", current)
	}
	fmt.Fprint(p.out, ": ")

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errCancelled
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

func (p *linePrompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question+" [y/N]", "", nil)
	if errors.Is(err, errCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func (p *linePrompter) Close() error { return nil }

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// askField asks for the value of one field until it fits the field's
// setting. An empty answer keeps current.
func askField(p Prompter, w io.Writer, f session.Field, current string) (string, error) {
	for {
		value, err := p.Ask(f.Column, current, f.Setting.Choices)
		if err != nil {
			return "", err
		}
		if value == "" || f.Setting.Allows(value) {
			return value, nil
		}
		fmt.Fprintf(w, "%q is not a choice for %s; pick one of: %s\n",
			value, f.Column, strings.Join(f.Setting.Choices, ", "))
	}
}
