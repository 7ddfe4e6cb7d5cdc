package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ordertracker/internal/session"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

// errUsage marks malformed command arguments.
var errUsage = errors.New("usage")

func newRowCmd(a *app) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "row",
		Short: "Add, edit and delete rows",
	}
	cmd.PersistentFlags().StringVarP(&tab, "tab", "t", "", "tab to work on (default: first tab)")
	cmd.AddCommand(newRowAddCmd(a, &tab))
	cmd.AddCommand(newRowEditCmd(a, &tab))
	cmd.AddCommand(newRowDeleteCmd(a, &tab))
	return cmd
}

// rowSession opens a session with tab selected.
func rowSession(ctx context.Context, a *app, tab string) (*session.Session, error) {
	s, err := a.openSession(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := selectTab(ctx, s, tab); err != nil {
		return nil, err
	}
	return s, nil
}

func newRowAddCmd(a *app, tab *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add [COLUMN=VALUE...]",
		Short: "Add a row",
		Long: "Add a row to a tab. Columns not given are left empty. Without arguments\n" +
			"every column is asked for; dropdown columns offer their choices.",
		Example: "  ordertracker row add --tab Orders Customer=Acme Priority=High",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rowSession(ctx, a, *tab)
			if err != nil {
				return err
			}
			fields, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if len(args) == 0 && s.Admin() {
				p, err := a.prompterFor(cmd)
				if err != nil {
					return err
				}
				if fields, err = askRow(ctx, s, p, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			id, err := s.AddRow(ctx, fields)
			if err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added row %d to %s\n", id, s.Tab())
			return nil
		},
	}
}

func newRowEditCmd(a *app, tab *string) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID COLUMN [VALUE]",
		Short: "Change one field of a row",
		Long: "Change one field of a row and refresh its Last_Updated time. Without a\n" +
			"value the current one is offered for editing.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			s, err := rowSession(ctx, a, *tab)
			if err != nil {
				return err
			}

			column := args[1]
			var value string
			if len(args) == 3 {
				value = args[2]
			} else if s.Admin() {
				p, err := a.prompterFor(cmd)
				if err != nil {
					return err
				}
				if value, err = askEdit(ctx, s, p, cmd.ErrOrStderr(), id, column); err != nil {
					return err
				}
			}
			if err := s.EditRow(ctx, id, column, value); err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated row %d of %s\n", id, s.Tab())
			return nil
		},
	}
}

func newRowDeleteCmd(a *app, tab *string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a row",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			s, err := rowSession(cmd.Context(), a, *tab)
			if err != nil {
				return err
			}
			if err := s.DeleteRow(cmd.Context(), id); err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted row %d from %s\n", id, s.Tab())
			return nil
		},
	}
}

// askRow prompts for every editable column of the current tab. Empty
// answers are left out of the result.
func askRow(ctx context.Context, s *session.Session, p Prompter, w io.Writer) (map[string]string, error) {
	form, err := s.Form(ctx)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(form))
	for _, f := range form {
		value, err := askField(p, w, f, "")
		if err != nil {
			return nil, err
		}
		if value != "" {
			fields[f.Column] = value
		}
	}
	return fields, nil
}

// askEdit prompts for a new value of column in row id, pre-filled with the
// current value.
func askEdit(ctx context.Context, s *session.Session, p Prompter, w io.Writer, id int64, column string) (string, error) {
	form, err := s.Form(ctx)
	if err != nil {
		return "", err
	}
	f, ok := form.Field(column)
	if !ok {
		return "", fmt.Errorf("%w: %q is not an editable column of tab %q", types.ErrInvalidColumn, column, s.Tab())
	}
	grid, err := s.Row(ctx, id)
	if err != nil {
		return "", err
	}
	return askField(p, w, f, grid.Field(grid.Rows[0], f.Column).String)
}

// parseAssignments parses COLUMN=VALUE arguments. Values may be empty;
// a column may be named once, ignoring case.
func parseAssignments(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	seen := make(map[string]string, len(args))
	for _, arg := range args {
		column, value, ok := strings.Cut(arg, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("%w: expected COLUMN=VALUE, got %q", errUsage, arg)
		}
		if prev, dup := seen[strings.ToLower(column)]; dup {
			return nil, fmt.Errorf("%w: %q and %q name the same column", types.ErrDuplicateName, prev, column)
		}
		seen[strings.ToLower(column)] = column
		fields[column] = value
	}
	return fields, nil
}

func parseRowID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: row ID must be a positive integer, got %q", errUsage, s)
	}
	return id, nil
}
