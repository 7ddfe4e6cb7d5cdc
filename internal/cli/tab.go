package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tab",
		Short: "List, create and delete tabs",
	}
	cmd.AddCommand(newTabListCmd(a))
	cmd.AddCommand(newTabCreateCmd(a))
	cmd.AddCommand(newTabDeleteCmd(a))
	cmd.AddCommand(newTabColumnsCmd(a))
	cmd.AddCommand(newTabExportCmd(a))
	cmd.AddCommand(newTabImportCmd(a))
	return cmd
}

func newTabListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tabs in alphabetical order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			tabs, err := s.Tabs(cmd.Context())
			if err != nil {
				return err
			}
			records := make([][]string, len(tabs))
			for i, t := range tabs {
				records[i] = []string{t}
			}
			return a.renderer(cmd.OutOrStdout()).Records([]string{"Tab"}, records)
		},
	}
}

func newTabCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME COLUMN[,COLUMN...]",
		Short: "Create a tab with the given columns",
		Long: "Create a tab. Columns are comma-separated and may also be given as\n" +
			"separate arguments. ID, Created_At and Last_Updated are added automatically.",
		Example: "  ordertracker tab create Orders \"Customer, OrderID, Priority\"",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.CreateTab(cmd.Context(), args[0], joinColumns(args[1:])); err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tab %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
}

func newTabDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a tab with all its rows and settings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			if !s.Admin() {
				return readOnly(cmd, s.DeleteTab(cmd.Context(), args[0]))
			}
			if !yes {
				p, err := a.prompterFor(cmd)
				if err != nil {
					return err
				}
				ok, err := p.Confirm(fmt.Sprintf("Delete tab %s and all its rows?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}
			if err := s.DeleteTab(cmd.Context(), args[0]); err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tab %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newTabColumnsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "columns NAME",
		Short: "List the columns of a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openSession(cmd.Context()); err != nil {
				return err
			}
			list := a.store.UserColumns
			if all {
				list = a.store.Columns
			}
			columns, err := list(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records := make([][]string, len(columns))
			for i, c := range columns {
				records[i] = []string{c}
			}
			return a.renderer(cmd.OutOrStdout()).Records([]string{"Column"}, records)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include ID and the timestamp columns")
	return cmd
}

func newTabExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export NAME FILE",
		Short: "Write the rows of a tab to a JSON Lines file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.ExportTab(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows from %s to %s\n", n, args[0], args[1])
			return nil
		},
	}
}

func newTabImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Append the rows of a JSON Lines file to a tab",
		Long: "Append rows from a JSON Lines file, one object per line keyed by column\n" +
			"name. Rows get fresh IDs and timestamps. Nothing is added if any line is invalid.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.ImportTab(cmd.Context(), args[0], args[1])
			if err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", n, args[0])
			return nil
		},
	}
}

// joinColumns joins column arguments into one comma-separated list, so
// "Customer," "OrderID" and "Customer, OrderID" mean the same.
func joinColumns(args []string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.Trim(a, " \t,"); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, ",")
}
