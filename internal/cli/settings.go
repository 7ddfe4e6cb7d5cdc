package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ordertracker/internal/session"
	"github.com/mesh-intelligence/ordertracker/pkg/types"
)

func newSettingsCmd(a *app) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change how each column is entered",
	}
	cmd.PersistentFlags().StringVarP(&tab, "tab", "t", "", "tab to configure (default: first tab)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the input setting of every column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rowSession(cmd.Context(), a, tab)
			if err != nil {
				return err
			}
			return showForm(cmd.Context(), a, s, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set COLUMN=SETTING...",
		Short: "Make columns free text or dropdowns",
		Long: "Change the input setting of the named columns. SETTING is \"text\" or\n" +
			"\"dropdown:CHOICE,CHOICE,...\". Columns not named keep their setting.",
		Example: "  ordertracker settings set --tab Orders Priority=dropdown:High,Medium,Low Customer=text",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseSettings(args)
			if err != nil {
				return err
			}
			s, err := rowSession(cmd.Context(), a, tab)
			if err != nil {
				return err
			}
			if err := s.ConfigureColumns(cmd.Context(), updates); err != nil {
				return readOnly(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings of %s\n", s.Tab())
			return nil
		},
	})
	return cmd
}

var formHeader = []string{"Column", "Input", "Choices"}

func formRecords(form session.Form) [][]string {
	records := make([][]string, len(form))
	for i, f := range form {
		records[i] = []string{f.Column, string(f.Setting.Kind), strings.Join(f.Setting.Choices, ", ")}
	}
	return records
}

// parseSettings parses COLUMN=SETTING arguments.
func parseSettings(args []string) (map[string]types.ColumnSetting, error) {
	assignments, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]types.ColumnSetting, len(assignments))
	for column, spec := range assignments {
		setting, err := types.ParseColumnSetting(spec)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		updates[column] = setting
	}
	return updates, nil
}

// showForm renders the settings of the current tab.
func showForm(ctx context.Context, a *app, s *session.Session, w io.Writer) error {
	form, err := s.Form(ctx)
	if err != nil {
		return err
	}
	return a.renderer(w).Records(formHeader, formRecords(form))
}
