package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ordertracker/internal/view"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		tab  string
		sort string
		desc bool
	)
	cmd := &cobra.Command{
		Use:   "show [TAB]",
		Short: "Show the rows of a tab",
		Long: "Show every row of a tab, coloured by Priority. Without a tab the first\n" +
			"tab in alphabetical order is shown. Empty values sort last.",
		Example: "  ordertracker show Orders --sort OrderID --desc",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				tab = args[0]
			}
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			page, err := selectTab(cmd.Context(), s, tab)
			if err != nil {
				return err
			}
			if sort != "" {
				page, err = s.Sort(cmd.Context(), view.SortKey{Column: sort, Ascending: !desc})
				if err != nil {
					return err
				}
			}
			return a.renderer(cmd.OutOrStdout()).Page(page)
		},
	}
	cmd.Flags().StringVarP(&tab, "tab", "t", "", "tab to show")
	cmd.Flags().StringVarP(&sort, "sort", "s", "", "column to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}
