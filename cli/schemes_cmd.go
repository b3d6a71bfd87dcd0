package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSchemesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List tax schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := app.Catalog(cmd)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, s := range catalog.Schemes() {
				parts := make([]string, 0, len(s.Components))
				for _, c := range s.Ordered() {
					parts = append(parts, c.Name+" "+c.Rate.Shift(2).String()+"% "+string(c.Mode))
				}
				system := ""
				if s.IsSystem {
					system = "yes"
				}
				rows = append(rows, []string{string(s.ID), s.Name, system, strings.Join(parts, ", ")})
			}
			return renderTable(cmd.OutOrStdout(), table{
				Headers: []string{"ID", "NAME", "SYSTEM", "COMPONENTS"},
				Rows:    rows,
			})
		},
	}
}
