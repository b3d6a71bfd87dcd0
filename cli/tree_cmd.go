package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yomi/budget-engine/api"
	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/factory"
)

func newTreeCmd(app *App) *cobra.Command {
	var projectID, templatePath string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print a valued budget tree",
		Long: `Print a valued budget tree.

With --project the tree is read from the database. Otherwise a template
file (or the default film chart) is valued in memory.`,
		Example: `  budgetctl tree --project p-feature --db budget.db
  budgetctl tree --template chart.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				forest budget.Forest
				report budget.Report
			)
			switch {
			case projectID != "":
				store, err := app.Store()
				if err != nil {
					return err
				}
				h := api.NewHandler(store, app.Logger, app.Config.Production.BaseShiftHours)
				if forest, report, err = h.Budget.Tree(cmd.Context(), budget.ProjectID(projectID)); err != nil {
					return err
				}

			default:
				items := budget.DefaultTemplate()
				if templatePath != "" {
					data, err := os.ReadFile(templatePath)
					if err != nil {
						return err
					}
					if items, err = factory.New().ParseTemplate(data); err != nil {
						return err
					}
				}
				catalog, err := app.Catalog(cmd)
				if err != nil {
					return err
				}
				forest, report = budget.Build(budget.TemplateToLines("template", items, nil), catalog.Resolver())
			}

			return printForest(cmd, forest, report)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id to read from the database")
	cmd.Flags().StringVar(&templatePath, "template", "", "template JSON file to value")
	cmd.MarkFlagsMutuallyExclusive("project", "template")
	return cmd
}

func printForest(cmd *cobra.Command, forest budget.Forest, report budget.Report) error {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, forest.Len())
	for _, row := range forest.Flatten() {
		n := row.Node
		flag := ""
		switch {
		case n.Err != nil:
			flag = "error: " + n.Err.Error()
		case n.Partial:
			flag = "partial"
		}
		rows = append(rows, []string{
			n.Line.Code,
			strings.Repeat("  ", row.Depth) + n.Line.Name,
			money(n.Computed.Subtotal),
			money(n.Computed.TaxAmount),
			money(n.Computed.Total),
			string(n.Scheme),
			flag,
		})
	}
	totals := forest.Totals()

	if err := renderTable(out, table{
		Headers: []string{"CODE", "NAME", "NET", "TAX", "GROSS", "SCHEME", ""},
		Rows:    rows,
		Total:   []string{"", "TOTAL", money(totals.Subtotal), money(totals.TaxAmount), money(totals.Total), "", ""},
		Right:   []int{2, 3, 4},
	}); err != nil {
		return err
	}

	for _, id := range report.Orphans {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: line %s has a missing parent\n", id)
	}
	for _, id := range report.Unreachable {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: line %s is on a parent cycle\n", id)
	}
	return nil
}
