package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yomi/budget-engine/tax"
)

func newCalcCmd(app *App) *cobra.Command {
	var rate, quantity, scheme string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Value rate x quantity under a tax scheme",
		Example: `  budgetctl calc --rate 1000 --scheme sys-sz
  budgetctl calc --rate 45000 --qty 30 --scheme usn --db budget.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("invalid --rate %q", rate)
			}
			q, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid --qty %q", quantity)
			}

			var components []tax.Component
			if scheme != "" {
				catalog, err := app.Catalog(cmd)
				if err != nil {
					return err
				}
				s, ok := catalog.LookupScheme(tax.SchemeID(scheme))
				if !ok {
					return &tax.SchemeNotFoundError{ID: tax.SchemeID(scheme)}
				}
				components = s.Ordered()
			}

			res, err := tax.Calc(r, q, components)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := renderTable(out, table{
				Headers: []string{"", "PER UNIT", "TOTAL"},
				Rows: [][]string{
					{"Net", money(res.PerUnit.Net), money(res.Subtotal)},
					{"Tax", money(res.PerUnit.Tax), money(res.TaxAmount)},
				},
				Total: []string{"Gross", money(res.PerUnit.Gross), money(res.Total)},
				Right: []int{1, 2},
			}); err != nil {
				return err
			}
			if len(res.Breakdown) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			rows := make([][]string, 0, len(res.Breakdown))
			for _, b := range res.Breakdown {
				rows = append(rows, []string{
					b.Name, b.Rate.String(), string(b.Mode), string(b.Recipient), money(b.AmountTotal),
				})
			}
			return renderTable(out, table{
				Headers: []string{"COMPONENT", "RATE", "MODE", "RECIPIENT", "AMOUNT"},
				Rows:    rows,
				Right:   []int{1, 4},
			})
		},
	}

	cmd.Flags().StringVar(&rate, "rate", "0", "price per unit")
	cmd.Flags().StringVar(&quantity, "qty", "1", "number of units")
	cmd.Flags().StringVar(&scheme, "scheme", "", "tax scheme id (none for no tax)")
	return cmd
}
