package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yomi/budget-engine/production"
)

func newOvertimeCmd(app *App) *cobra.Command {
	var (
		start, end, base string
		lunch, gap       int
	)

	cmd := &cobra.Command{
		Use:     "overtime",
		Short:   "Overtime hours of one shift",
		Example: `  budgetctl overtime --start 08:00 --end 23:30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := production.ParseClock(start)
			if err != nil {
				return err
			}
			e, err := production.ParseClock(end)
			if err != nil {
				return err
			}
			if lunch < 0 || gap < 0 {
				return fmt.Errorf("breaks must be non-negative")
			}

			hours := app.Config.Production.BaseShiftHours
			if base != "" {
				if hours, err = decimal.NewFromString(base); err != nil || !hours.IsPositive() {
					return fmt.Errorf("invalid --base %q", base)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), production.Overtime(s, e, lunch, gap, hours).StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "shift start HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "shift end HH:MM")
	cmd.Flags().IntVar(&lunch, "lunch", production.DefaultLunchMinutes, "lunch break in minutes")
	cmd.Flags().IntVar(&gap, "gap", 0, "other breaks in minutes")
	cmd.Flags().StringVar(&base, "base", "", "base shift hours (default from config)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
