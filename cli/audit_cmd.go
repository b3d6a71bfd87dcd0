package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yomi/budget-engine/api"
)

func newAuditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every project budget for orphan, cyclic and unvalued lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			h := api.NewHandler(store, app.Logger, app.Config.Production.BaseShiftHours)
			audits := api.NewAuditScheduler(store, h.Budget, app.Logger).RunNow(cmd.Context())

			rows := make([][]string, 0, len(audits))
			dirty := 0
			for _, a := range audits {
				status := "ok"
				switch {
				case a.Err != nil:
					status = "error: " + a.Err.Error()
					dirty++
				case !a.Report.Clean():
					status = "findings"
					dirty++
				}
				rows = append(rows, []string{
					string(a.ProjectID),
					strconv.Itoa(a.Lines),
					strconv.Itoa(len(a.Report.Orphans)),
					strconv.Itoa(len(a.Report.Unreachable)),
					strconv.Itoa(len(a.Report.Failed)),
					status,
				})
			}
			if err := renderTable(cmd.OutOrStdout(), table{
				Headers: []string{"PROJECT", "LINES", "ORPHANS", "UNREACHABLE", "FAILED", "STATUS"},
				Rows:    rows,
				Right:   []int{1, 2, 3, 4},
			}); err != nil {
				return err
			}
			if dirty > 0 {
				return fmt.Errorf("%d of %d projects have findings", dirty, len(audits))
			}
			return nil
		},
	}
}
