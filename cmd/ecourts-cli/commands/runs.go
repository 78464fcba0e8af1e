package commands

import (
	"time"

	"ecourts-backend/internal/app"
	"ecourts-backend/internal/ledger"
	"ecourts-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit *int

func init() {
	runsLimit = runsCmd.Flags().Int("limit", 20, "The maximum number of runs to list.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [cnr]",
	Short: "Lists recorded acquisitions, newest first.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := app.LoadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		runs, err := ledger.Open(cfg.Ledger)
		if err != nil {
			serviceutil.Fatal("failed to open ledger", err)
		}
		defer runs.Close()

		caseID := ""
		if len(args) > 0 {
			caseID = args[0]
		}
		list, err := runs.Recent(cmd.Context(), caseID, *runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Started", "CNR", "Cutoff", "Outcome", "Attempts", "Orders", "Duration", "Reason"})
		for _, run := range list {
			t.AppendRow(table.Row{
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.CaseID,
				run.Cutoff,
				run.Outcome,
				run.Attempts,
				run.Orders,
				run.Duration().Round(time.Second).String(),
				run.Reason,
			})
		}
		t.Render()
	},
}
