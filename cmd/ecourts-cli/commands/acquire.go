package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ecourts-backend/internal/app"
	"ecourts-backend/internal/chrono"
	"ecourts-backend/internal/ledger"
	"ecourts-backend/internal/pipeline"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	acquireJSON   *bool
	acquireRecord *bool
	acquireHeaded *bool
)

func init() {
	acquireJSON = acquireCmd.Flags().Bool("json", false, "Print the result as json instead of tables.")
	acquireRecord = acquireCmd.Flags().Bool("record", false, "Record the run in the configured ledger.")
	acquireHeaded = acquireCmd.Flags().Bool("headed", false, "Show the browser window.")
	rootCmd.AddCommand(acquireCmd)
}

var acquireCmd = &cobra.Command{
	Use:   "acquire <cnr> <next hearing date>",
	Short: "Acquires a single case record through the portal.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		query, err := pipeline.ParseQuery(args[0], args[1])
		if err != nil {
			serviceutil.Fatal("invalid query", err)
		}

		cfg, err := app.LoadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if *acquireHeaded {
			cfg.Browser.Headed = true
		}

		clock, err := chrono.NewStandardImpl()
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}
		orchestrator, err := app.BuildOrchestrator(ctx, cfg, clock, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to initialize pipeline", err)
		}

		slog.Info("acquiring", "query", query.String())
		started := time.Now()
		result := orchestrator.Acquire(ctx, query)
		finished := time.Now()
		slog.Info("acquisition finished",
			"outcome", result.Outcome.String(),
			"attempts", result.Attempts,
			"seconds", finished.Sub(started).Seconds(),
		)

		if *acquireRecord {
			runs, err := ledger.Open(cfg.Ledger)
			if err != nil {
				serviceutil.Fatal("failed to open ledger", err)
			}
			_, err = runs.Record(ctx, ledger.Run{
				CaseID:     query.CaseID(),
				Cutoff:     query.Cutoff().String(),
				Outcome:    result.Outcome.String(),
				Reason:     result.Reason,
				Attempts:   result.Attempts,
				Orders:     len(result.Orders),
				StartedAt:  started,
				FinishedAt: finished,
			})
			runs.Close()
			if err != nil {
				serviceutil.Fatal("failed to record run", err)
			}
		}

		if *acquireJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err = encoder.Encode(result)
			if err != nil {
				serviceutil.Fatal("failed to encode result", err)
			}
			return
		}
		printResult(result)
	},
}

func printResult(result pipeline.Result) {
	if result.Outcome != pipeline.Success {
		fmt.Printf("%s after %d attempt(s): %s\n", result.Outcome, result.Attempts, result.Reason)
		return
	}

	details := newTable()
	details.SetTitle("Case details")
	for label, value := range result.Record.CaseDetails {
		details.AppendRow(table.Row{label, value})
	}
	details.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})
	details.Render()

	history := newTable()
	history.SetTitle("History")
	history.AppendHeader(table.Row{"#", "Judge", "Business on date", "Hearing date", "Purpose"})
	for _, entry := range result.Record.History {
		history.AppendRow(table.Row{
			entry.Ordinal,
			entry.Judge,
			entry.BusinessOnDate,
			entry.HearingDate.String(),
			entry.Purpose,
		})
	}
	history.Render()

	orders := newTable()
	orders.SetTitle("Orders")
	orders.AppendHeader(table.Row{"Table", "Row", "Date", "Pages", "Reference"})
	for _, order := range result.Orders {
		orders.AppendRow(table.Row{
			order.Table,
			order.Row,
			order.OrderDate.String(),
			order.Pages,
			order.StorageReference,
		})
	}
	orders.Render()

	if len(result.Record.FIRDetails) > 0 {
		parts := make([]string, 0, len(result.Record.FIRDetails))
		for key, value := range result.Record.FIRDetails {
			parts = append(parts, key+" "+value)
		}
		fmt.Println("FIR:", strings.Join(parts, "; "))
	}
}
