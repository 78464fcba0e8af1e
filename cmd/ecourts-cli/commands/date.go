package commands

import (
	"fmt"

	"ecourts-backend/internal/casedate"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(dateCmd)
}

var dateCmd = &cobra.Command{
	Use:   "date <text>...",
	Short: "Normalizes free-form dates the way cutoff dates are read.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable()
		t.AppendHeader([]any{"Input", "Date"})
		for _, arg := range args {
			date, err := casedate.Parse(arg)
			if err != nil {
				t.AppendRow([]any{arg, fmt.Sprintf("error: %v", err)})
				continue
			}
			t.AppendRow([]any{arg, date.String()})
		}
		t.Render()
	},
}
