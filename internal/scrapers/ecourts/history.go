package ecourts

import (
	"ecourts-backend/internal/casedate"
)

// the hearing date is the third column of the history table
const historyDateColumn = 2

// FilterHistory keeps the rows whose hearing date is on or after the cutoff, in
// their original order. Rows without a parseable hearing date are dropped.
func FilterHistory(rows [][]string, cutoff casedate.Date) [][]string {
	var kept [][]string
	for _, row := range rows {
		if len(row) <= historyDateColumn {
			continue
		}
		date, err := casedate.ParsePortal(row[historyDateColumn])
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// HistoryEntries converts filtered rows into typed entries.
func HistoryEntries(rows [][]string) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(rows))
	for i, row := range rows {
		entry := HistoryEntry{Ordinal: i + 1, Cells: row}
		if len(row) > 0 {
			entry.Judge = row[0]
		}
		if len(row) > 1 {
			entry.BusinessOnDate = row[1]
		}
		if len(row) > historyDateColumn {
			entry.HearingDate, _ = casedate.ParsePortal(row[historyDateColumn])
		}
		if len(row) > 3 {
			entry.Purpose = row[3]
		}
		entries = append(entries, entry)
	}
	return entries
}
