package ecourts

import (
	"ecourts-backend/internal/casedate"
)

// CaseRecord is everything extracted from a case's result page.
type CaseRecord struct {
	// CaseDetails maps the labels of the case details table to their values.
	CaseDetails map[string]string
	CaseStatus  [][]string
	Petitioners [][]string
	Respondents [][]string
	Acts        [][]string
	// FIRDetails maps the first cell of each FIR row to its second cell.
	FIRDetails map[string]string
	Transfers  [][]string
	// History only holds the entries on or after the query's cutoff date.
	History []HistoryEntry
}

// HistoryEntry is one row of the case history table.
type HistoryEntry struct {
	// Ordinal is the 1-based position of the row among the kept entries.
	Ordinal        int
	Judge          string
	BusinessOnDate string
	HearingDate    casedate.Date
	Purpose        string
	// Cells holds the raw row as displayed.
	Cells []string
}

// OrderTable identifies one of the tables orders are listed in.
type OrderTable struct {
	// Tag goes into stored file names, ex. "order" or "finalOrder".
	Tag      string
	Selector string
}

// OrderDocument is an order that was downloaded and stored.
type OrderDocument struct {
	Table            string
	Row              int
	OrderNumber      string
	OrderDate        casedate.Date
	SourceLink       string
	FileName         string
	StorageReference string
	Pages            int
}
