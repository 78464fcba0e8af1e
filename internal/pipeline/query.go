package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ecourts-backend/internal/casedate"
)

var ErrInvalidInput = errors.New("invalid input")

var caseIDRegex = regexp.MustCompile(`^[A-Z0-9]{16}$`)

// CaseQuery is a validated request for one case. It cannot be modified once parsed.
type CaseQuery struct {
	caseID string
	cutoff casedate.Date
}

// ParseQuery validates a CNR and a cutoff date, ex. ("ab12cd3456ef7890", "5th March 2025").
// The cutoff may be written as a day, month name and year or as DD-MM-YYYY.
func ParseQuery(caseID, cutoff string) (CaseQuery, error) {
	caseID = strings.ToUpper(strings.TrimSpace(caseID))
	if !caseIDRegex.MatchString(caseID) {
		return CaseQuery{}, fmt.Errorf("%w: case number must be 16 letters or digits, got '%s'", ErrInvalidInput, caseID)
	}
	date, err := casedate.Parse(cutoff)
	if err != nil {
		return CaseQuery{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return CaseQuery{caseID: caseID, cutoff: date}, nil
}

func (q CaseQuery) CaseID() string {
	return q.caseID
}

func (q CaseQuery) Cutoff() casedate.Date {
	return q.cutoff
}

func (q CaseQuery) String() string {
	return fmt.Sprintf("%s since %s", q.caseID, q.cutoff)
}
