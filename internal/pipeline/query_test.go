package pipeline

import (
	"errors"
	"testing"
	"time"

	"ecourts-backend/internal/casedate"

	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	cases := []struct {
		caseID   string
		cutoff   string
		valid    bool
		expected casedate.Date
	}{
		{caseID: "AB12CD3456EF7890", cutoff: "5th March 2025", valid: true, expected: casedate.Date{Day: 5, Month: time.March, Year: 2025}},
		{caseID: " ab12cd3456ef7890 ", cutoff: "05-03-2025", valid: true, expected: casedate.Date{Day: 5, Month: time.March, Year: 2025}},
		{caseID: "AB12CD3456EF789", cutoff: "5th March 2025"},
		{caseID: "AB12CD3456EF78901", cutoff: "5th March 2025"},
		{caseID: "AB12-D3456EF7890", cutoff: "5th March 2025"},
		{caseID: "AB12CD3456EF7890", cutoff: "30th February 2025"},
		{caseID: "AB12CD3456EF7890", cutoff: ""},
	}

	for _, c := range cases {
		query, err := ParseQuery(c.caseID, c.cutoff)
		if !c.valid {
			require.True(t, errors.Is(err, ErrInvalidInput), "expected invalid input for %q %q, got %v", c.caseID, c.cutoff, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, "AB12CD3456EF7890", query.CaseID())
		require.Equal(t, c.expected, query.Cutoff())
	}
}
