package casedate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected Date
		invalid  bool
	}{
		{input: "1st January 2025", expected: Date{Day: 1, Month: time.January, Year: 2025}},
		{input: "01 January 2025", expected: Date{Day: 1, Month: time.January, Year: 2025}},
		{input: "5th March 2025", expected: Date{Day: 5, Month: time.March, Year: 2025}},
		{input: "22nd   december 2024", expected: Date{Day: 22, Month: time.December, Year: 2024}},
		{input: "3rd April 2023", expected: Date{Day: 3, Month: time.April, Year: 2023}},
		{input: "29th February 2024", expected: Date{Day: 29, Month: time.February, Year: 2024}},
		{input: "29th February 2025", invalid: true},
		{input: "30th February 2025", invalid: true},
		{input: "31st April 2025", invalid: true},
		{input: "0 May 2025", invalid: true},
		{input: "5th Marchember 2025", invalid: true},
		{input: "March 5 2025", invalid: true},
		{input: "5th March", invalid: true},
		{input: "5th of March 2025", invalid: true},
		{input: "", invalid: true},
	}

	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			got, err := Normalize(test.input)
			if test.invalid {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidDateFormat))
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got)
		})
	}
}

func TestNormalizeIgnoresOrdinals(t *testing.T) {
	for _, input := range []string{"1st January 2025", "2nd June 2020", "23rd July 1999", "11th November 2011"} {
		direct, err := Normalize(input)
		require.NoError(t, err)
		stripped, err := Normalize(StripOrdinals(input))
		require.NoError(t, err)
		require.Equal(t, direct, stripped)
		require.Equal(t, StripOrdinals(input), StripOrdinals(StripOrdinals(input)))
	}
}

func TestParsePortal(t *testing.T) {
	d, err := ParsePortal("01-03-2025")
	require.NoError(t, err)
	require.Equal(t, Date{Day: 1, Month: time.March, Year: 2025}, d)
	require.Equal(t, "01-03-2025", d.String())

	d, err = ParsePortal(" 7/11/2024 ")
	require.NoError(t, err)
	require.Equal(t, Date{Day: 7, Month: time.November, Year: 2024}, d)

	for _, bad := range []string{"31-02-2025", "2025-03-01", "next week", "01-13-2025"} {
		_, err := ParsePortal(bad)
		require.ErrorIs(t, err, ErrInvalidDateFormat, bad)
	}
}

func TestCompare(t *testing.T) {
	a := Date{Day: 28, Month: time.February, Year: 2025}
	b := Date{Day: 1, Month: time.March, Year: 2025}
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	require.True(t, a.Before(b))
	require.False(t, b.Before(b))
	require.Equal(t, -1, Date{Day: 31, Month: time.December, Year: 2024}.Compare(a))
}

func TestParse(t *testing.T) {
	a, err := Parse("05-03-2025")
	require.NoError(t, err)
	b, err := Parse("5th March 2025")
	require.NoError(t, err)
	require.Equal(t, a, b)
}
