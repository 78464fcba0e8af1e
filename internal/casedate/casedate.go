// Package casedate parses the human-written and portal-formatted dates that appear
// in case queries and case history tables.
package casedate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDateFormat = errors.New("invalid date format")

// Date is a calendar date without a time of day or location.
type Date struct {
	Day   int
	Month time.Month
	Year  int
}

// String renders the date in the portal's DD-MM-YYYY format.
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare returns -1, 0 or +1 when d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

// StripOrdinals removes ordinal suffixes from numbers ("1st" -> "1").
func StripOrdinals(s string) string {
	return ordinalSuffix.ReplaceAllString(s, "$1")
}

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

func daysIn(month time.Month, year int) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func newDate(day int, month time.Month, year int, raw string) (Date, error) {
	if year < 1 || year > 9999 {
		return Date{}, fmt.Errorf("%w: year out of range in %q", ErrInvalidDateFormat, raw)
	}
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("%w: month out of range in %q", ErrInvalidDateFormat, raw)
	}
	if day < 1 || day > daysIn(month, year) {
		return Date{}, fmt.Errorf(
			"%w: %s %d has no day %d (%q)",
			ErrInvalidDateFormat, month, year, day, raw,
		)
	}
	return Date{Day: day, Month: month, Year: year}, nil
}

func atoi(field, s, raw string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number in %q", ErrInvalidDateFormat, field, s, raw)
	}
	return n, nil
}

// Normalize parses a date written as "<day> <month name> <year>", where the day may
// carry an ordinal suffix, ex. "5th March 2025".
func Normalize(s string) (Date, error) {
	tokens := strings.Fields(StripOrdinals(s))
	if len(tokens) != 3 {
		return Date{}, fmt.Errorf("%w: expected 3 parts, got %d in %q", ErrInvalidDateFormat, len(tokens), s)
	}

	day, err := atoi("day", tokens[0], s)
	if err != nil {
		return Date{}, err
	}
	month, ok := monthNames[strings.ToLower(tokens[1])]
	if !ok {
		return Date{}, fmt.Errorf("%w: unknown month %q in %q", ErrInvalidDateFormat, tokens[1], s)
	}
	year, err := atoi("year", tokens[2], s)
	if err != nil {
		return Date{}, err
	}

	return newDate(day, month, year, s)
}

var portalDate = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)

// ParsePortal parses the DD-MM-YYYY dates the portal prints in its tables.
func ParsePortal(s string) (Date, error) {
	groups := portalDate.FindStringSubmatch(strings.TrimSpace(s))
	if groups == nil {
		return Date{}, fmt.Errorf("%w: %q is not DD-MM-YYYY", ErrInvalidDateFormat, s)
	}
	day, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	year, _ := strconv.Atoi(groups[3])
	return newDate(day, time.Month(month), year, s)
}

// Parse accepts either a written date or a portal date.
func Parse(s string) (Date, error) {
	if d, err := ParsePortal(s); err == nil {
		return d, nil
	}
	return Normalize(s)
}
