package chrono

import (
	"time"
	_ "time/tzdata"
)

// API is the clock everything that stamps times (storage keys, ledger rows) goes through.
//
// note: fault injection point
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl reads the system clock in the portal's timezone.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}
