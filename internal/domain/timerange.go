package domain

import (
	"errors"
	"time"
)

// BusinessZone is the reference zone business hours are evaluated in.
const BusinessZone = "America/New_York"

const (
	DefaultOpenHour  = 8
	DefaultCloseHour = 22
)

// TimeRange is a half-open interval [Start, End) between two absolute instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether a and b share any instant. Ranges that only touch
// end-to-start do not overlap.
func Overlaps(a, b TimeRange) bool {
	return a.End.After(b.Start) && b.End.After(a.Start)
}

// BusinessHours is an hour-of-day window evaluated in a fixed zone. Both
// endpoints of a range must fall on an hour in [Open, Close]; minutes are not
// considered, so 22:59 passes a Close of 22.
type BusinessHours struct {
	Zone  *time.Location
	Open  int
	Close int
}

// NewBusinessHours loads zone and validates the hour window.
func NewBusinessHours(zone string, open, close int) (BusinessHours, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return BusinessHours{}, err
	}
	if open < 0 || close > 23 || open >= close {
		return BusinessHours{}, errors.New("business hours must satisfy 0 <= open < close <= 23")
	}
	return BusinessHours{Zone: loc, Open: open, Close: close}, nil
}

// DefaultBusinessHours is 8 through 22 in America/New_York.
func DefaultBusinessHours() (BusinessHours, error) {
	return NewBusinessHours(BusinessZone, DefaultOpenHour, DefaultCloseHour)
}

// Contains reports whether both endpoints of r land on an allowed hour.
func (b BusinessHours) Contains(r TimeRange) bool {
	return b.allowed(r.Start) && b.allowed(r.End)
}

func (b BusinessHours) allowed(t time.Time) bool {
	h := t.In(b.Zone).Hour()
	return h >= b.Open && h <= b.Close
}
