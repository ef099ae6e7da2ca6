package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimezone marks an unrecognized IANA zone identifier.
var ErrInvalidTimezone = errors.New("invalid timezone")

// LocalTime is a civil wall-clock reading in some user's timezone.
type LocalTime struct {
	Date   string // ISO calendar date, e.g. "2025-05-05"
	Hour   int
	Minute int
}

// Localize converts an instant to the civil date/hour/minute in the given IANA
// timezone. The zone database handles DST and fractional offsets; no fixed-offset
// arithmetic is done here.
func Localize(t time.Time, tz string) (LocalTime, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	lt := t.In(loc)
	return LocalTime{
		Date:   lt.Format("2006-01-02"),
		Hour:   lt.Hour(),
		Minute: lt.Minute(),
	}, nil
}

// ValidateTZ checks that tz names a known IANA location and returns its canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc.String(), nil
}
