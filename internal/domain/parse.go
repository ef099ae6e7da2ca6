package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var ErrInvalidTime = errors.New("invalid time")

var hhmmRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// ParseHHMM parses a delivery time like "08:00" or "8:05" into hour and minute.
func ParseHHMM(s string) (hour, minute int, err error) {
	m := hhmmRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// FormatHHMM renders hour and minute as zero-padded "HH:MM".
func FormatHHMM(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
