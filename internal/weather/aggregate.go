package weather

import (
	"time"

	"github.com/Nauvvi1/weather-bot/internal/domain"
)

// DailyRange computes the min/max temperature of the user's local "today" from a
// forecast series. Samples whose local calendar date (in tz) differs from the
// reference instant's local date are excluded. Returns ok=false when no sample
// falls on today, including when the zone itself is unknown; the caller renders
// "no range" instead of fabricating values. Temperatures are compared as given,
// in whatever unit system the series was fetched with.
func DailyRange(samples []Sample, tz string, ref time.Time) (Range, bool) {
	today, err := domain.Localize(ref, tz)
	if err != nil {
		return Range{}, false
	}

	var r Range
	found := false
	for _, s := range samples {
		lt, err := domain.Localize(s.Timestamp, tz)
		if err != nil || lt.Date != today.Date {
			continue
		}
		if !found {
			r.Min, r.Max = s.Temp, s.Temp
			found = true
			continue
		}
		if s.Temp < r.Min {
			r.Min = s.Temp
		}
		if s.Temp > r.Max {
			r.Max = s.Temp
		}
	}
	return r, found
}
