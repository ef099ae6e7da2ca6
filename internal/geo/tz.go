package geo

import (
	"github.com/zsefvlol/timezonemapper"

	"github.com/Nauvvi1/weather-bot/internal/domain"
)

// ResolveTimezone maps coordinates to an IANA zone name. ok=false means the
// lookup produced nothing usable; callers treat that the same as an invalid
// timezone (the user stays ineligible for scheduled delivery until fixed).
func ResolveTimezone(lat, lon float64) (string, bool) {
	tz := timezonemapper.LatLngToTimezoneString(lat, lon)
	if tz == "" {
		return "", false
	}
	if _, err := domain.ValidateTZ(tz); err != nil {
		return "", false
	}
	return tz, true
}
