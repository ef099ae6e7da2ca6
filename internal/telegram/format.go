package telegram

import (
	"fmt"
	"math"

	"github.com/Nauvvi1/weather-bot/internal/domain"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

// weatherEmoji picks an emoji for an OpenWeather condition code.
func weatherEmoji(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "⛈️"
	case code >= 300 && code < 400:
		return "🌦️"
	case code >= 500 && code < 600:
		return "🌧️"
	case code >= 600 && code < 700:
		return "❄️"
	case code >= 700 && code < 800:
		return "🌫️"
	case code == 800:
		return "☀️"
	case code == 801:
		return "🌤️"
	case code == 802:
		return "⛅"
	case code == 803:
		return "🌥️"
	case code == 804:
		return "☁️"
	default:
		return "🌡️"
	}
}

func tempUnit(units string) string {
	if units == "imperial" {
		return "°F"
	}
	return "°C"
}

func windUnit(lang, units string) string {
	if units == "imperial" {
		return "mph"
	}
	return t(lang, "wind_unit_metric")
}

func roundTemp(v float64) string {
	return fmt.Sprintf("%d", int(math.Round(v)))
}

// formatSummary renders the daily/current weather message: header, conditions
// line, pressure line, and today's min/max when a range is available.
func formatSummary(u domain.User, cur weather.Current, rng weather.Range, haveRange bool) string {
	city := u.CityName
	if city == "" {
		city = "—"
	}
	tu := tempUnit(u.Units)

	desc := cur.Description
	em := weatherEmoji(cur.ConditionID)
	if desc != "" {
		desc = em + " " + desc
	} else {
		desc = em
	}

	line1 := fmt.Sprintf("🌡️ %s%s (%s %s%s)  |  💨 %.1f %s  |  💧 %d%%",
		roundTemp(cur.Temp), tu,
		t(u.Lang, "feels_like"), roundTemp(cur.FeelsLike), tu,
		cur.WindSpeed, windUnit(u.Lang, u.Units),
		cur.Humidity,
	)
	line2 := fmt.Sprintf("%s: %d hPa", t(u.Lang, "pressure"), int(math.Round(cur.Pressure)))

	today := t(u.Lang, "today") + ": " + desc
	if haveRange {
		today += ", " + t(u.Lang, "range",
			"max", roundTemp(rng.Max)+tu,
			"min", roundTemp(rng.Min)+tu,
		)
	}

	return fmt.Sprintf("%s • %s\n%s\n%s\n%s", city, t(u.Lang, "now"), line1, line2, today)
}
