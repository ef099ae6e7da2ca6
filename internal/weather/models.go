package weather

import "time"

// Current is a current-conditions reading for one location.
type Current struct {
	Temp        float64
	FeelsLike   float64
	WindSpeed   float64
	Humidity    int
	Pressure    float64
	ConditionID int // OpenWeather condition code, e.g. 800 = clear
	Description string
}

// Sample is one timestamped temperature point of the forecast time series
// (OpenWeather returns them at 3-hour steps).
type Sample struct {
	Timestamp   time.Time
	Temp        float64
	ConditionID int
	Description string
}

// Range is a same-day temperature extent derived from forecast samples.
type Range struct {
	Min float64
	Max float64
}
