package domain

import "time"

// User represents per-chat settings, saved location and daily summary subscription.
type User struct {
	ChatID       int64
	Lang         string // ru|en
	Units        string // metric|imperial
	CityName     string
	Lat          *float64
	Lon          *float64
	TZ           string // IANA zone name, empty until a location is set
	Subscribed   bool
	SubHour      *int   // 0..23, local delivery hour
	SubMinute    *int   // 0..59, local delivery minute
	LastSentDate string // local calendar date of the last daily summary, "" if never
	CreatedAt    time.Time
}

// Eligible reports whether the user can be considered for daily dispatch.
// Missing fields are a normal state (user has not finished setup), not an error.
func (u *User) Eligible() bool {
	return u.Subscribed &&
		u.TZ != "" &&
		u.SubHour != nil && u.SubMinute != nil &&
		u.Lat != nil && u.Lon != nil
}
