package domain

// ShouldDispatch decides whether a daily summary is due right now.
//
// It fires only on the exact target minute in the user's local clock, and only if
// nothing was sent for that local date yet. No catch-up: a minute missed (tick
// skipped, send failed) stays missed until the same local time comes around the
// next day. During a DST fall-back the target minute occurs twice; lastSentDate
// blocks the second occurrence. During a spring-forward the minute may not occur
// at all, which simply means no send that day.
func ShouldDispatch(local LocalTime, targetHour, targetMinute int, lastSentDate string) bool {
	if local.Hour != targetHour || local.Minute != targetMinute {
		return false
	}
	return local.Date != lastSentDate
}
