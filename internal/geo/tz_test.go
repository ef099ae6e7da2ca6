package geo

import "testing"

func TestResolveTimezone_Berlin(t *testing.T) {
	tz, ok := ResolveTimezone(52.52, 13.405)
	if !ok {
		t.Fatal("want a timezone for Berlin coordinates")
	}
	if tz != "Europe/Berlin" {
		t.Fatalf("want Europe/Berlin, got %s", tz)
	}
}
