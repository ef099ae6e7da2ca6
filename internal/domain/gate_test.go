package domain

import (
	"testing"
	"time"
)

func TestShouldDispatch_ExactMinuteNeverSent(t *testing.T) {
	local := LocalTime{Date: "2025-05-05", Hour: 8, Minute: 0}
	if !ShouldDispatch(local, 8, 0, "") {
		t.Fatal("want dispatch on exact minute with empty marker")
	}
}

func TestShouldDispatch_AlreadySentToday(t *testing.T) {
	local := LocalTime{Date: "2025-05-05", Hour: 8, Minute: 0}
	if ShouldDispatch(local, 8, 0, "2025-05-05") {
		t.Fatal("want no dispatch when marker equals local date")
	}
}

func TestShouldDispatch_MinuteMismatch(t *testing.T) {
	local := LocalTime{Date: "2025-05-05", Hour: 8, Minute: 1}
	if ShouldDispatch(local, 8, 0, "") {
		t.Fatal("want no dispatch one minute past target")
	}
}

func TestShouldDispatch_NextDaySameTime(t *testing.T) {
	local := LocalTime{Date: "2025-05-06", Hour: 8, Minute: 0}
	if !ShouldDispatch(local, 8, 0, "2025-05-05") {
		t.Fatal("want dispatch the next local day")
	}
}

func TestShouldDispatch_Idempotent(t *testing.T) {
	local := LocalTime{Date: "2025-05-05", Hour: 8, Minute: 0}
	for i := 0; i < 3; i++ {
		if !ShouldDispatch(local, 8, 0, "") {
			t.Fatalf("call %d: result changed without marker update", i)
		}
	}
}

func TestShouldDispatch_BerlinEndToEnd(t *testing.T) {
	// 08:00 Berlin time fires; 08:01 the same day does not once the marker is set.
	at0800 := mustLocalUTC(t, "Europe/Berlin", 2025, time.May, 5, 8, 0)
	local, err := Localize(at0800, "Europe/Berlin")
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if !ShouldDispatch(local, 8, 0, "") {
		t.Fatal("want dispatch at 08:00 Berlin")
	}

	marker := local.Date
	at0801 := mustLocalUTC(t, "Europe/Berlin", 2025, time.May, 5, 8, 1)
	local2, err := Localize(at0801, "Europe/Berlin")
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if ShouldDispatch(local2, 8, 0, marker) {
		t.Fatal("want no dispatch at 08:01 after marker update")
	}
}

func TestShouldDispatch_FallBackRepeatedMinute(t *testing.T) {
	// Both occurrences of 02:30 on the Berlin fall-back day match the target;
	// the marker written at the first blocks the second.
	first := time.Date(2025, time.October, 26, 0, 30, 0, 0, time.UTC)
	second := time.Date(2025, time.October, 26, 1, 30, 0, 0, time.UTC)
	l1, _ := Localize(first, "Europe/Berlin")
	l2, _ := Localize(second, "Europe/Berlin")
	if !ShouldDispatch(l1, 2, 30, "") {
		t.Fatal("want dispatch at first occurrence")
	}
	if ShouldDispatch(l2, 2, 30, l1.Date) {
		t.Fatal("want no dispatch at repeated occurrence")
	}
}
