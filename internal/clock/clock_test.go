package clock

import (
	"testing"
	"time"
)

func TestDateOfUsesReferenceZone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 18:30 UTC on the 1st is already the 2nd in UTC+7.
	instant := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)

	if got := DateOf(instant, time.UTC).Format(DateLayout); got != "2025-03-01" {
		t.Errorf("UTC date = %s, want 2025-03-01", got)
	}
	if got := DateOf(instant, jakarta).Format(DateLayout); got != "2025-03-02" {
		t.Errorf("UTC+7 date = %s, want 2025-03-02", got)
	}
}

func TestFixedAdvanceCrossesMidnight(t *testing.T) {
	c := NewFixed(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC), time.UTC)
	before := c.Today()

	c.Advance(2 * time.Minute)
	after := c.Today()

	if !after.After(before) {
		t.Fatalf("expected the day to advance, before=%s after=%s", before, after)
	}
	if after.Sub(before) != 24*time.Hour {
		t.Fatalf("expected exactly one day difference, got %s", after.Sub(before))
	}
}

func TestSystemClockToday(t *testing.T) {
	c := New(nil)
	today := c.Today()
	if today.Hour() != 0 || today.Minute() != 0 || today.Location() != time.UTC {
		t.Fatalf("expected midnight UTC date value, got %s", today)
	}
}
