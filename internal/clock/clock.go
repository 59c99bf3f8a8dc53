// Package clock supplies the current instant and the calendar day it falls on in the
// deployment's reference timezone.
package clock

import (
	"sync"
	"time"
)

const DateLayout = "2006-01-02"

// Clock is injected wherever "now" or "today" matters.
type Clock interface {
	Now() time.Time
	// Today is the calendar date of Now in the reference zone, as midnight UTC.
	Today() time.Time
}

// DateOf truncates t to its calendar date in loc, returned as midnight UTC so that
// dates compare with == and format the same everywhere.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type systemClock struct {
	loc *time.Location
}

// New returns the wall clock evaluated in loc.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time   { return time.Now().UTC() }
func (c systemClock) Today() time.Time { return DateOf(time.Now(), c.loc) }

// Fixed is a settable clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

func NewFixed(now time.Time, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.UTC
	}
	return &Fixed{now: now, loc: loc}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Today() time.Time {
	return DateOf(f.Now(), f.loc)
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
