// Package calendar computes business-day and week-boundary dates for standup
// reporting. Every computation happens in a single fixed timezone so that a
// "day" means the same thing for the whole team.
package calendar

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata"
)

// Timezone is the team timezone. It is deliberately not configurable.
const Timezone = "America/New_York"

// DateFormat is the ISO calendar date layout used across the service.
const DateFormat = "2006-01-02"

var location = mustLoad(Timezone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("calendar: load timezone %s: %v", name, err))
	}
	return loc
}

// Location returns the fixed team timezone.
func Location() *time.Location { return location }

// Calendar answers date questions relative to a clock.
type Calendar struct {
	Now func() time.Time
}

// New returns a Calendar backed by the wall clock.
func New() *Calendar {
	return &Calendar{Now: time.Now}
}

// Fixed returns a Calendar whose clock always reports t.
func Fixed(t time.Time) *Calendar {
	return &Calendar{Now: func() time.Time { return t }}
}

func (c *Calendar) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now().In(location)
	}
	return c.Now().In(location)
}

// Current returns the clock's instant in the team timezone.
func (c *Calendar) Current() time.Time {
	return c.now()
}

// Today returns the current calendar date.
func (c *Calendar) Today() string {
	return c.now().Format(DateFormat)
}

// PreviousBusinessDay returns the last working day before today. On Monday
// that is the preceding Friday, on Sunday the Friday two days back, and
// otherwise simply yesterday.
func (c *Calendar) PreviousBusinessDay() string {
	now := c.now()
	back := 1
	switch now.Weekday() {
	case time.Monday:
		back = 3
	case time.Sunday:
		back = 2
	}
	return now.AddDate(0, 0, -back).Format(DateFormat)
}

// CurrentWeekStart returns the Monday of the current week.
func (c *Calendar) CurrentWeekStart() string {
	start, _ := weekBounds(c.now())
	return start.Format(DateFormat)
}

// CurrentWeekEnd returns the Sunday of the current week.
func (c *Calendar) CurrentWeekEnd() string {
	_, end := weekBounds(c.now())
	return end.Format(DateFormat)
}

// WeekOf returns the Monday and Sunday of the week containing date.
func WeekOf(date string) (string, string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", "", err
	}
	start, end := weekBounds(t)
	return start.Format(DateFormat), end.Format(DateFormat), nil
}

// weekBounds anchors on Monday regardless of Go's Sunday-first numbering.
func weekBounds(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return start, end
}

// ParseDate parses an ISO date as midnight in the team timezone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, s, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return t, nil
}

// DateOf returns the calendar date of t in the team timezone.
func DateOf(t time.Time) string {
	return t.In(location).Format(DateFormat)
}

// DaysBetween returns the number of days from a to b, rounded up. The
// difference is taken between UTC midnights so daylight-saving transitions
// never add or drop a day.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DateFormat, a)
	if err != nil {
		return 0, fmt.Errorf("calendar: invalid date %q: %w", a, err)
	}
	tb, err := time.Parse(DateFormat, b)
	if err != nil {
		return 0, fmt.Errorf("calendar: invalid date %q: %w", b, err)
	}
	days := tb.Sub(ta).Hours() / 24
	return int(math.Ceil(days)), nil
}
