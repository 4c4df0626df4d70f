// Package aggregator groups raw standup records into per-day entries and
// per-week reports.
package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

// Build groups records by the calendar date of their timestamp and returns a
// report over [weekStart, weekEnd] carrying placeholder as its summary.
// Records outside the window are dropped and days without records get no
// entry.
func Build(records []model.UpdateRecord, weekStart, weekEnd string, placeholder model.ReportSummary) (*model.WeeklyReport, error) {
	if err := checkWindow(weekStart, weekEnd); err != nil {
		return nil, err
	}

	groups := make(map[string]*model.Entry)
	for _, r := range records {
		date := calendar.DateOf(r.Timestamp)
		if !inWindow(date, weekStart, weekEnd) {
			continue
		}
		add(groups, date, "", r)
	}
	return assemble(groups, weekStart, weekEnd, placeholder), nil
}

// FromEntries rebuilds a report from a per-day grouping loaded from storage.
// Entries sharing a date are merged under the first entry's ID, and entries
// outside the window are dropped.
func FromEntries(entries []model.Entry, weekStart, weekEnd string, placeholder model.ReportSummary) (*model.WeeklyReport, error) {
	if err := checkWindow(weekStart, weekEnd); err != nil {
		return nil, err
	}

	groups := make(map[string]*model.Entry)
	for _, e := range entries {
		if !inWindow(e.Date, weekStart, weekEnd) {
			continue
		}
		for _, r := range e.Records {
			add(groups, e.Date, e.ID, r)
		}
	}
	return assemble(groups, weekStart, weekEnd, placeholder), nil
}

func checkWindow(weekStart, weekEnd string) error {
	if _, err := calendar.ParseDate(weekStart); err != nil {
		return fmt.Errorf("aggregator: %w", err)
	}
	if _, err := calendar.ParseDate(weekEnd); err != nil {
		return fmt.Errorf("aggregator: %w", err)
	}
	if weekEnd < weekStart {
		return fmt.Errorf("aggregator: week end %s is before week start %s", weekEnd, weekStart)
	}
	return nil
}

// ISO dates order lexically.
func inWindow(date, start, end string) bool {
	return date >= start && date <= end
}

func add(groups map[string]*model.Entry, date, id string, r model.UpdateRecord) {
	e, ok := groups[date]
	if !ok {
		e = &model.Entry{ID: id, Date: date}
		groups[date] = e
	}
	if e.ID == "" {
		e.ID = id
	}
	e.Records = append(e.Records, r)
}

func assemble(groups map[string]*model.Entry, weekStart, weekEnd string, placeholder model.ReportSummary) *model.WeeklyReport {
	entries := make([]model.Entry, 0, len(groups))
	for _, e := range groups {
		sort.SliceStable(e.Records, func(i, j int) bool {
			return e.Records[i].Timestamp.Before(e.Records[j].Timestamp)
		})
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.CreatedAt = earliest(e.Records)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })

	return &model.WeeklyReport{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Entries:   entries,
		Summary:   placeholder,
	}
}

func earliest(records []model.UpdateRecord) time.Time {
	var t time.Time
	for _, r := range records {
		if t.IsZero() || r.Timestamp.Before(t) {
			t = r.Timestamp
		}
	}
	return t
}
