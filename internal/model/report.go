package model

import (
	"sort"
	"time"
)

const (
	// MaxSummaryItems caps keyAccomplishments, ongoingWork and blockers.
	MaxSummaryItems = 10
	// MaxContributions caps a member's keyContributions.
	MaxContributions = 5
)

// Entry groups every record submitted for one calendar day.
type Entry struct {
	ID        string         `json:"id"`
	Date      string         `json:"date"`
	Records   []UpdateRecord `json:"records"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MemberSummary is the per-person part of a report summary.
type MemberSummary struct {
	Role             string   `json:"role"`
	KeyContributions []string `json:"keyContributions"`
	ProgressNote     string   `json:"progressNote"`
	Concerns         []string `json:"concerns"`
	NextFocus        string   `json:"nextFocus"`
}

// ReportSummary is the derived summary of a week.
type ReportSummary struct {
	KeyAccomplishments []string                 `json:"keyAccomplishments"`
	OngoingWork        []string                 `json:"ongoingWork"`
	Blockers           []string                 `json:"blockers"`
	Narrative          string                   `json:"narrative"`
	Recommendations    []string                 `json:"recommendations"`
	MemberSummaries    map[string]MemberSummary `json:"memberSummaries"`
}

// WeeklyReport is the aggregate of a date window. Entries are sorted
// ascending by date and all fall inside [WeekStart, WeekEnd].
type WeeklyReport struct {
	WeekStart string        `json:"weekStart"`
	WeekEnd   string        `json:"weekEnd"`
	Entries   []Entry       `json:"entries"`
	Summary   ReportSummary `json:"summary"`
}

func formatItem(r UpdateRecord, text string) string {
	return r.PersonName + ": " + text
}

func collect(records []UpdateRecord, field func(UpdateRecord) string) []string {
	var out []string
	for _, r := range records {
		text := field(r)
		if IsEmptyContent(text) {
			continue
		}
		out = append(out, formatItem(r, text))
	}
	return out
}

func yesterdayOf(r UpdateRecord) string { return r.Yesterday }
func todayOf(r UpdateRecord) string     { return r.Today }
func blockersOf(r UpdateRecord) string  { return r.Blockers }

// Accomplishments returns "Name: text" for every non-empty yesterday field.
func (e Entry) Accomplishments() []string { return collect(e.Records, yesterdayOf) }

// OngoingWork returns "Name: text" for every non-empty today field.
func (e Entry) OngoingWork() []string { return collect(e.Records, todayOf) }

// Blockers returns "Name: text" for every non-empty blockers field.
func (e Entry) Blockers() []string { return collect(e.Records, blockersOf) }

// HasContent reports whether any record in the entry has content.
func (e Entry) HasContent() bool {
	for _, r := range e.Records {
		if r.HasContent() {
			return true
		}
	}
	return false
}

func (w *WeeklyReport) flatten(field func(Entry) []string) []string {
	var out []string
	for _, e := range w.Entries {
		out = append(out, field(e)...)
	}
	return out
}

// Accomplishments flattens entry accomplishments in date order.
func (w *WeeklyReport) Accomplishments() []string { return w.flatten(Entry.Accomplishments) }

// OngoingWork flattens entry ongoing work in date order.
func (w *WeeklyReport) OngoingWork() []string { return w.flatten(Entry.OngoingWork) }

// Blockers flattens entry blockers in date order.
func (w *WeeklyReport) Blockers() []string { return w.flatten(Entry.Blockers) }

// HasData reports whether at least one entry carries a non-empty field.
func (w *WeeklyReport) HasData() bool {
	for _, e := range w.Entries {
		if e.HasContent() {
			return true
		}
	}
	return false
}

// TotalUpdates counts the records across all entries.
func (w *WeeklyReport) TotalUpdates() int {
	n := 0
	for _, e := range w.Entries {
		n += len(e.Records)
	}
	return n
}

// UniqueMembers returns each person once, sorted by name. The role is taken
// from the person's first record.
func (w *WeeklyReport) UniqueMembers() []Member {
	seen := make(map[string]bool)
	var members []Member
	for _, e := range w.Entries {
		for _, r := range e.Records {
			if seen[r.PersonName] {
				continue
			}
			seen[r.PersonName] = true
			members = append(members, Member{Name: r.PersonName, Role: r.Role})
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

// EntriesFor narrows entries to the named person's records, dropping days
// with no records left.
func (w *WeeklyReport) EntriesFor(name string) []Entry {
	var out []Entry
	for _, e := range w.Entries {
		var records []UpdateRecord
		for _, r := range e.Records {
			if r.PersonName == name {
				records = append(records, r)
			}
		}
		if len(records) == 0 {
			continue
		}
		narrowed := e
		narrowed.Records = records
		out = append(out, narrowed)
	}
	return out
}

// WithSummary returns a copy of the report carrying s. Entries are shared,
// never modified.
func (w *WeeklyReport) WithSummary(s ReportSummary) *WeeklyReport {
	return &WeeklyReport{
		WeekStart: w.WeekStart,
		WeekEnd:   w.WeekEnd,
		Entries:   w.Entries,
		Summary:   s,
	}
}

// Cap truncates items to at most n elements.
func Cap(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
