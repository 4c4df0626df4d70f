package aggregator

import (
	"testing"
	"time"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

func ts(date string, hour int) time.Time {
	t, err := calendar.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func record(name, date string, hour int) model.UpdateRecord {
	return model.UpdateRecord{
		PersonName: name,
		Role:       "Engineer",
		Yesterday:  name + " yesterday " + date,
		Today:      name + " today " + date,
		Blockers:   "None",
		Timestamp:  ts(date, hour),
	}
}

func TestBuildGroupsAndSorts(t *testing.T) {
	records := []model.UpdateRecord{
		record("Carol", "2024-06-05", 11),
		record("Alice", "2024-06-03", 10),
		record("Bob", "2024-06-05", 9),
		record("Bob", "2024-06-03", 9),
		record("Dave", "2024-05-31", 9), // before window
		record("Erin", "2024-06-10", 9), // after window
	}

	r, err := Build(records, "2024-06-03", "2024-06-09", model.ReportSummary{Narrative: "pending"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(r.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(r.Entries))
	}
	if r.Entries[0].Date != "2024-06-03" || r.Entries[1].Date != "2024-06-05" {
		t.Errorf("Unexpected entry dates: %s, %s", r.Entries[0].Date, r.Entries[1].Date)
	}
	if r.Summary.Narrative != "pending" {
		t.Errorf("Expected placeholder summary, got %q", r.Summary.Narrative)
	}

	// Records inside an entry follow timestamp order.
	first := r.Entries[0].Records
	if first[0].PersonName != "Bob" || first[1].PersonName != "Alice" {
		t.Errorf("Expected Bob then Alice, got %s then %s", first[0].PersonName, first[1].PersonName)
	}
	for _, e := range r.Entries {
		if e.ID == "" {
			t.Error("Entry ID should not be empty")
		}
		if !e.CreatedAt.Equal(e.Records[0].Timestamp) {
			t.Errorf("CreatedAt = %v, want earliest record %v", e.CreatedAt, e.Records[0].Timestamp)
		}
		for _, rec := range e.Records {
			if calendar.DateOf(rec.Timestamp) != e.Date {
				t.Errorf("Record %s dated %s filed under %s", rec.PersonName, calendar.DateOf(rec.Timestamp), e.Date)
			}
		}
	}
}

func TestBuildWindowInvariant(t *testing.T) {
	var records []model.UpdateRecord
	start := ts("2024-05-25", 8)
	for i := 0; i < 30; i++ {
		records = append(records, model.UpdateRecord{
			PersonName: "P",
			Yesterday:  "work",
			Timestamp:  start.Add(time.Duration(i*13) * time.Hour),
		})
	}

	r, err := Build(records, "2024-06-01", "2024-06-07", model.ReportSummary{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, e := range r.Entries {
		if e.Date < r.WeekStart || e.Date > r.WeekEnd {
			t.Errorf("Entry %s outside window", e.Date)
		}
		if i > 0 && r.Entries[i-1].Date >= e.Date {
			t.Errorf("Entries not strictly ascending: %s then %s", r.Entries[i-1].Date, e.Date)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	r, err := Build(nil, "2024-06-03", "2024-06-09", model.ReportSummary{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Entries == nil || len(r.Entries) != 0 {
		t.Errorf("Expected empty non-nil entries, got %v", r.Entries)
	}
	if r.HasData() {
		t.Error("Expected no data")
	}
}

func TestBuildInvalidWindow(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"bad start", "nope", "2024-06-09"},
		{"bad end", "2024-06-03", "2024-06-32"},
		{"reversed", "2024-06-09", "2024-06-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(nil, tt.start, tt.end, model.ReportSummary{}); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestFromEntriesMergesDates(t *testing.T) {
	entries := []model.Entry{
		{ID: "b", Date: "2024-06-04", Records: []model.UpdateRecord{record("Bob", "2024-06-04", 12)}},
		{ID: "a", Date: "2024-06-04", Records: []model.UpdateRecord{record("Alice", "2024-06-04", 8)}},
		{ID: "c", Date: "2024-06-03", Records: []model.UpdateRecord{record("Carol", "2024-06-03", 8)}},
		{ID: "x", Date: "2024-06-20", Records: []model.UpdateRecord{record("Xavier", "2024-06-20", 8)}},
	}

	r, err := FromEntries(entries, "2024-06-03", "2024-06-09", model.ReportSummary{})
	if err != nil {
		t.Fatalf("FromEntries: %v", err)
	}
	if len(r.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(r.Entries))
	}
	merged := r.Entries[1]
	if merged.ID != "b" {
		t.Errorf("Expected merged entry to keep first ID, got %q", merged.ID)
	}
	if len(merged.Records) != 2 || merged.Records[0].PersonName != "Alice" {
		t.Errorf("Expected Alice first after timestamp sort, got %+v", merged.Records)
	}
}
