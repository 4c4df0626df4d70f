package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/logger"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/retry"
	"github.com/skill-bright/cde-huddle-sub001/internal/summarizer"
)

// mockRepository is an in-memory Repository that counts calls.
type mockRepository struct {
	report    *model.WeeklyReport
	err       error
	history   []model.Entry
	snapshots []model.ReportSnapshot
	saved     []model.UpdateRecord
	saveErr   error
	calls     int
	lastLimit int
}

func (m *mockRepository) GetWeeklyReport(ctx context.Context, weekStart, weekEnd string) (*model.WeeklyReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockRepository) GetHistory(ctx context.Context, limit int) ([]model.Entry, error) {
	m.lastLimit = limit
	return m.history, m.err
}

func (m *mockRepository) SaveUpdate(ctx context.Context, record model.UpdateRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, record)
	return nil
}

func (m *mockRepository) SaveReportSnapshot(ctx context.Context, snapshot model.ReportSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *mockRepository) ListReportSnapshots(ctx context.Context, limit int) ([]model.ReportSnapshot, error) {
	m.lastLimit = limit
	return m.snapshots, m.err
}

// mockAI returns a fixed result and counts attempts.
type mockAI struct {
	result summarizer.Result
	calls  int
}

func (m *mockAI) Attempt(ctx context.Context, report *model.WeeklyReport) summarizer.Result {
	m.calls++
	return m.result
}

func aliceReport() *model.WeeklyReport {
	ts := time.Date(2024, 6, 3, 9, 0, 0, 0, calendar.Location())
	return &model.WeeklyReport{
		WeekStart: "2024-06-03",
		WeekEnd:   "2024-06-09",
		Entries: []model.Entry{{
			ID:   "e1",
			Date: "2024-06-03",
			Records: []model.UpdateRecord{{
				PersonName: "Alice",
				Role:       "Engineer",
				Yesterday:  "Shipped X",
				Today:      "Start Y",
				Blockers:   "None",
				Timestamp:  ts,
			}},
			CreatedAt: ts,
		}},
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		expectErr bool
	}{
		{"one week", "2024-06-03", "2024-06-09", false},
		{"single day", "2024-06-03", "2024-06-03", false},
		{"fourteen days", "2024-01-01", "2024-01-15", false},
		{"nineteen days", "2024-01-01", "2024-01-20", true},
		{"reversed", "2024-01-08", "2024-01-01", true},
		{"unparseable start", "not-a-date", "2024-01-01", true},
		{"unparseable end", "2024-01-01", "2024-02-30", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end)
			if tt.expectErr {
				if !errors.Is(err, ErrInvalidDateRange) {
					t.Errorf("Expected ErrInvalidDateRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestGenerateInvalidRangeHasNoSideEffects(t *testing.T) {
	repo := &mockRepository{report: aliceReport()}
	ai := &mockAI{}
	svc := New(repo, ai, nil, nil, nil)

	_, err := svc.GenerateWeeklyReport(context.Background(), "2024-01-01", "2024-01-20")
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("Expected ErrInvalidDateRange, got %v", err)
	}
	if repo.calls != 0 || ai.calls != 0 {
		t.Errorf("Expected no repository or AI calls, got %d and %d", repo.calls, ai.calls)
	}
}

func TestGenerateRepositoryFailure(t *testing.T) {
	repo := &mockRepository{err: errors.New("connection refused")}
	svc := New(repo, &mockAI{}, nil, nil, nil)

	_, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09")
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("Expected ErrRepository, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to generate report") {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestGenerateUsesAISummary(t *testing.T) {
	want := model.ReportSummary{Narrative: "From the model", KeyAccomplishments: []string{"Shipped X"}}
	repo := &mockRepository{report: aliceReport()}
	ai := &mockAI{result: summarizer.Result{Summary: want}}
	svc := New(repo, ai, nil, nil, nil)

	got, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ai.calls != 1 {
		t.Errorf("Expected 1 AI attempt, got %d", ai.calls)
	}
	if got.Summary.Narrative != "From the model" {
		t.Errorf("Expected AI narrative, got %q", got.Summary.Narrative)
	}
	if repo.report.Summary.Narrative != "" {
		t.Error("Expected the loaded report to be left untouched")
	}
}

func TestGenerateFallsBackOnAIFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockRepository{report: aliceReport()}
	ai := &mockAI{result: summarizer.Result{Err: summarizer.ErrAIRequestFailed}}
	svc := New(repo, ai, nil, nil, logger.New(&buf, "debug"))

	got, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09")
	if err != nil {
		t.Fatalf("AI failure must not surface, got %v", err)
	}

	want := summarizer.RuleBased{}.Summarize(aliceReport())
	if got.Summary.Narrative != want.Narrative {
		t.Errorf("Expected rule-based narrative %q, got %q", want.Narrative, got.Summary.Narrative)
	}
	if len(got.Summary.KeyAccomplishments) != 1 || got.Summary.KeyAccomplishments[0] != "Alice: Shipped X" {
		t.Errorf("Unexpected accomplishments: %v", got.Summary.KeyAccomplishments)
	}
	if len(got.Summary.Blockers) != 0 {
		t.Errorf("Expected no blockers, got %v", got.Summary.Blockers)
	}
	if !strings.Contains(buf.String(), "AI summary failed") || !strings.Contains(buf.String(), `"week_start":"2024-06-03"`) {
		t.Errorf("Expected a warning log with the week, got %s", buf.String())
	}
}

// staticCompleter always answers with the same text.
type staticCompleter struct {
	text  string
	calls int
}

func (c *staticCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.calls++
	return c.text, nil
}

func TestGenerateFallsBackOnEmptyAIObject(t *testing.T) {
	repo := &mockRepository{report: aliceReport()}
	c := &staticCompleter{text: "{}"}
	ai := summarizer.NewAI(c, 1024, retry.DefaultConfig(), nil)
	svc := New(repo, ai, nil, nil, nil)

	got, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09")
	if err != nil {
		t.Fatalf("GenerateWeeklyReport: %v", err)
	}
	if c.calls != 1 {
		t.Errorf("Expected one completion call, got %d", c.calls)
	}

	want := summarizer.RuleBased{}.Summarize(aliceReport())
	if got.Summary.Narrative != want.Narrative {
		t.Errorf("Expected rule-based narrative %q, got %q", want.Narrative, got.Summary.Narrative)
	}
	if _, ok := got.Summary.MemberSummaries["Alice"]; !ok {
		t.Errorf("Expected rule-based member summary for Alice, got %v", got.Summary.MemberSummaries)
	}
}

func TestGenerateWithoutAI(t *testing.T) {
	repo := &mockRepository{report: aliceReport()}
	ai := &mockAI{result: summarizer.Result{Summary: model.ReportSummary{Narrative: "AI"}}}
	svc := New(repo, ai, nil, nil, nil)

	got, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09", WithoutAI())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ai.calls != 0 {
		t.Errorf("Expected no AI attempt, got %d", ai.calls)
	}
	if got.Summary.Narrative == "AI" {
		t.Error("Expected the rule-based summary")
	}
}

func TestGenerateNoDataSkipsAI(t *testing.T) {
	tests := []struct {
		name   string
		report *model.WeeklyReport
	}{
		{"nil report", nil},
		{"no entries", &model.WeeklyReport{WeekStart: "2024-06-03", WeekEnd: "2024-06-09", Entries: []model.Entry{}}},
		{"only None", &model.WeeklyReport{WeekStart: "2024-06-03", WeekEnd: "2024-06-09", Entries: []model.Entry{{
			Date:    "2024-06-04",
			Records: []model.UpdateRecord{{PersonName: "Bob", Yesterday: "None", Today: "<p>None</p>", Blockers: ""}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &mockAI{}
			svc := New(&mockRepository{report: tt.report}, ai, nil, nil, nil)

			got, err := svc.GenerateWeeklyReport(context.Background(), "2024-06-03", "2024-06-09")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ai.calls != 0 {
				t.Errorf("Expected no AI attempt, got %d", ai.calls)
			}
			if got.Summary.Narrative != summarizer.NoDataSummary().Narrative {
				t.Errorf("Expected the no-data summary, got %q", got.Summary.Narrative)
			}
			if got.WeekStart != "2024-06-03" || got.WeekEnd != "2024-06-09" {
				t.Errorf("Unexpected window %s..%s", got.WeekStart, got.WeekEnd)
			}
		})
	}
}

func TestGenerateCurrentWeek(t *testing.T) {
	// Wednesday 2024-06-05.
	cal := calendar.Fixed(time.Date(2024, 6, 5, 12, 0, 0, 0, calendar.Location()))
	repo := &mockRepository{report: aliceReport()}
	svc := New(repo, nil, nil, cal, nil)

	got, err := svc.GenerateCurrentWeek(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.WeekStart != "2024-06-03" || got.WeekEnd != "2024-06-09" {
		t.Errorf("Expected week 2024-06-03..2024-06-09, got %s..%s", got.WeekStart, got.WeekEnd)
	}
}

func TestSaveSnapshotAndRecordFailure(t *testing.T) {
	repo := &mockRepository{}
	svc := New(repo, nil, nil, nil, nil)
	ctx := context.Background()

	if err := svc.SaveSnapshot(ctx, aliceReport()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := svc.RecordFailure(ctx, "2024-06-10", "2024-06-16", errors.New("boom")); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	if len(repo.snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(repo.snapshots))
	}
	gen := repo.snapshots[0]
	if gen.Status != model.StatusGenerated || gen.TotalUpdates != 1 || gen.UniqueMembers != 1 {
		t.Errorf("Unexpected generated snapshot: %+v", gen)
	}
	failed := repo.snapshots[1]
	if failed.Status != model.StatusFailed || failed.Error != "boom" {
		t.Errorf("Unexpected failed snapshot: %+v", failed)
	}

	repo.saveErr = errors.New("disk full")
	if err := svc.SaveSnapshot(ctx, aliceReport()); err == nil {
		t.Error("Expected error when the repository fails")
	}
}

func TestListLimits(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultSnapshotLimit},
		{-3, defaultSnapshotLimit},
		{5, 5},
		{1000, maxLimit},
	}

	for _, tt := range tests {
		repo := &mockRepository{}
		svc := New(repo, nil, nil, nil, nil)
		snaps, err := svc.ListSnapshots(context.Background(), tt.limit)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		if snaps == nil {
			t.Error("Expected a non-nil slice")
		}
		if repo.lastLimit != tt.want {
			t.Errorf("limit %d: expected %d, got %d", tt.limit, tt.want, repo.lastLimit)
		}
	}

	repo := &mockRepository{}
	if _, err := New(repo, nil, nil, nil, nil).History(context.Background(), 0); err != nil {
		t.Fatalf("History: %v", err)
	}
	if repo.lastLimit != defaultHistoryLimit {
		t.Errorf("Expected default history limit %d, got %d", defaultHistoryLimit, repo.lastLimit)
	}
}

func TestSubmitUpdate(t *testing.T) {
	team := []model.Member{
		{ID: "1", Name: "Alice", Role: "Engineer"},
		{ID: "2", Name: "Bob", Role: "Designer"},
	}
	now := time.Date(2024, 6, 5, 9, 30, 0, 0, calendar.Location())

	tests := []struct {
		name     string
		record   model.UpdateRecord
		wantErr  error
		wantName string
		wantRole string
	}{
		{"canonical name and role", model.UpdateRecord{PersonName: " alice ", Yesterday: "x"}, nil, "Alice", "Engineer"},
		{"explicit role kept", model.UpdateRecord{PersonName: "Bob", Role: "Lead"}, nil, "Bob", "Lead"},
		{"missing name", model.UpdateRecord{PersonName: "  "}, ErrInvalidUpdate, "", ""},
		{"not on roster", model.UpdateRecord{PersonName: "Mallory"}, ErrUnknownMember, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			svc := New(repo, nil, team, calendar.Fixed(now), nil)

			got, err := svc.SubmitUpdate(context.Background(), tt.record)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				if len(repo.saved) != 0 {
					t.Error("Expected nothing saved")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.PersonName != tt.wantName || got.Role != tt.wantRole {
				t.Errorf("Got %s/%s, want %s/%s", got.PersonName, got.Role, tt.wantName, tt.wantRole)
			}
			if !got.Timestamp.Equal(now) {
				t.Errorf("Expected timestamp from the calendar, got %v", got.Timestamp)
			}
			if len(repo.saved) != 1 {
				t.Errorf("Expected 1 saved record, got %d", len(repo.saved))
			}
		})
	}
}

func TestSubmitUpdateWithoutRoster(t *testing.T) {
	repo := &mockRepository{}
	svc := New(repo, nil, nil, nil, nil)

	got, err := svc.SubmitUpdate(context.Background(), model.UpdateRecord{PersonName: "Anyone"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.PersonName != "Anyone" || got.Timestamp.IsZero() {
		t.Errorf("Unexpected record: %+v", got)
	}
}
