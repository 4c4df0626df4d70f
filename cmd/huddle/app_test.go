package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skill-bright/cde-huddle-sub001/internal/config"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

func setupApp(t *testing.T, extra string) (*app, *bytes.Buffer) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
team:
  - {id: "1", name: Alice, role: Engineer}
  - {id: "2", name: Bob, role: Designer}
storage:
  driver: sqlite
  dsn: %s
log:
  file: %s
%s`, filepath.Join(dir, "huddle.db"), filepath.Join(dir, "huddle.log"), extra)))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	var out bytes.Buffer
	a, err := newApp(cfg, &out)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a, &out
}

func TestSubmitAndReport(t *testing.T) {
	a, out := setupApp(t, "")

	submit := &SubmitCmd{Name: "alice", Yesterday: "Shipped X", Today: "Start Y", Blockers: "None", Date: "2024-06-04"}
	if err := submit.Run(a); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var saved model.UpdateRecord
	if err := json.Unmarshal(out.Bytes(), &saved); err != nil {
		t.Fatalf("Failed to decode submit output: %v", err)
	}
	if saved.PersonName != "Alice" || saved.Role != "Engineer" {
		t.Errorf("Unexpected saved record: %+v", saved)
	}

	out.Reset()
	rep := &ReportCmd{WeekStart: "2024-06-03", WeekEnd: "2024-06-09", NoAI: true, Save: true}
	if err := rep.Run(a); err != nil {
		t.Fatalf("report: %v", err)
	}
	var got model.WeeklyReport
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode report output: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Date != "2024-06-04" {
		t.Errorf("Unexpected entries: %+v", got.Entries)
	}
	if len(got.Summary.KeyAccomplishments) != 1 || got.Summary.KeyAccomplishments[0] != "Alice: Shipped X" {
		t.Errorf("Unexpected accomplishments: %v", got.Summary.KeyAccomplishments)
	}

	snap, err := a.store.GetReportSnapshot(t.Context(), "2024-06-03", "2024-06-09")
	if err != nil {
		t.Fatalf("Expected a saved snapshot: %v", err)
	}
	if snap.Status != model.StatusGenerated || snap.TotalUpdates != 1 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestSubmitRejectsUnknownMember(t *testing.T) {
	a, _ := setupApp(t, "")
	if err := (&SubmitCmd{Name: "Mallory"}).Run(a); err == nil {
		t.Error("Expected error for a member not on the roster")
	}
	if err := (&SubmitCmd{Name: "Alice", Date: "06/04/2024"}).Run(a); err == nil {
		t.Error("Expected error for a malformed date")
	}
}

func TestReportRejectsLongWindow(t *testing.T) {
	a, _ := setupApp(t, "")
	err := (&ReportCmd{WeekStart: "2024-01-01", WeekEnd: "2024-01-20"}).Run(a)
	if err == nil || !strings.Contains(err.Error(), "invalid date range") {
		t.Errorf("Expected invalid date range, got %v", err)
	}
}

func TestRunOnce(t *testing.T) {
	a, out := setupApp(t, "")
	if err := (&RunCmd{Once: true}).Run(a); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Weekly Standup Report") {
		t.Errorf("Expected the stdout publisher to print the report, got %q", out.String())
	}

	weekStart, weekEnd := a.service.CurrentWeek()
	if _, err := a.store.GetReportSnapshot(t.Context(), weekStart, weekEnd); err != nil {
		t.Errorf("Expected a snapshot for the current week: %v", err)
	}
}

func TestBuildPublishers(t *testing.T) {
	cfg := config.PublisherConfig{
		Types:   []string{"stdout", "discord", "email"},
		Discord: config.DiscordConfig{WebhookURL: "https://discord.example/webhook"},
		Email:   config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "a@example.com", To: []string{"b@example.com"}},
	}
	pubs, err := buildPublishers(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("buildPublishers: %v", err)
	}
	if len(pubs) != 3 {
		t.Errorf("Expected 3 publishers, got %d", len(pubs))
	}

	if _, err := buildPublishers(config.PublisherConfig{Types: []string{"web"}}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown publisher type")
	}
}

func TestNewAppWithAI(t *testing.T) {
	a, _ := setupApp(t, "ai:\n  enabled: true\n  api_key: test_key\n")
	if a.drafts == nil {
		t.Error("Expected draft generator when AI is enabled")
	}
}

func TestTokenCmd(t *testing.T) {
	a, out := setupApp(t, "server:\n  auth_secret: test-secret\n")
	if err := (&TokenCmd{Name: "bob"}).Run(a); err != nil {
		t.Fatalf("token: %v", err)
	}
	if parts := strings.Split(strings.TrimSpace(out.String()), "."); len(parts) != 3 {
		t.Errorf("Expected a JWT, got %q", out.String())
	}

	if err := (&TokenCmd{Name: "Mallory"}).Run(a); err == nil {
		t.Error("Expected error for a member not on the roster")
	}

	b, _ := setupApp(t, "")
	if err := (&TokenCmd{Name: "Alice"}).Run(b); err == nil {
		t.Error("Expected error without an auth secret")
	}
}

// captureStdout runs fn with os.Stdout redirected and returns what was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	prev := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = prev }()

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	fn()
	w.Close()
	return string(<-done)
}

func TestStdoutCarriesOnlyCommandOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
team:
  - {id: "1", name: Alice, role: Engineer}
storage:
  driver: sqlite
  dsn: %s
server:
  auth_secret: test-secret
`, filepath.Join(t.TempDir(), "huddle.db"))))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if !cfg.Log.Console || cfg.Log.File != "" {
		t.Fatalf("Expected default console logging, got %+v", cfg.Log)
	}

	var tokenErr, reportErr error
	out := captureStdout(t, func() {
		a, err := newApp(cfg, os.Stdout)
		if err != nil {
			t.Errorf("newApp: %v", err)
			return
		}
		defer a.Close()
		tokenErr = (&TokenCmd{Name: "alice"}).Run(a)
		reportErr = (&ReportCmd{WeekStart: "2024-06-03", WeekEnd: "2024-06-09", NoAI: true}).Run(a)
	})
	if tokenErr != nil || reportErr != nil {
		t.Fatalf("commands failed: token=%v report=%v", tokenErr, reportErr)
	}

	token, rest, ok := strings.Cut(out, "\n")
	if !ok || len(strings.Split(token, ".")) != 3 {
		t.Fatalf("Expected a JWT on the first line, got %q", out)
	}
	var rep model.WeeklyReport
	if err := json.Unmarshal([]byte(rest), &rep); err != nil {
		t.Errorf("Expected only report JSON after the token, got %q: %v", rest, err)
	}
	if rep.WeekStart != "2024-06-03" {
		t.Errorf("Unexpected report: %+v", rep)
	}
}
