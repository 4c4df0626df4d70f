package publisher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

// StdoutPublisher prints the report as plain text.
type StdoutPublisher struct {
	w io.Writer
}

// NewWriterPublisher prints to w, usually the command's stdout.
func NewWriterPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, report *model.WeeklyReport) error {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString(reportTitle(report) + "\n")
	fmt.Fprintf(&sb, "Updates: %d from %d member(s)\n", report.TotalUpdates(), len(report.UniqueMembers()))
	sb.WriteString(strings.Repeat("=", 72) + "\n\n")

	sb.WriteString("Overview:\n")
	sb.WriteString(s.Narrative + "\n\n")

	writeList(&sb, "Key Accomplishments", s.KeyAccomplishments)
	writeList(&sb, "Ongoing Work", s.OngoingWork)
	writeList(&sb, "Blockers", s.Blockers)
	writeList(&sb, "Recommendations", s.Recommendations)

	for _, name := range memberNames(s) {
		m := s.MemberSummaries[name]
		sb.WriteString(strings.Repeat("-", 72) + "\n")
		fmt.Fprintf(&sb, "%s (%s)\n", name, m.Role)
		fmt.Fprintf(&sb, "   %s\n", m.ProgressNote)
		for _, c := range m.KeyContributions {
			fmt.Fprintf(&sb, "   - %s\n", model.StripHTML(c))
		}
		if len(m.Concerns) > 0 {
			fmt.Fprintf(&sb, "   Concerns: %s\n", model.StripHTML(strings.Join(m.Concerns, "; ")))
		}
		fmt.Fprintf(&sb, "   Next: %s\n", m.NextFocus)
	}

	sb.WriteString(strings.Repeat("=", 72) + "\n")
	_, err := io.WriteString(p.w, sb.String())
	return err
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", model.StripHTML(item))
	}
	sb.WriteString("\n")
}
