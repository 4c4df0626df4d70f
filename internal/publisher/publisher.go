// Package publisher delivers generated weekly reports.
package publisher

import (
	"context"
	"fmt"
	"sort"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

// Publisher publishes a weekly report to some output destination.
type Publisher interface {
	Publish(ctx context.Context, report *model.WeeklyReport) error
}

func reportTitle(r *model.WeeklyReport) string {
	return fmt.Sprintf("Weekly Standup Report: %s to %s", r.WeekStart, r.WeekEnd)
}

// memberNames returns the summarized members in name order.
func memberNames(s model.ReportSummary) []string {
	names := make([]string, 0, len(s.MemberSummaries))
	for name := range s.MemberSummaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
