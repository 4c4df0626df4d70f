package summarizer

import (
	"fmt"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

const (
	ruleNextFocus   = "Continue current work and follow up on open items."
	noDataNarrative = "No standup data available for this week."
)

// RuleBased builds a summary from the report contents alone. It never fails
// and returns identical output for identical input.
type RuleBased struct{}

// Summarize builds the rule-based summary for report.
func (RuleBased) Summarize(report *model.WeeklyReport) model.ReportSummary {
	accomplishments := report.Accomplishments()
	ongoing := report.OngoingWork()
	blockers := report.Blockers()

	members := make(map[string]model.MemberSummary)
	for _, m := range report.UniqueMembers() {
		entries := report.EntriesFor(m.Name)
		var contributions, concerns []string
		for _, e := range entries {
			for _, r := range e.Records {
				if !model.IsEmptyContent(r.Yesterday) {
					contributions = append(contributions, r.Yesterday)
				}
				if !model.IsEmptyContent(r.Blockers) {
					concerns = append(concerns, r.Blockers)
				}
			}
		}
		members[m.Name] = model.MemberSummary{
			Role:             m.Role,
			KeyContributions: orEmpty(model.Cap(contributions, model.MaxContributions)),
			ProgressNote:     fmt.Sprintf("Submitted updates on %d day(s) this week.", len(entries)),
			Concerns:         orEmpty(concerns),
			NextFocus:        ruleNextFocus,
		}
	}

	return model.ReportSummary{
		KeyAccomplishments: orEmpty(model.Cap(accomplishments, model.MaxSummaryItems)),
		OngoingWork:        orEmpty(model.Cap(ongoing, model.MaxSummaryItems)),
		Blockers:           orEmpty(model.Cap(blockers, model.MaxSummaryItems)),
		Narrative: fmt.Sprintf("This week had %d standup entries with %d accomplishments, %d ongoing items and %d blockers.",
			len(report.Entries), len(accomplishments), len(ongoing), len(blockers)),
		Recommendations: []string{},
		MemberSummaries: members,
	}
}

// NoDataSummary is the summary of a week without any standup content.
func NoDataSummary() model.ReportSummary {
	return model.ReportSummary{
		KeyAccomplishments: []string{},
		OngoingWork:        []string{},
		Blockers:           []string{},
		Narrative:          noDataNarrative,
		Recommendations:    []string{},
		MemberSummaries:    map[string]model.MemberSummary{},
	}
}
