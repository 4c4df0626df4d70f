package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/retry"
)

// StatusOverloaded is the provider's "overloaded" status.
const StatusOverloaded = 529

const (
	placeholderProgress  = "No progress note provided."
	placeholderFocus     = "Not specified."
	placeholderNarrative = "No narrative provided."
)

// FailureKind classifies a failed completion status.
type FailureKind string

const (
	KindUnauthorized FailureKind = "unauthorized"
	KindForbidden    FailureKind = "forbidden"
	KindNotFound     FailureKind = "not-found"
	KindRateLimited  FailureKind = "rate-limited"
	KindOverloaded   FailureKind = "overloaded"
	KindServerError  FailureKind = "server-error"
	KindOther        FailureKind = "other"
)

// KindOf maps an HTTP status to its failure kind.
func KindOf(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == StatusOverloaded:
		return KindOverloaded
	case status >= 500:
		return KindServerError
	default:
		return KindOther
	}
}

func describeStatus(status int) string {
	switch KindOf(status) {
	case KindUnauthorized:
		return "unauthorized: check the AI API key"
	case KindForbidden:
		return "forbidden: the AI API key has no access to this model"
	case KindNotFound:
		return "not found: check the AI model name and base URL"
	case KindRateLimited:
		return "rate limited by the AI provider"
	case KindOverloaded:
		return "the AI provider is overloaded"
	case KindServerError:
		return fmt.Sprintf("AI provider server error (status %d)", status)
	default:
		return fmt.Sprintf("unexpected status %d from the AI provider", status)
	}
}

// aiRetryable retries only rate limiting and overload.
func aiRetryable(err error) bool {
	code, ok := retry.StatusOf(err)
	return ok && (code == http.StatusTooManyRequests || code == StatusOverloaded)
}

// AI summarizes reports with a text-generation model.
type AI struct {
	client    Completer
	maxTokens int
	retry     retry.Config
	logger    *slog.Logger
}

// NewAI returns an AI summarizer. The retry predicate is always replaced so
// that only 429 and 529 responses are retried.
func NewAI(client Completer, maxTokens int, rc retry.Config, logger *slog.Logger) *AI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rc.Retryable = aiRetryable
	return &AI{client: client, maxTokens: maxTokens, retry: rc, logger: logger}
}

// Attempt runs GenerateSummary and tags the outcome.
func (a *AI) Attempt(ctx context.Context, report *model.WeeklyReport) Result {
	s, err := a.GenerateSummary(ctx, report)
	return Result{Summary: s, Err: err}
}

// GenerateSummary asks the model for a structured summary. Errors wrap
// ErrAIUnavailable, ErrAIRequestFailed or ErrAIParseFailed.
func (a *AI) GenerateSummary(ctx context.Context, report *model.WeeklyReport) (model.ReportSummary, error) {
	if report == nil || len(report.Entries) == 0 {
		return model.ReportSummary{}, fmt.Errorf("summarizer: %w: report has no entries", ErrAIUnavailable)
	}

	members := report.UniqueMembers()
	prompt := buildPrompt(report, members)

	var text string
	attempts, err := retry.Do(ctx, a.retry, func(ctx context.Context) error {
		out, err := a.client.Complete(ctx, prompt, a.maxTokens)
		if err != nil {
			a.logger.Debug("AI completion attempt failed", "err", err)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		if code, ok := retry.StatusOf(err); ok {
			return model.ReportSummary{}, fmt.Errorf("summarizer: %w after %d attempt(s): %s: %w",
				ErrAIRequestFailed, attempts, describeStatus(code), err)
		}
		return model.ReportSummary{}, fmt.Errorf("summarizer: %w after %d attempt(s): %w", ErrAIRequestFailed, attempts, err)
	}

	raw, err := parseObject(text)
	if err != nil {
		return model.ReportSummary{}, err
	}
	if !hasSummaryField(raw) {
		return model.ReportSummary{}, fmt.Errorf("summarizer: %w: response has no summary fields", ErrAIParseFailed)
	}
	return buildSummary(raw, members, a.logger), nil
}

func buildPrompt(report *model.WeeklyReport, members []model.Member) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are an engineering manager summarizing a team's standup updates for the week %s to %s.\n\n",
		report.WeekStart, report.WeekEnd))

	for _, e := range report.Entries {
		sb.WriteString(fmt.Sprintf("--- %s ---\n", e.Date))
		for _, r := range e.Records {
			sb.WriteString(fmt.Sprintf("%s (%s)\n", r.PersonName, r.Role))
			sb.WriteString(fmt.Sprintf("  Yesterday: %s\n", promptText(r.Yesterday)))
			sb.WriteString(fmt.Sprintf("  Today: %s\n", promptText(r.Today)))
			sb.WriteString(fmt.Sprintf("  Blockers: %s\n", promptText(r.Blockers)))
		}
		sb.WriteString("\n")
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = fmt.Sprintf("%q", m.Name)
	}

	sb.WriteString(fmt.Sprintf(`Team members: %s

Respond with one JSON object with this exact structure:
{
  "keyAccomplishments": ["up to 10 items"],
  "ongoingWork": ["up to 10 items"],
  "blockers": ["up to 10 items"],
  "narrative": "A short paragraph describing the week",
  "recommendations": ["actionable suggestions for the team"],
  "memberSummaries": {
    "<member name>": {
      "role": "the member's role",
      "keyContributions": ["up to 5 items"],
      "progressNote": "one sentence on the member's progress",
      "concerns": ["risks or blockers for this member"],
      "nextFocus": "what the member should focus on next"
    }
  }
}

The keys of "memberSummaries" must be exactly these names and no others: %s.
Do not put placeholder keys such as "role" or "name" directly under "memberSummaries".
Respond ONLY with valid JSON, no markdown fences or additional text.`, strings.Join(names, ", "), strings.Join(names, ", ")))

	return sb.String()
}

func promptText(s string) string {
	if model.IsEmptyContent(s) {
		return "None"
	}
	return model.StripHTML(s)
}

// parseObject extracts the first top-level JSON object from text, ignoring
// code fences and any prose around it.
func parseObject(text string) (map[string]any, error) {
	body := strings.TrimSpace(text)
	body = strings.ReplaceAll(body, "```json", "")
	body = strings.ReplaceAll(body, "```", "")

	block, ok := firstObject(body)
	if !ok {
		return nil, fmt.Errorf("summarizer: %w: no JSON object in response", ErrAIParseFailed)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("summarizer: %w: %w", ErrAIParseFailed, err)
	}
	return raw, nil
}

// firstObject returns the first balanced {...} span, honouring JSON string
// quoting so braces inside strings do not count.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var summaryFields = []string{
	"keyAccomplishments", "ongoingWork", "blockers", "narrative", "recommendations", "memberSummaries",
}

// hasSummaryField reports whether raw carries at least one summary key.
func hasSummaryField(raw map[string]any) bool {
	for _, k := range summaryFields {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

func buildSummary(raw map[string]any, members []model.Member, logger *slog.Logger) model.ReportSummary {
	summary := model.ReportSummary{
		KeyAccomplishments: orEmpty(model.Cap(stringList(raw["keyAccomplishments"]), model.MaxSummaryItems)),
		OngoingWork:        orEmpty(model.Cap(stringList(raw["ongoingWork"]), model.MaxSummaryItems)),
		Blockers:           orEmpty(model.Cap(stringList(raw["blockers"]), model.MaxSummaryItems)),
		Narrative:          stringOr(raw["narrative"], placeholderNarrative),
		Recommendations:    orEmpty(stringList(raw["recommendations"])),
		MemberSummaries:    map[string]model.MemberSummary{},
	}

	section, _ := raw["memberSummaries"].(map[string]any)
	for _, key := range reconcileKeys(section, members, logger) {
		m := key.member
		fields, _ := section[key.raw].(map[string]any)
		summary.MemberSummaries[m.Name] = model.MemberSummary{
			Role:             stringOr(fields["role"], m.Role),
			KeyContributions: orEmpty(model.Cap(stringList(fields["keyContributions"]), model.MaxContributions)),
			ProgressNote:     stringOr(fields["progressNote"], placeholderProgress),
			Concerns:         orEmpty(stringList(fields["concerns"])),
			NextFocus:        stringOr(fields["nextFocus"], placeholderFocus),
		}
	}
	return summary
}

type memberKey struct {
	raw    string
	member model.Member
}

// reconcileKeys matches model-generated keys against the known members. A
// key is cleaned of stray quotes and whitespace and compared
// case-insensitively; keys matching nobody are dropped. When several keys
// map to one member, an exact match wins, then the first key in sorted order.
func reconcileKeys(section map[string]any, members []model.Member, logger *slog.Logger) []memberKey {
	known := make(map[string]model.Member, len(members))
	for _, m := range members {
		known[strings.ToLower(m.Name)] = m
	}

	raws := make([]string, 0, len(section))
	for k := range section {
		raws = append(raws, k)
	}
	sort.Strings(raws)

	chosen := make(map[string]memberKey)
	var order []string
	for _, k := range raws {
		m, ok := known[strings.ToLower(CleanKey(k))]
		if !ok {
			logger.Debug("dropping unknown member key from AI summary", "key", k)
			continue
		}
		prev, seen := chosen[m.Name]
		if !seen {
			order = append(order, m.Name)
		}
		if !seen || (prev.raw != m.Name && k == m.Name) {
			chosen[m.Name] = memberKey{raw: k, member: m}
		}
	}

	out := make([]memberKey, 0, len(order))
	for _, name := range order {
		out = append(out, chosen[name])
	}
	return out
}

// CleanKey strips quote characters and surrounding whitespace from a
// model-generated member key.
func CleanKey(k string) string {
	k = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '`', '“', '”', '‘', '’':
			return -1
		}
		return r
	}, k)
	return strings.TrimSpace(k)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
