// Package summarizer turns a weekly report into a ReportSummary, either with
// deterministic rules or by asking a text-generation model.
package summarizer

import (
	"context"
	"errors"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

var (
	// ErrAIUnavailable means there was nothing to summarize.
	ErrAIUnavailable = errors.New("AI summary unavailable")
	// ErrAIRequestFailed means the completion call failed or exhausted its retries.
	ErrAIRequestFailed = errors.New("AI request failed")
	// ErrAIParseFailed means the completion text held no usable JSON object.
	ErrAIParseFailed = errors.New("AI response could not be parsed")
)

// Completer is the text-generation RPC.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Result is the outcome of an AI summary attempt: either a summary or the
// reason there is none.
type Result struct {
	Summary model.ReportSummary
	Err     error
}

// OK reports whether the attempt produced a summary.
func (r Result) OK() bool { return r.Err == nil }

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
