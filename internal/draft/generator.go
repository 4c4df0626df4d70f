// Package draft suggests a person's standup update from free-form notes.
package draft

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/summarizer"
)

const defaultMaxTokens = 512

// Generator drafts the yesterday/today/blockers fields with one completion
// call per field.
type Generator struct {
	Client    summarizer.Completer
	MaxTokens int
}

type field struct {
	name   string
	prompt string
	dest   *string
}

// Generate drafts all three fields concurrently. The draft is returned only
// when every field succeeds.
func (g *Generator) Generate(ctx context.Context, person model.Member, notes string) (model.Draft, error) {
	if strings.TrimSpace(notes) == "" {
		return model.Draft{}, fmt.Errorf("draft: notes are required")
	}
	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var d model.Draft
	fields := []field{
		{"yesterday", "what they completed on the previous working day", &d.Yesterday},
		{"today", "what they plan to work on today", &d.Today},
		{"blockers", `anything blocking them, or exactly "None" if nothing is`, &d.Blockers},
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		eg.Go(func() error {
			out, err := g.Client.Complete(ctx, buildPrompt(person, notes, f.prompt), maxTokens)
			if err != nil {
				return fmt.Errorf("draft: %s: %w", f.name, err)
			}
			*f.dest = strings.TrimSpace(out)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return model.Draft{}, err
	}
	return d, nil
}

func buildPrompt(person model.Member, notes, ask string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are helping %s", person.Name))
	if person.Role != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", person.Role))
	}
	sb.WriteString(" write a daily standup update.\n\n")
	sb.WriteString("Their notes:\n")
	sb.WriteString(notes)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Write one or two short sentences describing %s.\n", ask))
	sb.WriteString("Respond with the text only, no headings or quotes.")
	return sb.String()
}
