package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/retry"
)

const discordColor = 0x5865F2

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordPublisher publishes reports to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
	batchDelay  time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
			Backoff:    retry.Exponential,
		},
		batchDelay: 500 * time.Millisecond,
	}
}

// Publish sends the report to Discord as a series of rich embeds.
func (d *DiscordPublisher) Publish(ctx context.Context, report *model.WeeklyReport) error {
	batches := batchEmbeds(buildEmbeds(report))

	for i, batch := range batches {
		_, err := retry.Do(ctx, d.retryConfig, func(ctx context.Context) error {
			return d.sendWebhook(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.batchDelay):
			}
		}
	}
	return nil
}

// buildEmbeds creates the overview embed and one embed per member.
func buildEmbeds(report *model.WeeklyReport) []discordEmbed {
	s := report.Summary
	embeds := make([]discordEmbed, 0, len(s.MemberSummaries)+1)

	overview := discordEmbed{
		Title:       truncate(reportTitle(report), 256),
		Description: truncate(s.Narrative, 4096),
		Color:       discordColor,
		Footer: &discordEmbedFooter{
			Text: fmt.Sprintf("%d updates from %d member(s)", report.TotalUpdates(), len(report.UniqueMembers())),
		},
	}
	for _, f := range []struct {
		name  string
		items []string
	}{
		{"Key Accomplishments", s.KeyAccomplishments},
		{"Ongoing Work", s.OngoingWork},
		{"Blockers", s.Blockers},
		{"Recommendations", s.Recommendations},
	} {
		if len(f.items) > 0 {
			overview.Fields = append(overview.Fields, discordEmbedField{
				Name:  f.name,
				Value: truncate(formatBullets(f.items), 1024),
			})
		}
	}
	embeds = append(embeds, overview)

	for _, name := range memberNames(s) {
		m := s.MemberSummaries[name]
		e := discordEmbed{
			Title:       truncate(fmt.Sprintf("%s (%s)", name, m.Role), 256),
			Description: truncate(m.ProgressNote, 4096),
			Color:       discordColor,
			Footer:      &discordEmbedFooter{Text: truncate("Next: "+m.NextFocus, 2048)},
		}
		if len(m.KeyContributions) > 0 {
			e.Fields = append(e.Fields, discordEmbedField{
				Name:  "Contributions",
				Value: truncate(formatBullets(m.KeyContributions), 1024),
			})
		}
		if len(m.Concerns) > 0 {
			e.Fields = append(e.Fields, discordEmbedField{
				Name:  "Concerns",
				Value: truncate(formatBullets(m.Concerns), 1024),
			})
		}
		embeds = append(embeds, e)
	}

	return embeds
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// sendWebhook posts a batch of embeds to the Discord webhook. Non-2xx
// responses come back as *retry.StatusError.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	body, err := json.Marshal(discordWebhookPayload{Embeds: embeds})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return nil
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	end := max - 1
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	// Try to cut at a sentence boundary.
	if idx := strings.LastIndexAny(cut, ".!?"); idx > max/2 {
		return cut[:idx+1]
	}
	return cut + "…"
}

// formatBullets renders items as a bulleted list of plain text.
func formatBullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(model.StripHTML(item))
	}
	return b.String()
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		n += len(f.Name) + len(f.Value)
	}
	if e.Footer != nil {
		n += len(e.Footer.Text)
	}
	return n
}
