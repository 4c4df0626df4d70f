package publisher

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends the report as an HTML email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendMailFunc
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (p *EmailPublisher) Publish(_ context.Context, report *model.WeeklyReport) error {
	body := buildHTMLBody(report)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		reportTitle(report),
		body,
	)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := p.send(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}

	return nil
}

func buildHTMLBody(report *model.WeeklyReport) string {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
.overview { background: #f0f0f0; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
.member { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.member h3 { margin-top: 0; color: #0f3460; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
</style></head><body>`)

	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(reportTitle(report))))
	sb.WriteString(fmt.Sprintf("<p><em>%d updates from %d member(s)</em></p>", report.TotalUpdates(), len(report.UniqueMembers())))
	sb.WriteString(fmt.Sprintf(`<div class="overview"><h2>Overview</h2><p>%s</p></div>`, html.EscapeString(s.Narrative)))

	writeHTMLList(&sb, "h2", "Key Accomplishments", s.KeyAccomplishments)
	writeHTMLList(&sb, "h2", "Ongoing Work", s.OngoingWork)
	writeHTMLList(&sb, "h2", "Blockers", s.Blockers)
	writeHTMLList(&sb, "h2", "Recommendations", s.Recommendations)

	for _, name := range memberNames(s) {
		m := s.MemberSummaries[name]
		sb.WriteString(`<div class="member">`)
		sb.WriteString(fmt.Sprintf("<h3>%s</h3>", html.EscapeString(name)))
		sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, html.EscapeString(m.Role)))
		sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(m.ProgressNote)))
		writeHTMLList(&sb, "h4", "Contributions", m.KeyContributions)
		writeHTMLList(&sb, "h4", "Concerns", m.Concerns)
		sb.WriteString(fmt.Sprintf("<p><strong>Next focus:</strong> %s</p>", html.EscapeString(m.NextFocus)))
		sb.WriteString("</div>")
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

func writeHTMLList(sb *strings.Builder, tag, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("<%s>%s</%s><ul>", tag, heading, tag))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(model.StripHTML(item))))
	}
	sb.WriteString("</ul>")
}
