package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/analysis"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/gomail.v2"
)

const (
	topThreadLimit    = 5
	insightLimit      = 3
	emailExcerptLimit = 200
)

// Service handles sending notifications via various channels
type Service struct {
	config    *config.Config
	client    *resty.Client
	publisher Publisher
	subject   string
}

var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service; publisher may be nil when NATS is not configured
func NewService(cfg *config.Config, publisher Publisher) *Service {
	return &Service{
		config:    cfg,
		client:    resty.New().SetTimeout(30 * time.Second),
		publisher: publisher,
		subject:   cfg.NATSSubject,
	}
}

// Enabled reports whether at least one channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != "" || s.publisher != nil
}

// SendScanReport delivers a scheduled scan to every configured channel
func (s *Service) SendScanReport(ctx context.Context, notification *models.ScanNotification) error {
	var errors []string

	send := func(channel string, fn func() error) {
		if err := fn(); err != nil {
			logrus.Errorf("Failed to send %s notification for %s: %v", channel, notification.SubjectID, err)
			metrics.NotificationsTotal.WithLabelValues(channel, metrics.StatusFailure).Inc()
			errors = append(errors, fmt.Sprintf("%s: %v", cases.Title(language.English).String(channel), err))
			return
		}
		logrus.Infof("Sent %s notification for %s", channel, notification.SubjectID)
		metrics.NotificationsTotal.WithLabelValues(channel, metrics.StatusSuccess).Inc()
	}

	if s.config.TeamsWebhookURL != "" {
		send("teams", func() error { return s.sendToTeams(ctx, notification) })
	}
	if s.config.NotificationEmail != "" {
		send("email", func() error { return s.sendEmail(notification) })
	}
	if s.publisher != nil {
		send("nats", func() error { return s.publishEvent(notification) })
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, notification *models.ScanNotification) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(s.buildTeamsMessage(notification)).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) buildTeamsMessage(n *models.ScanNotification) *TeamsMessage {
	lookup := analysis.NewLookup(n.TopPosts)

	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Community Sentiment - %s", n.SubjectName),
		Text:    analysis.RenderLinks(n.Report.Summary, lookup),
	}

	facts := []TeamsFact{
		{Name: "Sentiment", Value: string(n.Report.Label)},
		{Name: "Communities", Value: communityList(n.Sources)},
		{Name: "Posts Analysed", Value: fmt.Sprintf("%d", n.Posts)},
		{Name: "Comments Sampled", Value: fmt.Sprintf("%d", n.Comments)},
		{Name: "Generated", Value: n.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	if n.Report.Degraded {
		facts = append(facts, TeamsFact{Name: "Mode", Value: "Heuristic fallback"})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	insightSections := []struct {
		title   string
		entries []models.InsightEntry
	}{
		{"Pain Points", n.Report.PainPoints},
		{"Wins", n.Report.Wins},
	}
	for _, section := range insightSections {
		if len(section.entries) == 0 {
			continue
		}
		var lines []string
		for i, entry := range section.entries {
			if i == insightLimit {
				break
			}
			lines = append(lines, "- "+analysis.RenderLinks(entry.Text, lookup))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: section.title,
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if len(n.TopPosts) > 0 {
		var threads []string
		for i, post := range n.TopPosts {
			if i == topThreadLimit {
				break
			}
			threads = append(threads, fmt.Sprintf("**[%s](%s)** - r/%s (%d pts, %d comments)",
				post.Title, post.Permalink, post.Source, post.Score, post.CommentCount))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Threads",
			ActivityText:  strings.Join(threads, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(n *models.ScanNotification) error {
	subject := fmt.Sprintf("Community Sentiment - %s (%s, %d posts)", n.SubjectName, n.Report.Label, n.Posts)

	htmlBody, err := buildEmailHTML(n)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(n))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Community Sentiment Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #5c2d91; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .thread { border-left: 4px solid #5c2d91; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .thread-meta { color: #666; font-size: 0.9em; }
        .Positive { border-left-color: #107c10; }
        .Negative { border-left-color: #d13438; }
        .Mixed, .Unknown { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.SubjectName}}: {{.Report.Label}}</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}} from {{communities .Sources}}</p>
    </div>

    <div class="summary {{.Report.Label}}">
        <p>{{.Report.Summary}}</p>
        <p><strong>Posts analysed:</strong> {{.Posts}} | <strong>Comments sampled:</strong> {{.Comments}}</p>
        {{if .Report.Degraded}}<p><em>Generated by the heuristic fallback.</em></p>{{end}}
    </div>

    {{if .Report.PainPoints}}
    <h2>Pain Points</h2>
    <ul>{{range .Report.PainPoints}}<li>{{.Text}}{{range .Evidence}} <a href="{{.}}">source</a>{{end}}</li>{{end}}</ul>
    {{end}}

    {{if .Report.Wins}}
    <h2>Wins</h2>
    <ul>{{range .Report.Wins}}<li>{{.Text}}{{range .Evidence}} <a href="{{.}}">source</a>{{end}}</li>{{end}}</ul>
    {{end}}

    {{if .TopPosts}}
    <h2>Top Threads</h2>
    {{range .TopPosts}}
    <div class="thread">
        <a href="{{.Permalink}}" target="_blank">{{.Title}}</a>
        <div class="thread-meta">r/{{.Source}} | {{.Score}} pts | {{.CommentCount}} comments</div>
        {{if .Body}}<p>{{excerpt .Body}}</p>{{end}}
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the sentiment bot.</small></p>
</body>
</html>
`

var emailHTML = template.Must(template.New("email").Funcs(template.FuncMap{
	"communities": communityList,
	"excerpt": func(body string) string {
		return excerpt(analysis.PlainText(body), emailExcerptLimit)
	},
}).Parse(emailTemplate))

func buildEmailHTML(n *models.ScanNotification) (string, error) {
	var buf bytes.Buffer
	if err := emailHTML.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(n *models.ScanNotification) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Community Sentiment - %s\n", n.SubjectName))
	text.WriteString(fmt.Sprintf("Generated: %s\n", n.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Communities: %s\n\n", communityList(n.Sources)))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Sentiment: %s\n", n.Report.Label))
	text.WriteString(fmt.Sprintf("Posts analysed: %d | Comments sampled: %d\n", n.Posts, n.Comments))
	if n.Report.Summary != "" {
		text.WriteString(n.Report.Summary + "\n")
	}

	writeEntries := func(title string, entries []models.InsightEntry) {
		if len(entries) == 0 {
			return
		}
		text.WriteString(fmt.Sprintf("\n%s\n%s\n", strings.ToUpper(title), strings.Repeat("=", len(title))))
		for _, entry := range entries {
			text.WriteString("- " + entry.Text + "\n")
			for _, link := range entry.Evidence {
				text.WriteString("    " + link + "\n")
			}
		}
	}
	writeEntries("Pain points", n.Report.PainPoints)
	writeEntries("Wins", n.Report.Wins)

	if len(n.TopPosts) > 0 {
		text.WriteString("\nTOP THREADS\n")
		text.WriteString("===========\n")
		for i, post := range n.TopPosts {
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, post.Title))
			text.WriteString(fmt.Sprintf("   r/%s | %d pts | %d comments\n", post.Source, post.Score, post.CommentCount))
			text.WriteString(fmt.Sprintf("   URL: %s\n", post.Permalink))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the sentiment bot.\n")
	return text.String()
}

func communityList(sources []string) string {
	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = "r/" + source
	}
	return strings.Join(names, ", ")
}

func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
