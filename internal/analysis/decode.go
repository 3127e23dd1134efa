package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

const (
	maxThemes      = 10
	maxListInsight = 5
)

var (
	errNoJSONObject = errors.New("response contains no JSON object")
	errEmptyReport  = errors.New("response carries no sentiment fields")

	fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ExtractJSONObject finds a JSON object in a completion: the whole text, a fenced block, or the outermost braces
func ExtractJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if isJSONObject(text) {
		return text, true
	}

	if match := fencePattern.FindStringSubmatch(text); match != nil {
		candidate := strings.TrimSpace(match[1])
		if isJSONObject(candidate) {
			return candidate, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if isJSONObject(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func isJSONObject(text string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(text), &obj) == nil
}

// NormalizeLabel maps free-form label text onto the four sentiment labels
func NormalizeLabel(raw string) models.SentimentLabel {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(value, "positive"):
		return models.SentimentPositive
	case strings.Contains(value, "negative"):
		return models.SentimentNegative
	case strings.Contains(value, "mixed"):
		return models.SentimentMixed
	default:
		return models.SentimentUnknown
	}
}

// insightKind tags which shape an insight entry arrived in
type insightKind int

const (
	insightString insightKind = iota
	insightObject
	insightOther
)

// rawInsight is one insight entry as the completion produced it
type rawInsight struct {
	kind     insightKind
	text     string
	evidence []string
}

// UnmarshalJSON accepts a plain string, an object with any of the known text and evidence keys, or a scalar
func (r *rawInsight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.kind = insightString
		r.text = s
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		r.kind = insightObject
		for _, key := range []string{"text", "summary", "point", "title", "theme", "description"} {
			if value := stringField(obj[key]); value != "" {
				r.text = value
				break
			}
		}
		r.evidence = stringList(obj["evidence"])
		for _, key := range []string{"post_id", "source_post_id", "id"} {
			if value := stringField(obj[key]); value != "" {
				r.evidence = append(r.evidence, value)
			}
		}
		return nil
	}

	r.kind = insightOther
	if string(data) != "null" {
		r.text = strings.Trim(string(data), `"`)
	}
	return nil
}

func (r rawInsight) entry() models.InsightEntry {
	entry := models.InsightEntry{Text: strings.TrimSpace(r.text)}
	if r.kind == insightObject {
		entry.Evidence = r.evidence
	}
	return entry
}

// insightList accepts a list of entries or a single entry in place of a list
type insightList []rawInsight

func (l *insightList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []rawInsight
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var item rawInsight
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	if item.text != "" || len(item.evidence) > 0 {
		*l = insightList{item}
	}
	return nil
}

func (l insightList) entries(limit int) []models.InsightEntry {
	entries := make([]models.InsightEntry, 0, len(l))
	for _, item := range l {
		entry := item.entry()
		if entry.Text == "" {
			continue
		}
		entries = append(entries, entry)
		if len(entries) == limit {
			break
		}
	}
	return entries
}

type rawReport struct {
	Label      string      `json:"sentiment_label"`
	AltLabel   string      `json:"label"`
	Summary    string      `json:"sentiment_summary"`
	AltSummary string      `json:"summary"`
	Themes     insightList `json:"themes"`
	PainPoints insightList `json:"pain_points"`
	Wins       insightList `json:"wins"`
}

// decodeReport parses a completion into a report whose entries are not yet resolved against a corpus
func decodeReport(text string) (models.SentimentReport, error) {
	payload, ok := ExtractJSONObject(text)
	if !ok {
		return models.SentimentReport{}, errNoJSONObject
	}

	var raw rawReport
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return models.SentimentReport{}, fmt.Errorf("failed to decode sentiment report: %w", err)
	}

	label := raw.Label
	if label == "" {
		label = raw.AltLabel
	}
	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = strings.TrimSpace(raw.AltSummary)
	}

	report := models.SentimentReport{
		Label:      NormalizeLabel(label),
		Summary:    summary,
		Themes:     raw.Themes.entries(maxThemes),
		PainPoints: raw.PainPoints.entries(maxListInsight),
		Wins:       raw.Wins.entries(maxListInsight),
	}

	if report.Label == models.SentimentUnknown && report.Summary == "" &&
		len(report.Themes) == 0 && len(report.PainPoints) == 0 && len(report.Wins) == 0 {
		return models.SentimentReport{}, errEmptyReport
	}

	return report, nil
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	if s := stringField(raw); s != "" {
		return []string{s}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var values []string
	for _, item := range items {
		if s := stringField(item); s != "" {
			values = append(values, s)
		}
	}
	return values
}
