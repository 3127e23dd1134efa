package analysis

import (
	"testing"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "Direct object", input: ` {"a": 1} `, expected: `{"a": 1}`, ok: true},
		{name: "Fenced block", input: "Here you go:\n```json\n{\"a\": 1}\n```\nThanks", expected: `{"a": 1}`, ok: true},
		{name: "Prose around braces", input: `Result: {"a": {"b": 2}} done`, expected: `{"a": {"b": 2}}`, ok: true},
		{name: "Array is not an object", input: `[1, 2]`, ok: false},
		{name: "Broken JSON", input: `{"a": }`, ok: false},
		{name: "Empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := ExtractJSONObject(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, payload)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected models.SentimentLabel
	}{
		{input: "Positive", expected: models.SentimentPositive},
		{input: "mostly NEGATIVE", expected: models.SentimentNegative},
		{input: " mixed ", expected: models.SentimentMixed},
		{input: "neutral", expected: models.SentimentUnknown},
		{input: "", expected: models.SentimentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLabel(tt.input))
		})
	}
}

func TestDecodeReport_HeterogeneousEntries(t *testing.T) {
	text := `{
		"label": "mixed feelings",
		"summary": "Opinions are split.",
		"themes": [
			"Plain string theme",
			{"summary": "Summary-keyed theme", "evidence": "abc123"},
			{"point": "Point-keyed theme", "source_post_id": "def456"},
			42,
			null,
			{"evidence": ["abc123"]}
		],
		"pain_points": {"text": "Single object instead of a list", "evidence": ["abc123", "def456"]},
		"wins": []
	}`

	report, err := decodeReport(text)
	require.NoError(t, err)

	assert.Equal(t, models.SentimentMixed, report.Label)
	assert.Equal(t, "Opinions are split.", report.Summary)

	require.Len(t, report.Themes, 4)
	assert.Equal(t, "Plain string theme", report.Themes[0].Text)
	assert.Empty(t, report.Themes[0].Evidence)
	assert.Equal(t, "Summary-keyed theme", report.Themes[1].Text)
	assert.Equal(t, []string{"abc123"}, report.Themes[1].Evidence)
	assert.Equal(t, "Point-keyed theme", report.Themes[2].Text)
	assert.Equal(t, []string{"def456"}, report.Themes[2].Evidence)
	assert.Equal(t, "42", report.Themes[3].Text)

	require.Len(t, report.PainPoints, 1)
	assert.Equal(t, []string{"abc123", "def456"}, report.PainPoints[0].Evidence)
	assert.Empty(t, report.Wins)
}

func TestDecodeReport_CapsLists(t *testing.T) {
	text := `{"sentiment_label":"Positive","sentiment_summary":"Good.",
		"themes":["1","2","3","4","5","6","7","8","9","10","11","12"],
		"pain_points":["a","b","c","d","e","f","g"],
		"wins":["a","b","c","d","e","f","g"]}`

	report, err := decodeReport(text)
	require.NoError(t, err)

	assert.Len(t, report.Themes, maxThemes)
	assert.Len(t, report.PainPoints, maxListInsight)
	assert.Len(t, report.Wins, maxListInsight)
}

func TestDecodeReport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "No JSON", input: "I cannot help with that"},
		{name: "Empty object", input: "{}"},
		{name: "Wrong field types", input: `{"sentiment_label": ["Positive"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeReport(tt.input)
			assert.Error(t, err)
		})
	}
}
