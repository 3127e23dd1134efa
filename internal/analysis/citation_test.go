package analysis

import (
	"testing"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func testLookup() Lookup {
	return NewLookup([]models.Post{{ID: "abc123"}, {ID: "def456"}, {ID: "Mixed9"}})
}

func TestParseCitations(t *testing.T) {
	ids := ParseCitations("See [POST:abc123], [POST:def456] and again [POST:abc123]; not [POST:] or [POST:bad-id]")

	assert.Equal(t, []string{"abc123", "def456"}, ids)
	assert.Empty(t, ParseCitations("no tokens here"))
}

func TestResolveEntry(t *testing.T) {
	tests := []struct {
		name             string
		entry            models.InsightEntry
		expectedEvidence []string
	}{
		{
			name:             "Known citations in order",
			entry:            models.InsightEntry{Text: "Crashes [POST:def456] after [POST:abc123] and [POST:def456]"},
			expectedEvidence: []string{"https://www.reddit.com/comments/def456/", "https://www.reddit.com/comments/abc123/"},
		},
		{
			name:             "Unknown citation adds nothing",
			entry:            models.InsightEntry{Text: "Rumour [POST:zzz999]"},
			expectedEvidence: []string{},
		},
		{
			name: "Supplied evidence canonicalised and deduplicated",
			entry: models.InsightEntry{
				Text:     "Queue times [POST:abc123]",
				Evidence: []string{"https://old.reddit.com/r/Eldenring/comments/abc123/queue/", "def456", "[POST:def456]"},
			},
			expectedEvidence: []string{"https://www.reddit.com/comments/abc123/", "https://www.reddit.com/comments/def456/"},
		},
		{
			name:             "Supplied evidence outside the corpus dropped",
			entry:            models.InsightEntry{Text: "Lag", Evidence: []string{"https://www.reddit.com/comments/zzz999/", "[source 1]"}},
			expectedEvidence: []string{},
		},
		{
			name:             "Mixed case id resolves to corpus permalink",
			entry:            models.InsightEntry{Text: "Balance", Evidence: []string{"https://reddit.com/comments/mixed9/"}},
			expectedEvidence: []string{"https://www.reddit.com/comments/Mixed9/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := ResolveEntry(tt.entry, testLookup(), DefaultMaxEvidence)

			assert.Equal(t, tt.entry.Text, resolved.Text)
			assert.Equal(t, tt.expectedEvidence, resolved.Evidence)
		})
	}
}

func TestResolveEntry_CitationsNeverDropped(t *testing.T) {
	lookup := NewLookup([]models.Post{{ID: "aaaaa1"}, {ID: "aaaaa2"}, {ID: "aaaaa3"}, {ID: "aaaaa4"}})
	entry := models.InsightEntry{
		Text:     "[POST:aaaaa1] [POST:aaaaa2] [POST:aaaaa3] [POST:aaaaa4]",
		Evidence: []string{"aaaaa1"},
	}

	resolved := ResolveEntry(entry, lookup, 2)

	assert.Len(t, resolved.Evidence, 4)
	seen := make(map[string]bool)
	for _, link := range resolved.Evidence {
		assert.False(t, seen[link], "duplicate evidence %s", link)
		seen[link] = true
	}
}

func TestCanonicalEvidence(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{raw: "https://www.reddit.com/r/Eldenring/comments/1abcde/some_title/", expected: "https://www.reddit.com/comments/1abcde/", ok: true},
		{raw: "reddit.com/comments/xyz789", expected: "https://www.reddit.com/comments/xyz789/", ok: true},
		{raw: "[POST:q1w2e3]", expected: "https://www.reddit.com/comments/q1w2e3/", ok: true},
		{raw: "q1w2e3", expected: "https://www.reddit.com/comments/q1w2e3/", ok: true},
		{raw: "abc", ok: false},
		{raw: "https://example.com/thread", ok: false},
		{raw: "  ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			link, ok := CanonicalEvidence(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, link)
		})
	}
}

func TestRenderLinks(t *testing.T) {
	rendered := RenderLinks("Crashes [POST:abc123] but not [POST:zzz999]", testLookup())

	assert.Equal(t, "Crashes [POST:abc123](https://www.reddit.com/comments/abc123/) but not [POST:zzz999]", rendered)
}
