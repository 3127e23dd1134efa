package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func largeCorpus(n int) models.Corpus {
	corpus := models.Corpus{Source: "Eldenring+EldenRingBuilds"}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("post%03d", i)
		corpus.Posts = append(corpus.Posts, models.Post{
			ID:           id,
			Title:        fmt.Sprintf("Thread number %d about the DLC", i),
			Body:         strings.Repeat("Long **markdown** body text. ", 40),
			Score:        100 - i,
			CommentCount: 10,
		})
		corpus.Comments = append(corpus.Comments, models.Comment{ID: "c" + id, Body: "Agree with u/someone", Score: 3, ParentPostID: id})
	}
	return corpus
}

func TestBuildPrompt_Structure(t *testing.T) {
	prompt := BuildPrompt(largeCorpus(2), "Elden Ring", PromptBudget)

	assert.Contains(t, prompt, `about the game "Elden Ring"`)
	assert.Contains(t, prompt, "Communities: r/Eldenring, r/EldenRingBuilds")
	assert.Contains(t, prompt, "[POST:post000] [100 pts, 10 comments] Thread number 0 about the DLC")
	assert.Contains(t, prompt, "\n  Content: Long markdown body text.")
	assert.Contains(t, prompt, "COMMENT SAMPLES FROM TOP POSTS:\n- [POST:post000] [3 pts] Agree with u/someone")
	assert.True(t, strings.HasSuffix(prompt, "Respond with valid JSON only."))
}

func TestBuildPrompt_KeywordNote(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     string
	}{
		{name: "With keywords", keywords: []string{"lag", "dlc"}, want: "Keywords to watch for: lag, dlc."},
		{name: "Without keywords"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := largeCorpus(1)
			corpus.Keywords = tt.keywords

			prompt := BuildPrompt(corpus, "Elden Ring", PromptBudget)

			if tt.want == "" {
				assert.NotContains(t, prompt, "Keywords to watch for")
				return
			}
			assert.Contains(t, prompt, tt.want)
			assert.Less(t, strings.Index(prompt, tt.want), strings.Index(prompt, "POSTS:"))
		})
	}
}

func TestBuildPrompt_RespectsBudget(t *testing.T) {
	budget := 6000
	prompt := BuildPrompt(largeCorpus(50), "Elden Ring", budget)

	assert.LessOrEqual(t, len(prompt), budget+100)
	assert.Contains(t, prompt, "[POST:post000]", "most relevant post always first")
	assert.NotContains(t, prompt, "[POST:post049]")
	assert.True(t, strings.HasSuffix(prompt, "Respond with valid JSON only."))
}

func TestBuildPrompt_CommentsOnlyForIncludedPosts(t *testing.T) {
	corpus := largeCorpus(1)
	corpus.Comments = append(corpus.Comments, models.Comment{ID: "orphan", Body: "Unrelated", ParentPostID: "missing"})

	prompt := BuildPrompt(corpus, "", PromptBudget)

	assert.Contains(t, prompt, `"Unknown Game"`)
	assert.NotContains(t, prompt, "[POST:missing]")
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Emphasis and links", input: "This **patch** is [great](https://example.com/x) overall", expected: "This patch is great overall"},
		{name: "Paragraphs", input: "First line.\n\nSecond line.", expected: "First line. Second line."},
		{name: "Bare URL removed", input: "see https://example.com/a now", expected: "see now"},
		{name: "Removed body", input: "[removed]", expected: ""},
		{name: "Empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlainText(tt.input))
		})
	}
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Players love it [POST:abc].", firstSentence("Players love it [POST:abc]. But lag hurts."))
	assert.Equal(t, "Patch v1.10 is out", firstSentence("Patch v1.10 is out"))
	assert.Equal(t, "", firstSentence(""))
}
