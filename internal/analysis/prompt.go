package analysis

import (
	"fmt"
	"strings"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

const (
	// PromptBudget bounds the serialized corpus in characters
	PromptBudget = 24000
	// SourcePromptBudget bounds the smaller per-source breakdown prompt
	SourcePromptBudget = 9000

	postContentLimit = 500
	commentLimit     = 300
)

const systemPrompt = "You are a community sentiment analyst for video games. " +
	"You summarise player discussions professionally and cite the posts you rely on. Return strict JSON only."

const requirements = `SENTIMENT SUMMARY (2-3 sentences):
- Sentence 1: overall sentiment and its main driver.
- Sentence 2: the two most concrete pain points.
- Sentence 3 (optional): the strongest positive driver.
- Reference at least two posts inline with [POST:post_id].

THEMES:
- 5-10 specific strings of the form "Theme name - explanation grounded in player feedback".
- At least half of the themes reference a post with [POST:post_id].
- No one-word generic labels.

PAIN POINTS AND WINS:
- Up to 5 objects each, with "text" and "evidence" fields only.
- Describe repeated issues or strengths, not one-off remarks.
- evidence is an array of 1-2 links of the form https://www.reddit.com/comments/POST_ID/

JSON SHAPE:
{"sentiment_label": "Positive|Mixed|Negative", "sentiment_summary": "...", "themes": ["..."],
 "pain_points": [{"text": "...", "evidence": ["..."]}], "wins": [{"text": "...", "evidence": ["..."]}]}

Do not assume modes, platforms or monetisation that the posts do not mention. Ignore personal attacks.
Respond with valid JSON only.`

// BuildPrompt serializes corpus most-relevant-first until budget characters are used
func BuildPrompt(corpus models.Corpus, subject string, budget int) string {
	if budget <= 0 {
		budget = PromptBudget
	}
	if strings.TrimSpace(subject) == "" {
		subject = "Unknown Game"
	}

	var header strings.Builder
	fmt.Fprintf(&header, "Analyze these Reddit posts and top comment samples about the game %q.\n", subject)
	if corpus.Source != "" {
		fmt.Fprintf(&header, "Communities: r/%s\n", strings.ReplaceAll(corpus.Source, "+", ", r/"))
	}
	if len(corpus.Keywords) > 0 {
		fmt.Fprintf(&header, "Keywords to watch for: %s. Prioritise themes, pain points and wins about these topics.\n",
			strings.Join(corpus.Keywords, ", "))
	}
	header.WriteString("\n")

	remaining := budget - header.Len() - len(requirements)

	var posts strings.Builder
	posts.WriteString("POSTS:\n")
	included := make(map[string]bool)
	for _, post := range corpus.Posts {
		line := postLine(post)
		if len(line)+1 > remaining {
			break
		}
		posts.WriteString(line)
		posts.WriteString("\n")
		remaining -= len(line) + 1
		included[post.ID] = true
	}

	var comments strings.Builder
	for _, comment := range corpus.Comments {
		if !included[comment.ParentPostID] {
			continue
		}
		line := fmt.Sprintf("- %s [%d pts] %s", CitationToken(comment.ParentPostID), comment.Score,
			truncate(singleLine(comment.Body), commentLimit))
		if len(line)+1 > remaining {
			break
		}
		if comments.Len() == 0 {
			comments.WriteString("\nCOMMENT SAMPLES FROM TOP POSTS:\n")
		}
		comments.WriteString(line)
		comments.WriteString("\n")
		remaining -= len(line) + 1
	}

	return header.String() + posts.String() + comments.String() + "\n" + requirements
}

func postLine(post models.Post) string {
	line := fmt.Sprintf("%s [%d pts, %d comments] %s", CitationToken(post.ID), post.Score, post.CommentCount,
		singleLine(post.Title))
	if content := PlainText(post.Body); content != "" {
		line += "\n  Content: " + truncate(content, postContentLimit)
	}
	return line
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func repairPrompt(invalid string) string {
	return "Convert the following model output into one valid JSON object with the keys " +
		"sentiment_label, sentiment_summary, themes, pain_points and wins. " +
		"Keep every [POST:id] marker unchanged.\n\n" + truncate(invalid, PromptBudget/2)
}

const repairSystemPrompt = "You repair invalid JSON. Return strict JSON only."
