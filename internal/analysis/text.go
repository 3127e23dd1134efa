package analysis

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/russross/blackfriday/v2"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
	bareURL      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	sentenceEnd  = regexp.MustCompile(`[.!?](\s|$)`)
)

// PlainText renders markdown post bodies and strips markup and links
func PlainText(markdown string) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" || isRemoved(markdown) {
		return ""
	}

	markdown = markdownLink.ReplaceAllString(markdown, "$1")
	rendered := blackfriday.Run([]byte(markdown), blackfriday.WithNoExtensions())

	text := string(rendered)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rendered))
	if err == nil {
		// Block elements render without separators, so add one per paragraph
		doc.Find("p, li, h1, h2, h3, h4, h5, h6, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml(" ")
		})
		text = doc.Text()
	}

	text = bareURL.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func isRemoved(body string) bool {
	return body == "[removed]" || body == "[deleted]"
}

// truncate cuts s to limit runes, appending an ellipsis when shortened
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	chars := []rune(s)
	return strings.TrimSpace(string(chars[:limit])) + "..."
}

// firstSentence returns the leading sentence of text including its terminator
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	loc := sentenceEnd.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return strings.TrimSpace(text[:loc[0]+1])
}
