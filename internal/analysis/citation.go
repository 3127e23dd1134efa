package analysis

import (
	"regexp"
	"strings"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/sources"
)

// DefaultMaxEvidence bounds supplied evidence links per entry; cited posts are always kept
const DefaultMaxEvidence = 3

var (
	citationPattern    = regexp.MustCompile(`\[POST:([A-Za-z0-9_]+)\]`)
	commentsURLPattern = regexp.MustCompile(`(?i)reddit\.com/(?:r/[^/\s]+/)?comments/([a-z0-9_]+)`)
	bareIDPattern      = regexp.MustCompile(`^[A-Za-z0-9_]{5,}$`)
)

// CitationToken formats the inline marker that binds text to a post id
func CitationToken(id string) string {
	return "[POST:" + id + "]"
}

// ParseCitations returns cited post ids in order of first appearance
func ParseCitations(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		id := match[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Lookup maps post ids of one corpus to their canonical permalink
type Lookup map[string]string

// NewLookup indexes posts by id
func NewLookup(posts []models.Post) Lookup {
	lookup := make(Lookup, len(posts))
	for _, post := range posts {
		if post.ID == "" {
			continue
		}
		lookup[post.ID] = sources.Permalink(post.ID)
	}
	return lookup
}

// Resolve returns the permalink for a cited id, matching ids case-insensitively as a fallback
func (l Lookup) Resolve(id string) (string, bool) {
	if link, ok := l[id]; ok {
		return link, true
	}
	for known, link := range l {
		if strings.EqualFold(known, id) {
			return link, true
		}
	}
	return "", false
}

// CanonicalEvidence normalises a reddit comments URL, a citation token or a bare post id
func CanonicalEvidence(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if match := commentsURLPattern.FindStringSubmatch(raw); match != nil {
		return sources.Permalink(strings.ToLower(match[1])), true
	}
	if match := citationPattern.FindStringSubmatch(raw); match != nil {
		return sources.Permalink(match[1]), true
	}
	if bareIDPattern.MatchString(raw) {
		return sources.Permalink(raw), true
	}
	return "", false
}

// ResolveEntry derives evidence from citation tokens in the entry text. Known
// citations come first, in order of appearance; supplied evidence follows
// until maxEvidence is reached. Unknown tokens stay in the text and add
// nothing. The text itself is never rewritten.
func ResolveEntry(entry models.InsightEntry, lookup Lookup, maxEvidence int) models.InsightEntry {
	if maxEvidence <= 0 {
		maxEvidence = DefaultMaxEvidence
	}

	resolved := models.InsightEntry{Text: strings.TrimSpace(entry.Text), Evidence: []string{}}
	seen := make(map[string]bool)

	for _, id := range ParseCitations(resolved.Text) {
		link, ok := lookup.Resolve(id)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		resolved.Evidence = append(resolved.Evidence, link)
	}

	for _, raw := range entry.Evidence {
		if len(resolved.Evidence) >= maxEvidence {
			break
		}
		link, ok := CanonicalEvidence(raw)
		if ok {
			link, ok = lookup.match(link)
		}
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		resolved.Evidence = append(resolved.Evidence, link)
	}

	return resolved
}

// match returns the corpus permalink equal to link; an empty lookup accepts any link
func (l Lookup) match(link string) (string, bool) {
	if len(l) == 0 {
		return link, true
	}
	for _, permalink := range l {
		if strings.EqualFold(permalink, link) {
			return permalink, true
		}
	}
	return "", false
}

// RenderLinks turns known citation tokens into markdown links and leaves unknown ones as text
func RenderLinks(text string, lookup Lookup) string {
	return citationPattern.ReplaceAllStringFunc(text, func(token string) string {
		id := citationPattern.FindStringSubmatch(token)[1]
		link, ok := lookup.Resolve(id)
		if !ok {
			return token
		}
		return "[" + token[1:len(token)-1] + "](" + link + ")"
	})
}
