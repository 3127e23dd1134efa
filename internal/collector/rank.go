package collector

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const signatureTokens = 6

var (
	wordPattern = regexp.MustCompile(`[a-z0-9]+`)

	signatureStopWords = map[string]bool{
		"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true, "in": true,
		"on": true, "for": true, "is": true, "it": true, "i": true, "my": true, "me": true, "this": true,
		"that": true, "with": true, "are": true, "was": true, "be": true, "just": true, "so": true,
		"you": true, "your": true, "at": true, "its": true, "has": true, "have": true,
	}
)

// Engagement is the recency-independent value of a post
func Engagement(post models.Post) float64 {
	score := math.Max(float64(post.Score), 0)
	comments := math.Max(float64(post.CommentCount), 0)
	textBonus := math.Min(float64(len(post.Body))/500.0, 1.0)
	return 1 + math.Log1p(score) + 2*math.Log1p(comments) + 0.35*textBonus
}

// RecencyDecay halves every halfLife of post age; ages in the future count as zero
func RecencyDecay(createdAt, now time.Time, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 1
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// RankScore combines engagement with exponential recency decay
func RankScore(post models.Post, now time.Time, halfLife time.Duration) float64 {
	return Engagement(post) * RecencyDecay(post.CreatedAt, now, halfLife)
}

// SortByRank orders posts by RankScore descending, newer first on ties
func SortByRank(posts []models.Post, now time.Time, halfLife time.Duration) {
	scores := make(map[string]float64, len(posts))
	for _, post := range posts {
		scores[post.ID] = RankScore(post, now, halfLife)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		si, sj := scores[posts[i].ID], scores[posts[j].ID]
		if si != sj {
			return si > sj
		}
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

// TitleSignature folds a title into a key shared by near-duplicate titles
func TitleSignature(title string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, title)
	if err != nil {
		folded = title
	}

	var tokens []string
	for _, token := range wordPattern.FindAllString(strings.ToLower(folded), -1) {
		if signatureStopWords[token] {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == signatureTokens {
			break
		}
	}

	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// isLowQuality flags posts with no discussion, no votes and almost no text
func isLowQuality(post models.Post) bool {
	return post.CommentCount == 0 &&
		post.Score <= 1 &&
		len(post.Body) < 80 &&
		len(post.Title) < 25
}

func qualityFilter(posts []models.Post) []models.Post {
	var kept []models.Post
	for _, post := range posts {
		if !isLowQuality(post) {
			kept = append(kept, post)
		}
	}
	if len(kept) == 0 {
		return posts
	}
	return kept
}

// ParseKeywords splits a comma, semicolon or newline separated keyword list
func ParseKeywords(keywords string) []string {
	var parsed []string
	seen := make(map[string]bool)

	separators := func(r rune) bool { return r == ',' || r == ';' || r == '\n' }
	for _, part := range strings.FieldsFunc(keywords, separators) {
		keyword := strings.ToLower(strings.TrimSpace(part))
		if keyword == "" || seen[keyword] {
			continue
		}
		seen[keyword] = true
		parsed = append(parsed, keyword)
	}

	return parsed
}

// FilterByKeywords keeps posts whose title or body contains any keyword; it falls back to posts when nothing matches
func FilterByKeywords(posts []models.Post, keywords []string) ([]models.Post, bool) {
	if len(keywords) == 0 {
		return posts, true
	}

	var matched []models.Post
	for _, post := range posts {
		content := strings.ToLower(post.Title + " " + post.Body)
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				matched = append(matched, post)
				break
			}
		}
	}

	if len(matched) == 0 {
		return posts, false
	}
	return matched, true
}

// diversityCaps bounds how many selected posts may share one trait
type diversityCaps struct {
	perAuthor    int
	perSignature int
	noComments   int
}

// selectDiverse walks ranked posts and skips any that would exceed a cap, so
// later distinct candidates take their place
func selectDiverse(ranked []models.Post, maxPosts int, caps diversityCaps) []models.Post {
	authors := make(map[string]int)
	signatures := make(map[string]int)
	noComments := 0

	selected := make([]models.Post, 0, maxPosts)
	for _, post := range ranked {
		if len(selected) >= maxPosts {
			break
		}

		author := strings.ToLower(strings.TrimSpace(post.Author))
		trackAuthor := author != "" && author != "[deleted]"
		if trackAuthor && caps.perAuthor > 0 && authors[author] >= caps.perAuthor {
			continue
		}

		signature := TitleSignature(post.Title)
		if signature != "" && caps.perSignature > 0 && signatures[signature] >= caps.perSignature {
			continue
		}

		if post.CommentCount == 0 && caps.noComments > 0 && noComments >= caps.noComments {
			continue
		}

		selected = append(selected, post)
		if trackAuthor {
			authors[author]++
		}
		if signature != "" {
			signatures[signature]++
		}
		if post.CommentCount == 0 {
			noComments++
		}
	}

	return selected
}
