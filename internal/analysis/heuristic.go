package analysis

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/jonreiter/govader"
)

const (
	dominanceRatio  = 1.15
	fallbackThemes  = 5
	fallbackInsight = 5
	vaderThreshold  = 0.2
)

var (
	negativeTerms = wordSet("bug", "bugs", "broken", "issue", "issues", "crash", "crashes", "lag", "stutter",
		"cheater", "cheaters", "queue", "matchmaking", "delay", "disconnect", "exploit", "unbalanced",
		"frustrating", "refund", "paywall", "grind", "toxic", "nerf")

	positiveTerms = wordSet("fun", "great", "good", "love", "enjoy", "smooth", "awesome", "improved",
		"improvement", "best", "better", "satisfying", "hype", "rewarding", "polished", "addictive", "fair")

	themeStopWords = wordSet("the", "and", "with", "from", "this", "that", "have", "your", "about", "into",
		"they", "their", "them", "what", "when", "where", "which", "were", "been", "just", "also", "more",
		"some", "many", "over", "than", "there", "users", "community", "game", "reddit", "post", "like",
		"would", "most", "much", "could", "should", "really", "still", "very", "make", "makes", "made",
		"stand", "anyone", "does", "dont", "why", "how", "for", "are", "you", "not", "but", "all", "can",
		"has", "was", "its", "any", "get", "got", "one", "out", "now", "new")

	tokenPattern = regexp.MustCompile(`[a-z0-9']+`)
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// HeuristicStrategy derives a report from lexical signals without any external call
type HeuristicStrategy struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewHeuristicStrategy creates the deterministic strategy
func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Name identifies the strategy in logs and metrics
func (h *HeuristicStrategy) Name() string {
	return "heuristic"
}

type postSignal struct {
	post     models.Post
	weight   float64
	positive float64
	negative float64
}

// Analyze never fails; the report is always marked degraded
func (h *HeuristicStrategy) Analyze(ctx context.Context, corpus models.Corpus, subject string) (models.SentimentReport, error) {
	if corpus.IsEmpty() {
		return models.EmptyReport(true), nil
	}

	signals := make([]postSignal, 0, len(corpus.Posts))
	byID := make(map[string]int, len(corpus.Posts))
	var positive, negative float64

	for _, post := range corpus.Posts {
		weight := signalWeight(post.Score, post.CommentCount)
		pos, neg := h.polarity(post.Title + ". " + PlainText(post.Body))
		signals = append(signals, postSignal{post: post, weight: weight, positive: pos, negative: neg})
		byID[post.ID] = len(signals) - 1
		positive += weight * pos
		negative += weight * neg
	}

	for _, comment := range corpus.Comments {
		weight := 0.5 * signalWeight(comment.Score, 0)
		pos, neg := h.polarity(PlainText(comment.Body))
		positive += weight * pos
		negative += weight * neg
		if i, ok := byID[comment.ParentPostID]; ok {
			signals[i].positive += 0.5 * pos
			signals[i].negative += 0.5 * neg
		}
	}

	label := labelFromTotals(positive, negative)
	lookup := NewLookup(corpus.Posts)

	report := models.SentimentReport{
		Label:      label,
		Summary:    fallbackSummary(label, subject, corpus),
		Themes:     resolveEntries(fallbackThemeEntries(signals), lookup, DefaultMaxEvidence),
		PainPoints: resolveEntries(signalEntries(signals, false), lookup, DefaultMaxEvidence),
		Wins:       resolveEntries(signalEntries(signals, true), lookup, DefaultMaxEvidence),
		Degraded:   true,
	}
	return report, nil
}

// polarity combines signal term counts with the VADER compound score
func (h *HeuristicStrategy) polarity(text string) (float64, float64) {
	var positive, negative float64
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if positiveTerms[token] {
			positive++
		}
		if negativeTerms[token] {
			negative++
		}
	}

	compound := h.analyzer.PolarityScores(text).Compound
	if compound >= vaderThreshold {
		positive += compound
	} else if compound <= -vaderThreshold {
		negative += -compound
	}
	return positive, negative
}

func signalWeight(score, comments int) float64 {
	return 1 + math.Log1p(math.Max(float64(score), 0)) + 1.2*math.Log1p(math.Max(float64(comments), 0))
}

func labelFromTotals(positive, negative float64) models.SentimentLabel {
	switch {
	case negative > dominanceRatio*positive:
		return models.SentimentNegative
	case positive > dominanceRatio*negative:
		return models.SentimentPositive
	default:
		return models.SentimentMixed
	}
}

func fallbackSummary(label models.SentimentLabel, subject string, corpus models.Corpus) string {
	if strings.TrimSpace(subject) == "" {
		subject = "the game"
	}

	var refs []string
	for _, post := range corpus.Posts {
		if len(refs) == 2 {
			break
		}
		refs = append(refs, fmt.Sprintf("%q %s", truncate(singleLine(post.Title), 90), CitationToken(post.ID)))
	}

	summary := fmt.Sprintf("Overall sentiment about %s is %s across %d posts and %d sampled comments.",
		subject, strings.ToLower(string(label)), len(corpus.Posts), len(corpus.Comments))
	if len(refs) > 0 {
		summary += " The most engaged threads are " + strings.Join(refs, " and ") + "."
	}
	return summary
}

type phraseStat struct {
	phrase string
	weight float64
	posts  map[string]bool
	best   string
	bestW  float64
}

func fallbackThemeEntries(signals []postSignal) []models.InsightEntry {
	stats := make(map[string]*phraseStat)

	for _, s := range signals {
		tokens := themeTokens(s.post.Title)
		seen := make(map[string]bool)
		for n := 3; n >= 2; n-- {
			for i := 0; i+n <= len(tokens); i++ {
				phrase := strings.Join(tokens[i:i+n], " ")
				if seen[phrase] {
					continue
				}
				seen[phrase] = true

				stat, ok := stats[phrase]
				if !ok {
					stat = &phraseStat{phrase: phrase, posts: make(map[string]bool)}
					stats[phrase] = stat
				}
				stat.weight += s.weight
				stat.posts[s.post.ID] = true
				if s.weight > stat.bestW {
					stat.best, stat.bestW = s.post.ID, s.weight
				}
			}
		}
	}

	ranked := make([]*phraseStat, 0, len(stats))
	for _, stat := range stats {
		ranked = append(ranked, stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if len(ranked[i].posts) != len(ranked[j].posts) {
			return len(ranked[i].posts) > len(ranked[j].posts)
		}
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].phrase < ranked[j].phrase
	})

	var chosen []string
	entries := []models.InsightEntry{}
	for _, stat := range ranked {
		if len(entries) == fallbackThemes {
			break
		}
		if overlaps(stat.phrase, chosen) {
			continue
		}
		chosen = append(chosen, stat.phrase)

		detail := "recurring player discussion"
		if count := len(stat.posts); count > 1 {
			detail = fmt.Sprintf("raised across %d threads", count)
		}
		entries = append(entries, models.InsightEntry{
			Text: fmt.Sprintf("%s - %s %s", capitalize(stat.phrase), detail, CitationToken(stat.best)),
		})
	}
	return entries
}

func themeTokens(title string) []string {
	var tokens []string
	for _, token := range tokenPattern.FindAllString(strings.ToLower(title), -1) {
		token = strings.Trim(token, "'")
		if len(token) <= 2 || themeStopWords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func overlaps(phrase string, chosen []string) bool {
	for _, c := range chosen {
		if strings.Contains(c, phrase) || strings.Contains(phrase, c) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// signalEntries lists the heaviest posts leaning positive (wins) or negative (pain points)
func signalEntries(signals []postSignal, positive bool) []models.InsightEntry {
	var matching []postSignal
	for _, s := range signals {
		if (positive && s.positive > s.negative) || (!positive && s.negative > s.positive) {
			matching = append(matching, s)
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].weight > matching[j].weight
	})

	prefix := "Players report friction around"
	if positive {
		prefix = "Players highlight a positive signal in"
	}

	entries := []models.InsightEntry{}
	for _, s := range matching {
		if len(entries) == fallbackInsight {
			break
		}
		entries = append(entries, models.InsightEntry{
			Text: fmt.Sprintf("%s: %s %s", prefix, truncate(singleLine(s.post.Title), 140), CitationToken(s.post.ID)),
		})
	}
	return entries
}
