package discovery

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/sources"
	"github.com/sirupsen/logrus"
)

const (
	MaxResults     = 10
	DefaultResults = 5
)

// ErrEmptySubject is returned when the subject name is blank after trimming
var ErrEmptySubject = errors.New("subject name is required")

// Weights controls how the score components are combined
type Weights struct {
	Name     float64
	Strict   float64
	Activity float64
	Content  float64
}

// DefaultWeights favour direct name relevance over raw community size
var DefaultWeights = Weights{Name: 0.30, Strict: 0.25, Activity: 0.25, Content: 0.20}

// Options tunes a Scorer
type Options struct {
	Weights          Weights
	SearchLimit      int
	MaxCandidates    int
	SampleCandidates int
	SamplePosts      int
	CacheTTL         time.Duration
}

func (o Options) withDefaults() Options {
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 25
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 30
	}
	if o.SampleCandidates < 0 {
		o.SampleCandidates = 0
	}
	if o.SamplePosts <= 0 {
		o.SamplePosts = 25
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	return o
}

// Scorer proposes communities for a subject, ranked by relevance
type Scorer struct {
	lister sources.Lister
	cache  cache.Cache
	opts   Options
}

// NewScorer creates a discovery scorer over lister; c may be nil
func NewScorer(lister sources.Lister, c cache.Cache, opts Options) *Scorer {
	return &Scorer{
		lister: lister,
		cache:  c,
		opts:   opts.withDefaults(),
	}
}

type candidate struct {
	community models.Community
	name      float64
	strict    float64
	content   float64
	activity  float64
}

func (c candidate) seed() float64 {
	return 0.65*c.strict + 0.35*c.name
}

// Discover returns at most maxResults communities sorted by score, then subscribers
func (s *Scorer) Discover(ctx context.Context, subject string, maxResults int) ([]models.CandidateSource, error) {
	subject = strings.TrimSpace(subject)
	key := lookupKey(subject)
	if key == "" {
		return nil, ErrEmptySubject
	}
	maxResults = ClampResults(maxResults)

	cacheKey := "discovery:" + key
	var cached []models.CandidateSource
	if cache.GetJSON(s.cache, cacheKey, &cached) {
		return limit(cached, maxResults), nil
	}

	if s.lister == nil || !s.lister.IsEnabled() {
		logrus.Warn("Discovery skipped - no community search capability enabled")
		return []models.CandidateSource{}, nil
	}

	communities, reachable := s.search(ctx, subject)
	if !reachable {
		// Not cached so the next request retries the search capability
		return []models.CandidateSource{}, nil
	}

	results := s.score(ctx, subject, communities)
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	cache.SetJSON(s.cache, cacheKey, results, s.opts.CacheTTL)

	logrus.WithFields(logrus.Fields{
		"subject":    subject,
		"candidates": len(communities),
		"results":    len(results),
	}).Info("Discovery completed")

	return limit(results, maxResults), nil
}

// ClampResults bounds a requested result count to [1, MaxResults]
func ClampResults(n int) int {
	if n < 1 {
		return DefaultResults
	}
	if n > MaxResults {
		return MaxResults
	}
	return n
}

// search queries every prefix and merges hits case-insensitively, keeping the larger subscriber count
func (s *Scorer) search(ctx context.Context, subject string) (map[string]models.Community, bool) {
	merged := make(map[string]models.Community)
	reachable := false

	for _, prefix := range buildPrefixes(subject) {
		if ctx.Err() != nil {
			break
		}

		found, err := s.lister.SearchCommunities(ctx, prefix, s.opts.SearchLimit)
		if err != nil {
			logrus.Warnf("Community search failed for prefix %q: %v", prefix, err)
			continue
		}
		reachable = true

		for _, community := range found {
			key := sources.IdentifierKey(community.Name)
			if key == "" {
				continue
			}
			community.Name = sources.NormalizeIdentifier(community.Name)
			if existing, ok := merged[key]; !ok || community.Subscribers > existing.Subscribers {
				merged[key] = community
			}
		}
	}

	return merged, reachable
}

func (s *Scorer) score(ctx context.Context, subject string, communities map[string]models.Community) []models.CandidateSource {
	if len(communities) == 0 {
		return []models.CandidateSource{}
	}

	tokens := signalTokens(subject)
	all := make([]candidate, 0, len(communities))
	for _, community := range communities {
		all = append(all, candidate{
			community: community,
			name:      nameSimilarity(tokens, community.Name, community.Title, community.Description),
			strict:    strictMatch(subject, community.Name, community.Title, community.Description),
		})
	}

	// Relevance gate, relaxed when it would remove every candidate
	var gated []candidate
	for _, c := range all {
		if c.strict >= 0.45 || c.name >= 0.20 {
			gated = append(gated, c)
		}
	}
	if len(gated) == 0 {
		sort.Slice(all, func(i, j int) bool {
			return all[i].community.Subscribers > all[j].community.Subscribers
		})
		gated = all
		if len(gated) > 12 {
			gated = gated[:12]
		}
	}

	sort.SliceStable(gated, func(i, j int) bool {
		if gated[i].seed() != gated[j].seed() {
			return gated[i].seed() > gated[j].seed()
		}
		return gated[i].community.Subscribers > gated[j].community.Subscribers
	})
	if len(gated) > s.opts.MaxCandidates {
		gated = gated[:s.opts.MaxCandidates]
	}

	for i := range gated {
		if i < s.opts.SampleCandidates {
			gated[i].content = s.sampleContent(ctx, tokens, gated[i].community.Name)
		}
	}

	maxActivity := 0.0
	for i := range gated {
		gated[i].activity = math.Log1p(float64(maxInt(gated[i].community.Subscribers, 0)))
		if gated[i].activity > maxActivity {
			maxActivity = gated[i].activity
		}
	}

	w := s.opts.Weights
	results := make([]models.CandidateSource, 0, len(gated))
	for _, c := range gated {
		activity := 0.0
		if maxActivity > 0 {
			activity = c.activity / maxActivity
		}
		combined := w.Name*c.name + w.Strict*c.strict + w.Activity*activity + w.Content*c.content
		results = append(results, models.CandidateSource{
			Identifier:  c.community.Name,
			Subscribers: c.community.Subscribers,
			Score:       math.Round(combined*10000) / 10000,
			Reason:      buildReason(c.content, activity, c.name, c.strict),
		})
	}

	SortCandidates(results)
	return results
}

// sampleContent measures how often recent posts in community mention the subject
func (s *Scorer) sampleContent(ctx context.Context, tokens []string, community string) float64 {
	posts, err := s.lister.ListPosts(ctx, community, sources.Window{After: 14 * 24 * time.Hour})
	if err != nil {
		logrus.Debugf("Discovery sample fetch failed for r/%s: %v", community, err)
		return 0
	}
	if len(posts) > s.opts.SamplePosts {
		posts = posts[:s.opts.SamplePosts]
	}

	texts := make([]string, 0, len(posts))
	for _, post := range posts {
		body := post.Body
		if len(body) > 260 {
			body = body[:260]
		}
		texts = append(texts, post.Title+" "+body)
	}
	return contentRelevance(tokens, texts)
}

// SortCandidates orders by score desc, subscribers desc, then identifier for stability
func SortCandidates(results []models.CandidateSource) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Subscribers != results[j].Subscribers {
			return results[i].Subscribers > results[j].Subscribers
		}
		return strings.ToLower(results[i].Identifier) < strings.ToLower(results[j].Identifier)
	})
}

func limit(results []models.CandidateSource, n int) []models.CandidateSource {
	if len(results) > n {
		results = results[:n]
	}
	out := make([]models.CandidateSource, len(results))
	copy(out, results)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
