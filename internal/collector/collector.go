package collector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/sources"
	"github.com/sirupsen/logrus"
)

const (
	commentBodyLimit      = 400
	commentsPerAuthor     = 2
	defaultCandidateRatio = 2
)

// Limits bounds a single collection
type Limits struct {
	MaxPosts           int
	MaxCommentsPerPost int
}

// Options tunes ranking, diversity and comment sampling
type Options struct {
	MaxPosts             int
	MaxCommentsPerPost   int
	CommentPosts         int
	RecencyHalfLife      time.Duration
	MaxPerTitleSignature int
	MaxPerAuthor         int
	MaxNoCommentPosts    int
	CommentDelay         time.Duration
	CacheTTL             time.Duration
	Windows              []sources.Window
	Now                  func() time.Time
}

// DefaultOptions returns the collection policy used when nothing is configured
func DefaultOptions() Options {
	return Options{
		MaxPosts:             100,
		MaxCommentsPerPost:   10,
		CommentPosts:         15,
		RecencyHalfLife:      72 * time.Hour,
		MaxPerTitleSignature: 2,
		MaxPerAuthor:         3,
		MaxNoCommentPosts:    20,
		CacheTTL:             10 * time.Minute,
		Windows:              sources.DefaultWindows,
		Now:                  time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPosts <= 0 {
		o.MaxPosts = d.MaxPosts
	}
	if o.MaxCommentsPerPost < 0 {
		o.MaxCommentsPerPost = d.MaxCommentsPerPost
	}
	if o.CommentPosts < 0 {
		o.CommentPosts = d.CommentPosts
	}
	if o.RecencyHalfLife <= 0 {
		o.RecencyHalfLife = d.RecencyHalfLife
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = d.CacheTTL
	}
	if len(o.Windows) == 0 {
		o.Windows = d.Windows
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Collector gathers a bounded, diverse, recency-weighted sample from one source
type Collector struct {
	lister sources.Lister
	cache  cache.Cache
	opts   Options
}

// New creates a collector over lister; c may be nil to disable caching
func New(lister sources.Lister, c cache.Cache, opts Options) *Collector {
	return &Collector{
		lister: lister,
		cache:  c,
		opts:   opts.withDefaults(),
	}
}

// Collect never fails: an unavailable source yields an empty corpus with a warning
func (c *Collector) Collect(ctx context.Context, source string, keywords string, limits Limits) models.Corpus {
	name := sources.NormalizeIdentifier(source)
	corpus := models.Corpus{
		Source:   name,
		Posts:    []models.Post{},
		Comments: []models.Comment{},
		Keywords: ParseKeywords(keywords),
	}
	if name == "" {
		corpus.Warnings = append(corpus.Warnings, "empty source identifier")
		return corpus
	}

	maxPosts, maxComments := c.resolveLimits(limits)
	logger := logrus.WithFields(logrus.Fields{"source": name, "max_posts": maxPosts})

	candidates, err := c.fetchCandidates(ctx, name, maxPosts)
	if err != nil {
		warning := fmt.Sprintf("r/%s could not be collected: %v", name, err)
		if errors.Is(err, sources.ErrSourceUnavailable) {
			warning = fmt.Sprintf("r/%s is private, banned or does not exist", name)
		}
		logger.Warn(warning)
		corpus.Warnings = append(corpus.Warnings, warning)
		return corpus
	}
	if len(candidates) == 0 {
		corpus.Warnings = append(corpus.Warnings, fmt.Sprintf("r/%s returned no posts", name))
		return corpus
	}

	now := c.opts.Now()
	pool := qualityFilter(candidates)

	pool, matched := FilterByKeywords(pool, corpus.Keywords)
	if !matched {
		corpus.Warnings = append(corpus.Warnings, "no posts matched the keywords; using the unfiltered sample")
	}

	SortByRank(pool, now, c.opts.RecencyHalfLife)
	corpus.Posts = selectDiverse(pool, maxPosts, diversityCaps{
		perAuthor:    c.opts.MaxPerAuthor,
		perSignature: c.opts.MaxPerTitleSignature,
		noComments:   c.opts.MaxNoCommentPosts,
	})

	corpus.Comments = c.sampleComments(ctx, corpus.Posts, maxComments)

	logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"posts":      len(corpus.Posts),
		"comments":   len(corpus.Comments),
	}).Info("Collection completed")

	return corpus
}

func (c *Collector) resolveLimits(limits Limits) (int, int) {
	maxPosts := limits.MaxPosts
	if maxPosts <= 0 || maxPosts > c.opts.MaxPosts {
		maxPosts = c.opts.MaxPosts
	}
	maxComments := limits.MaxCommentsPerPost
	if maxComments <= 0 {
		maxComments = c.opts.MaxCommentsPerPost
	}
	return maxPosts, maxComments
}

// fetchCandidates merges windows newest first until twice the target is gathered
func (c *Collector) fetchCandidates(ctx context.Context, name string, maxPosts int) ([]models.Post, error) {
	if c.lister == nil || !c.lister.IsEnabled() {
		return nil, fmt.Errorf("no content listing capability enabled")
	}

	cacheKey := "posts:" + strings.ToLower(name)
	var cached []models.Post
	if cache.GetJSON(c.cache, cacheKey, &cached) {
		return cached, nil
	}

	merged := make(map[string]models.Post)
	var order []string
	var lastErr error

	for _, window := range c.opts.Windows {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		posts, err := c.lister.ListPosts(ctx, name, window)
		if err != nil {
			lastErr = err
			if errors.Is(err, sources.ErrSourceUnavailable) {
				break
			}
			continue
		}

		for _, post := range posts {
			if post.Source == "" {
				post.Source = name
			}
			if _, ok := merged[post.ID]; !ok {
				order = append(order, post.ID)
			}
			merged[post.ID] = post
		}

		if len(merged) >= maxPosts*defaultCandidateRatio {
			break
		}
	}

	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}

	candidates := make([]models.Post, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, merged[id])
	}

	cache.SetJSON(c.cache, cacheKey, candidates, c.opts.CacheTTL)
	return candidates, nil
}

// sampleComments fetches the best comments for the highest ranked posts
func (c *Collector) sampleComments(ctx context.Context, posts []models.Post, perPost int) []models.Comment {
	comments := []models.Comment{}
	if perPost <= 0 || c.opts.CommentPosts == 0 {
		return comments
	}

	limit := c.opts.CommentPosts
	if limit > len(posts) {
		limit = len(posts)
	}

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}

		fetched, err := c.fetchComments(ctx, posts[i].ID)
		if err != nil {
			logrus.Debugf("Comments for %s unavailable: %v", posts[i].ID, err)
			continue
		}
		comments = append(comments, SelectComments(fetched, perPost)...)

		if c.opts.CommentDelay > 0 && i < limit-1 {
			select {
			case <-ctx.Done():
			case <-time.After(c.opts.CommentDelay):
			}
		}
	}

	return comments
}

func (c *Collector) fetchComments(ctx context.Context, postID string) ([]models.Comment, error) {
	cacheKey := "comments:" + postID
	var cached []models.Comment
	if cache.GetJSON(c.cache, cacheKey, &cached) {
		return cached, nil
	}

	comments, err := c.lister.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].ParentPostID = postID
	}

	cache.SetJSON(c.cache, cacheKey, comments, c.opts.CacheTTL)
	return comments, nil
}

var userMention = regexp.MustCompile(`/?u/[A-Za-z0-9_-]+`)

// SelectComments ranks by score, then body length, then recency, allowing at most two per author
func SelectComments(comments []models.Comment, limit int) []models.Comment {
	ranked := make([]models.Comment, len(comments))
	copy(ranked, comments)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if len(ranked[i].Body) != len(ranked[j].Body) {
			return len(ranked[i].Body) > len(ranked[j].Body)
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	authors := make(map[string]int)
	selected := make([]models.Comment, 0, limit)
	for _, comment := range ranked {
		if len(selected) >= limit {
			break
		}

		author := strings.ToLower(comment.Author)
		if author != "" && authors[author] >= commentsPerAuthor {
			continue
		}

		comment.Body = cleanCommentBody(comment.Body)
		selected = append(selected, comment)
		if author != "" {
			authors[author]++
		}
	}

	return selected
}

func cleanCommentBody(body string) string {
	clean := userMention.ReplaceAllString(strings.TrimSpace(body), "[user]")
	chars := []rune(clean)
	if len(chars) > commentBodyLimit {
		clean = string(chars[:commentBodyLimit]) + "..."
	}
	return clean
}

// Merge combines per-source corpora into one ranked corpus, dropping duplicate ids
func (c *Collector) Merge(corpora []models.Corpus) models.Corpus {
	merged := models.Corpus{Posts: []models.Post{}, Comments: []models.Comment{}}

	var names []string
	seenPosts := make(map[string]bool)
	seenComments := make(map[string]bool)
	seenKeywords := make(map[string]bool)

	for _, corpus := range corpora {
		if corpus.Source != "" {
			names = append(names, corpus.Source)
		}
		for _, keyword := range corpus.Keywords {
			if !seenKeywords[keyword] {
				seenKeywords[keyword] = true
				merged.Keywords = append(merged.Keywords, keyword)
			}
		}
		for _, post := range corpus.Posts {
			if seenPosts[post.ID] {
				continue
			}
			seenPosts[post.ID] = true
			merged.Posts = append(merged.Posts, post)
		}
		for _, comment := range corpus.Comments {
			key := comment.ParentPostID + "/" + comment.ID
			if seenComments[key] {
				continue
			}
			seenComments[key] = true
			merged.Comments = append(merged.Comments, comment)
		}
		merged.Warnings = append(merged.Warnings, corpus.Warnings...)
	}

	merged.Source = strings.Join(names, "+")
	SortByRank(merged.Posts, c.opts.Now(), c.opts.RecencyHalfLife)
	return merged
}
