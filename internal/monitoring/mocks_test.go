package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/collector"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// MockCollector is a mock implementation of Collector; Merge uses the real merge logic
type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) Collect(ctx context.Context, source string, keywords string, limits collector.Limits) models.Corpus {
	args := m.Called(ctx, source, keywords, limits)
	return args.Get(0).(models.Corpus)
}

func (m *MockCollector) Merge(corpora []models.Corpus) models.Corpus {
	return collector.New(nil, nil, collector.Options{Now: func() time.Time { return testNow }}).Merge(corpora)
}

// MockExtractor is a mock implementation of analysis.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, corpus models.Corpus, subject string) models.SentimentReport {
	args := m.Called(ctx, corpus, subject)
	return args.Get(0).(models.SentimentReport)
}

func (m *MockExtractor) SummarizeSource(ctx context.Context, corpus models.Corpus, subject string) models.BreakdownRow {
	args := m.Called(ctx, corpus, subject)
	return args.Get(0).(models.BreakdownRow)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendScanReport(ctx context.Context, notification *models.ScanNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockDiscoverer is a mock implementation of Discoverer
type MockDiscoverer struct {
	mock.Mock
}

func (m *MockDiscoverer) Discover(ctx context.Context, subject string, maxResults int) ([]models.CandidateSource, error) {
	args := m.Called(ctx, subject, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CandidateSource), args.Error(1)
}

// sourceCorpus builds a corpus of n posts, each with one comment
func sourceCorpus(source string, n int) models.Corpus {
	corpus := models.Corpus{Source: source}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s%d", source, i)
		corpus.Posts = append(corpus.Posts, models.Post{
			ID:           id,
			Source:       source,
			Title:        fmt.Sprintf("Thread %d in %s", i, source),
			Score:        100 - i,
			CommentCount: 10,
			CreatedAt:    testNow.Add(-time.Duration(i) * time.Hour),
			Permalink:    "https://www.reddit.com/comments/" + id + "/",
		})
		corpus.Comments = append(corpus.Comments, models.Comment{ID: "c" + id, ParentPostID: id, Body: "comment"})
	}
	return corpus
}

func unavailableCorpus(source string) models.Corpus {
	return models.Corpus{
		Source:   source,
		Posts:    []models.Post{},
		Comments: []models.Comment{},
		Warnings: []string{fmt.Sprintf("r/%s is private, banned or does not exist", source)},
	}
}

func corpusFrom(source string) interface{} {
	return mock.MatchedBy(func(c models.Corpus) bool { return c.Source == source })
}

func rowFor(corpus models.Corpus, degraded bool) models.BreakdownRow {
	label := models.SentimentMixed
	if corpus.IsEmpty() {
		label = models.SentimentUnknown
	}
	return models.BreakdownRow{
		Source:         corpus.Source,
		Label:          label,
		SummaryBullets: []string{"Overall sentiment in r/" + corpus.Source},
		PostCount:      len(corpus.Posts),
		Degraded:       degraded,
	}
}

func mixedReport(summary string) models.SentimentReport {
	return models.SentimentReport{
		Label:      models.SentimentMixed,
		Summary:    summary,
		Themes:     []models.InsightEntry{{Text: "Performance"}},
		PainPoints: []models.InsightEntry{},
		Wins:       []models.InsightEntry{},
	}
}
