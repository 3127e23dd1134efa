package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/discovery"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testService struct {
	*Service
	discoverer *MockDiscoverer
	collector  *MockCollector
	extractor  *MockExtractor
	notifier   *MockNotificationService
	results    *storage.MemoryResultStore
}

func newTestService(t *testing.T, cfg *config.Config) testService {
	t.Helper()

	memory := cache.NewMemory(time.Minute)
	t.Cleanup(memory.Stop)

	ts := testService{
		discoverer: &MockDiscoverer{},
		collector:  &MockCollector{},
		extractor:  &MockExtractor{},
		notifier:   &MockNotificationService{},
		results:    storage.NewMemoryResultStore(),
	}
	ts.Service = newService(cfg, ts.discoverer, ts.collector, Components{
		Extractor: ts.extractor,
		Results:   ts.results,
		Notifier:  ts.notifier,
		Cache:     memory,
	})
	ts.Service.now = func() time.Time { return testNow }
	return ts
}

func testConfig() *config.Config {
	return &config.Config{
		CollectWorkers:    2,
		BreakdownWorkers:  2,
		MaxSources:        5,
		MultiScanCacheTTL: 10 * time.Minute,
	}
}

func TestService_DiscoverSources(t *testing.T) {
	ts := newTestService(t, testConfig())
	expected := []models.CandidateSource{{Identifier: "Eldenring", Subscribers: 3000000, Score: 0.91}}
	ts.discoverer.On("Discover", mock.Anything, "Elden Ring", 5).Return(expected, nil)
	ts.discoverer.On("Discover", mock.Anything, "", 5).Return(nil, discovery.ErrEmptySubject)

	results, err := ts.DiscoverSources(context.Background(), "Elden Ring", 5)
	require.NoError(t, err)
	assert.Equal(t, expected, results)

	_, err = ts.DiscoverSources(context.Background(), "", 5)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestService_Scan(t *testing.T) {
	ts := newTestService(t, testConfig())
	corpus := sourceCorpus("Eldenring", 3)
	ts.collector.On("Collect", mock.Anything, "Eldenring", "lag", mock.Anything).Return(corpus)
	ts.extractor.On("Extract", mock.Anything, corpus, "Elden Ring").Return(mixedReport("Mixed feelings [POST:Eldenring0]."))

	result, err := ts.Scan(context.Background(), ScanRequest{
		SubjectID: "elden",
		Source:    "r/Eldenring",
		Subject:   "Elden Ring",
		Keywords:  "lag",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "elden", result.SubjectID)
	assert.Equal(t, 3, result.PostsCount)
	assert.Equal(t, 3, result.CommentsCount)
	assert.Equal(t, testNow, result.CreatedAt)
	assert.Equal(t, models.SentimentMixed, result.Analysis.Label)

	detail, err := ts.LatestResultDetail(context.Background(), "elden")
	require.NoError(t, err)
	assert.Equal(t, result.ID, detail.ID)
	assert.Equal(t, "Eldenring", detail.Source)
	assert.Len(t, detail.Posts, 3)
	assert.Len(t, detail.Comments, 3)

	assert.Contains(t, ts.GetMetrics(), `"single_scans": 1`)
}

func TestService_SubjectIDIsCaseInsensitive(t *testing.T) {
	ts := newTestService(t, testConfig())
	corpus := sourceCorpus("Eldenring", 1)
	ts.collector.On("Collect", mock.Anything, "Eldenring", "", mock.Anything).Return(corpus)
	ts.extractor.On("Extract", mock.Anything, corpus, "Elden Ring").Return(mixedReport("ok"))

	result, err := ts.Scan(context.Background(), ScanRequest{SubjectID: " Elden ", Source: "Eldenring", Subject: "Elden Ring"})
	require.NoError(t, err)
	assert.Equal(t, "elden", result.SubjectID)

	for _, id := range []string{"elden", "ELDEN", " Elden "} {
		detail, err := ts.LatestResultDetail(context.Background(), id)
		require.NoError(t, err, id)
		assert.Equal(t, result.ID, detail.ID)
	}
}

func TestService_Scan_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ScanRequest
	}{
		{name: "Missing source", req: ScanRequest{SubjectID: "elden", Subject: "Elden Ring"}},
		{name: "Missing subject", req: ScanRequest{SubjectID: "elden", Source: "Eldenring"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService(t, testConfig())

			_, err := ts.Scan(context.Background(), tt.req)

			var validationErr *ValidationError
			assert.True(t, errors.As(err, &validationErr))
			ts.collector.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// failingStore rejects every write
type failingStore struct{}

func (failingStore) Save(context.Context, models.ScanDetail) error {
	return errors.New("storage offline")
}

func (failingStore) Latest(context.Context, string) (*models.ScanDetail, error) {
	return nil, errors.New("storage offline")
}

func TestService_Scan_StorageFailureIsNotFatal(t *testing.T) {
	ts := newTestService(t, testConfig())
	ts.Service.results = failingStore{}

	corpus := sourceCorpus("Eldenring", 1)
	ts.collector.On("Collect", mock.Anything, "Eldenring", "", mock.Anything).Return(corpus)
	ts.extractor.On("Extract", mock.Anything, corpus, "Elden Ring").Return(mixedReport("ok"))

	result, err := ts.Scan(context.Background(), ScanRequest{Source: "Eldenring", Subject: "Elden Ring"})

	require.NoError(t, err)
	assert.Equal(t, "eldenring", result.SubjectID)
	assert.Contains(t, ts.GetMetrics(), `"error_count": 1`)

	_, err = ts.LatestResultDetail(context.Background(), "eldenring")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestService_LatestResultDetail_NoResults(t *testing.T) {
	ts := newTestService(t, testConfig())

	_, err := ts.LatestResultDetail(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = ts.LatestResultDetail(context.Background(), " ")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestService_MultiScan_CachesHealthyReports(t *testing.T) {
	ts := newTestService(t, testConfig())
	corpus := sourceCorpus("Eldenring", 2)
	ts.collector.On("Collect", mock.Anything, "Eldenring", "", mock.Anything).Return(corpus)
	ts.extractor.On("Extract", mock.Anything, mock.Anything, "Elden Ring").Return(mixedReport("cached"))

	req := MultiScanRequest{Sources: []string{"Eldenring"}, Subject: "Elden Ring"}
	first, err := ts.MultiScan(context.Background(), req)
	require.NoError(t, err)

	req.Sources = []string{"r/eldenring"}
	second, err := ts.MultiScan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Overall.Summary, second.Overall.Summary)
	assert.Equal(t, first.Meta.PostsAnalysed, second.Meta.PostsAnalysed)
	ts.collector.AssertNumberOfCalls(t, "Collect", 1)
}

func TestService_MultiScan_DoesNotCacheDegradedReports(t *testing.T) {
	ts := newTestService(t, testConfig())
	degraded := mixedReport("fallback")
	degraded.Degraded = true

	ts.collector.On("Collect", mock.Anything, "Eldenring", "", mock.Anything).Return(sourceCorpus("Eldenring", 2))
	ts.extractor.On("Extract", mock.Anything, mock.Anything, "Elden Ring").Return(degraded)

	req := MultiScanRequest{Sources: []string{"Eldenring"}, Subject: "Elden Ring"}
	for i := 0; i < 2; i++ {
		report, err := ts.MultiScan(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, report.Overall.Degraded)
	}

	ts.collector.AssertNumberOfCalls(t, "Collect", 2)
	assert.Contains(t, ts.GetMetrics(), `"degraded_reports": 2`)
}

func TestService_MultiScan_ValidationBeforeWork(t *testing.T) {
	ts := newTestService(t, testConfig())

	_, err := ts.MultiScan(context.Background(), MultiScanRequest{Subject: "Elden Ring"})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "sources", validationErr.Field)
	ts.collector.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMultiScanKey(t *testing.T) {
	a := multiScanKey([]string{"Eldenring", "EldenRingBuilds"}, MultiScanRequest{Subject: "Elden Ring", Keywords: "Lag, DLC"})
	b := multiScanKey([]string{"eldenring", "eldenringbuilds"}, MultiScanRequest{Subject: " elden ring ", Keywords: "lag;dlc"})
	c := multiScanKey([]string{"eldenring", "eldenringbuilds"}, MultiScanRequest{Subject: "elden ring", Keywords: "lag;dlc", IncludeBreakdown: true})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestService_RunScheduledScans(t *testing.T) {
	cfg := testConfig()
	cfg.TrackedSubjects = []models.TrackedSubject{
		{ID: "elden", Name: "Elden Ring", Sources: []string{"Eldenring", "EldenRingBuilds"}, Keywords: "dlc"},
	}
	ts := newTestService(t, cfg)

	ts.collector.On("Collect", mock.Anything, "Eldenring", "dlc", mock.Anything).Return(sourceCorpus("Eldenring", 4))
	ts.collector.On("Collect", mock.Anything, "EldenRingBuilds", "dlc", mock.Anything).Return(sourceCorpus("EldenRingBuilds", 3))
	ts.extractor.On("Extract", mock.Anything, mock.Anything, "Elden Ring").Return(mixedReport("scheduled"))
	ts.notifier.On("SendScanReport", mock.Anything, mock.MatchedBy(func(n *models.ScanNotification) bool {
		return n.SubjectID == "elden" &&
			n.Posts == 7 &&
			len(n.TopPosts) == notificationTopPosts &&
			assert.ObjectsAreEqual([]string{"Eldenring", "EldenRingBuilds"}, n.Sources)
	})).Return(nil)

	err := ts.RunScheduledScans(context.Background())

	require.NoError(t, err)
	ts.notifier.AssertExpectations(t)

	detail, err := ts.LatestResultDetail(context.Background(), "elden")
	require.NoError(t, err)
	assert.Equal(t, "Eldenring+EldenRingBuilds", detail.Source)
	assert.Len(t, detail.Posts, 7)

	var snapshot Metrics
	require.NoError(t, json.Unmarshal([]byte(ts.GetMetrics()), &snapshot))
	assert.Equal(t, 1, snapshot.ScheduledRuns)
	assert.Equal(t, models.SentimentMixed, snapshot.SubjectLabels["elden"])
}

func TestService_RunScheduledScans_ReportsFailures(t *testing.T) {
	cfg := testConfig()
	cfg.TrackedSubjects = []models.TrackedSubject{
		{ID: "elden", Name: "Elden Ring", Sources: []string{"Eldenring"}},
		{ID: "broken", Name: "Broken", Sources: []string{"a", "b", "c", "d", "e", "f"}},
	}
	ts := newTestService(t, cfg)

	ts.collector.On("Collect", mock.Anything, "Eldenring", "", mock.Anything).Return(sourceCorpus("Eldenring", 2))
	ts.extractor.On("Extract", mock.Anything, mock.Anything, "Elden Ring").Return(mixedReport("scheduled"))
	ts.notifier.On("SendScanReport", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	err := ts.RunScheduledScans(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "elden: failed to send notification: webhook down")
	assert.Contains(t, err.Error(), "broken: invalid sources")

	// The scan is stored even when notification fails
	_, err = ts.LatestResultDetail(context.Background(), "elden")
	assert.NoError(t, err)
}
