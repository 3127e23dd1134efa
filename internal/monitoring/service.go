package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/analysis"
	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/collector"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/discovery"
	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/notifications"
	"github.com/gamepulse/sentiment-bot/internal/sources"
	"github.com/gamepulse/sentiment-bot/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	scanKindSingle    = "single"
	scanKindMulti     = "multi"
	scanKindScheduled = "scheduled"

	notificationTopPosts = 5
	scheduledRunTimeout  = 30 * time.Minute
)

// Discoverer proposes candidate sources for a subject
type Discoverer interface {
	Discover(ctx context.Context, subject string, maxResults int) ([]models.CandidateSource, error)
}

// Components are the collaborators a Service is built from
type Components struct {
	Lister    sources.Lister
	Extractor analysis.Extractor
	Results   storage.ResultStore
	Notifier  notifications.NotificationInterface
	Cache     cache.Cache
}

// Service runs discovery, single and multi-source scans, and scheduled rescans
type Service struct {
	config              *config.Config
	discoverer          Discoverer
	collector           Collector
	extractor           analysis.Extractor
	aggregator          *Aggregator
	results             storage.ResultStore
	notificationService notifications.NotificationInterface
	cache               cache.Cache
	metrics             *Metrics
	now                 func() time.Time
	mu                  sync.RWMutex
}

// Metrics holds a snapshot of recent scan activity
type Metrics struct {
	SingleScans     int                              `json:"single_scans"`
	MultiScans      int                              `json:"multi_scans"`
	ScheduledRuns   int                              `json:"scheduled_runs"`
	DegradedReports int                              `json:"degraded_reports"`
	ErrorCount      int                              `json:"error_count"`
	LastRun         time.Time                        `json:"last_run"`
	LastRunDuration string                           `json:"last_run_duration"`
	SubjectLabels   map[string]models.SentimentLabel `json:"subject_labels"`
}

// ScanRequest is a single-source scan for a tracked subject
type ScanRequest struct {
	SubjectID string
	Source    string
	Subject   string
	Keywords  string
}

// MultiScanRequest is a scan across several sources
type MultiScanRequest struct {
	Sources          []string
	Subject          string
	Keywords         string
	IncludeBreakdown bool
}

// NewLister selects the Reddit API when credentials are configured, else the public Arctic Shift archive
func NewLister(cfg *config.Config) sources.Lister {
	reddit := sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.UserAgent)
	if reddit.IsEnabled() {
		logrus.Info("Using the Reddit API for community content")
		return reddit
	}
	logrus.Infof("Using Arctic Shift at %s for community content", cfg.ArcticShiftBaseURL)
	return sources.NewArcticShiftSource(cfg.ArcticShiftBaseURL, cfg.UserAgent)
}

// NewExtractor builds the extraction engine; without an API key every call uses the heuristic strategy
func NewExtractor(cfg *config.Config) *analysis.Engine {
	var completer analysis.Completer
	if c := analysis.NewOpenAICompleter(analysis.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	}); c != nil {
		completer = c
	} else {
		logrus.Warn("OPENAI_API_KEY not set - sentiment extraction will use the heuristic fallback")
	}

	return analysis.NewEngine(completer, analysis.EngineOptions{Timeout: cfg.OpenAITimeout})
}

// NewService creates a new monitoring service
func NewService(cfg *config.Config, components Components) *Service {
	collectOpts := collector.DefaultOptions()
	if cfg.MaxPosts > 0 {
		collectOpts.MaxPosts = cfg.MaxPosts
	}
	collectOpts.MaxCommentsPerPost = cfg.MaxCommentsPerPost
	collectOpts.CommentPosts = cfg.CommentPosts
	collectOpts.RecencyHalfLife = cfg.RecencyHalfLife
	collectOpts.MaxPerTitleSignature = cfg.MaxPerTitleSignature
	collectOpts.MaxPerAuthor = cfg.MaxPerAuthor
	collectOpts.CommentDelay = cfg.CommentDelay
	collectOpts.CacheTTL = cfg.CacheTTL

	coll := collector.New(components.Lister, components.Cache, collectOpts)
	scorer := discovery.NewScorer(components.Lister, components.Cache, discovery.Options{
		SampleCandidates: cfg.DiscoverySampleCandidates,
		CacheTTL:         cfg.DiscoveryCacheTTL,
	})

	return newService(cfg, scorer, coll, components)
}

func newService(cfg *config.Config, discoverer Discoverer, coll Collector, components Components) *Service {
	results := components.Results
	if results == nil {
		results = storage.NewMemoryResultStore()
	}

	return &Service{
		config:     cfg,
		discoverer: discoverer,
		collector:  coll,
		extractor:  components.Extractor,
		aggregator: NewAggregator(coll, components.Extractor, AggregatorOptions{
			CollectWorkers:   cfg.CollectWorkers,
			BreakdownWorkers: cfg.BreakdownWorkers,
			MaxSources:       cfg.MaxSources,
		}),
		results:             results,
		notificationService: components.Notifier,
		cache:               components.Cache,
		metrics: &Metrics{
			SubjectLabels: make(map[string]models.SentimentLabel),
		},
		now: time.Now,
	}
}

// DiscoverSources proposes communities for subject
func (s *Service) DiscoverSources(ctx context.Context, subject string, maxResults int) ([]models.CandidateSource, error) {
	results, err := s.discoverer.Discover(ctx, subject, maxResults)
	if errors.Is(err, discovery.ErrEmptySubject) {
		return nil, invalid("subject", "subject name is required")
	}
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	return results, nil
}

// Scan collects one source, extracts a report and persists the result
func (s *Service) Scan(ctx context.Context, req ScanRequest) (models.ScanResult, error) {
	start := s.now()

	source := sources.NormalizeIdentifier(req.Source)
	if source == "" {
		return models.ScanResult{}, invalid("source", "a source identifier is required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return models.ScanResult{}, invalid("subject", "subject name is required")
	}
	subjectID := normalizeSubjectID(req.SubjectID)
	if subjectID == "" {
		subjectID = normalizeSubjectID(source)
	}

	corpus := s.collector.Collect(ctx, source, req.Keywords, collector.Limits{})
	report := s.extractor.Extract(ctx, corpus, req.Subject)

	detail := models.ScanDetail{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Source:    source,
		CreatedAt: s.now().UTC(),
		Analysis:  report,
		Posts:     corpus.Posts,
		Comments:  corpus.Comments,
	}
	s.store(ctx, detail)

	s.recordScan(scanKindSingle, subjectID, report, start)

	logrus.WithFields(logrus.Fields{
		"scan_id":  detail.ID,
		"subject":  subjectID,
		"source":   source,
		"posts":    len(corpus.Posts),
		"comments": len(corpus.Comments),
		"label":    report.Label,
		"degraded": report.Degraded,
	}).Info("Scan completed")

	return detail.Result(), nil
}

// MultiScan aggregates several sources; identical requests are served from cache for a short time
func (s *Service) MultiScan(ctx context.Context, req MultiScanRequest) (models.MultiSourceReport, error) {
	start := s.now()

	aggReq := AggregateRequest{
		Sources:       req.Sources,
		Subject:       req.Subject,
		Keywords:      req.Keywords,
		WantBreakdown: req.IncludeBreakdown,
	}
	names, err := s.aggregator.Normalize(aggReq)
	if err != nil {
		logrus.Infof("Rejected multi-scan request: %v", err)
		return models.MultiSourceReport{}, err
	}

	cacheKey := multiScanKey(names, req)
	var cached models.MultiSourceReport
	if cache.GetJSON(s.cache, cacheKey, &cached) {
		logrus.Debugf("Serving multi-scan from cache: %s", cacheKey)
		return cached, nil
	}

	report, err := s.aggregator.Aggregate(ctx, aggReq)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(scanKindMulti, metrics.StatusFailure).Inc()
		s.recordError()
		return models.MultiSourceReport{}, err
	}

	// Degraded output is not cached so the next request retries the completion service
	if !report.Overall.Degraded && (report.Breakdown == nil || !report.Breakdown.Degraded) {
		cache.SetJSON(s.cache, cacheKey, report, s.config.MultiScanCacheTTL)
	}

	s.recordScan(scanKindMulti, strings.ToLower(strings.Join(names, "+")), report.Overall, start)
	return report, nil
}

func multiScanKey(names []string, req MultiScanRequest) string {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = strings.ToLower(name)
	}
	return fmt.Sprintf("multiscan:%s|%s|%s|%t",
		strings.ToLower(strings.TrimSpace(req.Subject)),
		strings.Join(keys, ","),
		strings.ToLower(strings.Join(collector.ParseKeywords(req.Keywords), ",")),
		req.IncludeBreakdown)
}

// normalizeSubjectID gives every result store the same key for a subject
func normalizeSubjectID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// LatestResultDetail returns the most recent stored scan for subjectID
func (s *Service) LatestResultDetail(ctx context.Context, subjectID string) (*models.ScanDetail, error) {
	subjectID = normalizeSubjectID(subjectID)
	if subjectID == "" {
		return nil, invalid("subject_id", "a tracked subject id is required")
	}

	detail, err := s.results.Latest(ctx, subjectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest result for %s: %w", subjectID, err)
	}
	return detail, nil
}

// RunScheduledScans rescans every tracked subject, persists the results and sends notifications
func (s *Service) RunScheduledScans(ctx context.Context) error {
	start := s.now()
	logrus.Infof("Starting scheduled scans for %d tracked subjects", len(s.config.TrackedSubjects))

	ctx, cancel := context.WithTimeout(ctx, scheduledRunTimeout)
	defer cancel()

	var errs []string
	for _, subject := range s.config.TrackedSubjects {
		if err := s.scanTracked(ctx, subject); err != nil {
			logrus.Errorf("Scheduled scan for %s failed: %v", subject.ID, err)
			metrics.ScansTotal.WithLabelValues(scanKindScheduled, metrics.StatusFailure).Inc()
			s.recordError()
			errs = append(errs, fmt.Sprintf("%s: %v", subject.ID, err))
		}
	}

	s.mu.Lock()
	s.metrics.ScheduledRuns++
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = s.now().Sub(start).String()
	s.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("scheduled scan errors: %s", strings.Join(errs, "; "))
	}

	logrus.Infof("Scheduled scans completed in %v", s.now().Sub(start))
	return nil
}

func (s *Service) scanTracked(ctx context.Context, subject models.TrackedSubject) error {
	start := s.now()

	report, corpus, err := s.aggregator.aggregate(ctx, AggregateRequest{
		Sources:  subject.Sources,
		Subject:  subject.Name,
		Keywords: subject.Keywords,
	})
	if err != nil {
		return err
	}

	detail := models.ScanDetail{
		ID:        uuid.New().String(),
		SubjectID: normalizeSubjectID(subject.ID),
		Source:    strings.Join(report.Meta.Sources, "+"),
		CreatedAt: s.now().UTC(),
		Analysis:  report.Overall,
		Posts:     corpus.Posts,
		Comments:  corpus.Comments,
	}
	s.store(ctx, detail)
	s.recordScan(scanKindScheduled, detail.SubjectID, report.Overall, start)

	if s.notificationService == nil {
		return nil
	}

	topPosts := corpus.Posts
	if len(topPosts) > notificationTopPosts {
		topPosts = topPosts[:notificationTopPosts]
	}
	notification := &models.ScanNotification{
		SubjectID:   detail.SubjectID,
		SubjectName: subject.Name,
		Sources:     report.Meta.Sources,
		GeneratedAt: detail.CreatedAt,
		Posts:       report.Meta.PostsAnalysed,
		Comments:    report.Meta.CommentsSampled,
		Report:      report.Overall,
		TopPosts:    topPosts,
	}
	if err := s.notificationService.SendScanReport(ctx, notification); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// store persists a scan; failures are logged and never fail the scan itself
func (s *Service) store(ctx context.Context, detail models.ScanDetail) {
	if err := s.results.Save(ctx, detail); err != nil {
		logrus.WithFields(logrus.Fields{
			"scan_id": detail.ID,
			"subject": detail.SubjectID,
		}).Errorf("Failed to store scan result: %v", err)
		s.recordError()
	}
}

func (s *Service) recordScan(kind, subjectID string, report models.SentimentReport, start time.Time) {
	status := metrics.StatusSuccess
	if report.Label == models.SentimentUnknown && report.Summary == "" {
		status = metrics.StatusEmpty
	}
	metrics.ScansTotal.WithLabelValues(kind, status).Inc()
	metrics.ScanDuration.WithLabelValues(kind).Observe(s.now().Sub(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case scanKindSingle:
		s.metrics.SingleScans++
	case scanKindMulti:
		s.metrics.MultiScans++
	}
	if report.Degraded {
		s.metrics.DegradedReports++
	}
	s.metrics.SubjectLabels[subjectID] = report.Label
}

func (s *Service) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.ErrorCount++
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
