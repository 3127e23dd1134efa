package monitoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/analysis"
	"github.com/gamepulse/sentiment-bot/internal/collector"
	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/sources"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxSources       = 5
	defaultCollectWorkers   = 3
	defaultBreakdownWorkers = 2
)

// Collector gathers the corpus for one source and merges corpora across sources
type Collector interface {
	Collect(ctx context.Context, source string, keywords string, limits collector.Limits) models.Corpus
	Merge(corpora []models.Corpus) models.Corpus
}

// AggregateRequest is one multi-source analysis
type AggregateRequest struct {
	Sources       []string
	Subject       string
	Keywords      string
	WantBreakdown bool
	Limits        collector.Limits
}

// AggregatorOptions bounds fan-out
type AggregatorOptions struct {
	CollectWorkers   int
	BreakdownWorkers int
	MaxSources       int
	Now              func() time.Time
}

// Aggregator combines per-source corpora into one report plus an optional breakdown
type Aggregator struct {
	collector Collector
	extractor analysis.Extractor
	opts      AggregatorOptions
}

// NewAggregator creates an aggregator; zero options select the defaults
func NewAggregator(c Collector, extractor analysis.Extractor, opts AggregatorOptions) *Aggregator {
	if opts.CollectWorkers <= 0 {
		opts.CollectWorkers = defaultCollectWorkers
	}
	if opts.BreakdownWorkers <= 0 {
		opts.BreakdownWorkers = defaultBreakdownWorkers
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{collector: c, extractor: extractor, opts: opts}
}

// Normalize validates the request and returns the deduplicated source list in caller order
func (a *Aggregator) Normalize(req AggregateRequest) ([]string, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, invalid("subject", "subject name is required")
	}

	names := sources.DedupeIdentifiers(req.Sources)
	if len(names) == 0 {
		return nil, invalid("sources", "at least one source is required")
	}
	if len(names) > a.opts.MaxSources {
		return nil, invalid("sources", "at most %d sources can be scanned together, got %d", a.opts.MaxSources, len(names))
	}
	return names, nil
}

// Aggregate collects every source concurrently, extracts one overall report from
// the union and, when requested, one breakdown row per source in request order.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (models.MultiSourceReport, error) {
	report, _, err := a.aggregate(ctx, req)
	return report, err
}

// aggregate also returns the merged corpus the overall report was extracted from
func (a *Aggregator) aggregate(ctx context.Context, req AggregateRequest) (models.MultiSourceReport, models.Corpus, error) {
	names, err := a.Normalize(req)
	if err != nil {
		return models.MultiSourceReport{}, models.Corpus{}, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"subject": req.Subject,
		"sources": strings.Join(names, ","),
	})
	logger.Info("Starting multi-source aggregation")

	corpora, err := a.collectAll(ctx, names, req)
	if err != nil {
		return models.MultiSourceReport{}, models.Corpus{}, err
	}

	var collected []models.Corpus
	meta := models.ReportMeta{Sources: []string{}, LastScanned: a.opts.Now().UTC()}
	for _, corpus := range corpora {
		if corpus.IsEmpty() {
			metrics.SourceCollectTotal.WithLabelValues(metrics.StatusEmpty).Inc()
			continue
		}
		metrics.SourceCollectTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		collected = append(collected, corpus)
		meta.Sources = append(meta.Sources, corpus.Source)
		meta.PostsAnalysed += len(corpus.Posts)
		meta.CommentsSampled += len(corpus.Comments)
	}

	merged := a.collector.Merge(collected)
	report := models.MultiSourceReport{
		Overall: a.extractor.Extract(ctx, merged, req.Subject),
		Meta:    meta,
	}

	if req.WantBreakdown {
		report.Breakdown = a.breakdown(ctx, corpora, req.Subject)
	}

	logger.WithFields(logrus.Fields{
		"collected": len(collected),
		"posts":     meta.PostsAnalysed,
		"comments":  meta.CommentsSampled,
		"label":     report.Overall.Label,
		"degraded":  report.Overall.Degraded,
	}).Info("Multi-source aggregation completed")

	return report, merged, nil
}

// collectAll runs one collection per source with a bounded worker count.
// Collections never fail, so no sibling is cancelled; a cancelled ctx stops scheduling.
func (a *Aggregator) collectAll(ctx context.Context, names []string, req AggregateRequest) ([]models.Corpus, error) {
	corpora := make([]models.Corpus, len(names))

	var g errgroup.Group
	g.SetLimit(a.opts.CollectWorkers)

	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		i, name := i, name
		g.Go(func() error {
			corpora[i] = a.collector.Collect(ctx, name, req.Keywords, req.Limits)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("multi-source scan cancelled: %w", err)
	}
	return corpora, nil
}

func (a *Aggregator) breakdown(ctx context.Context, corpora []models.Corpus, subject string) *models.Breakdown {
	rows := make([]models.BreakdownRow, len(corpora))

	var g errgroup.Group
	g.SetLimit(a.opts.BreakdownWorkers)

	for i, corpus := range corpora {
		i, corpus := i, corpus
		g.Go(func() error {
			rows[i] = a.extractor.SummarizeSource(ctx, corpus, subject)
			return nil
		})
	}
	_ = g.Wait()

	breakdown := &models.Breakdown{Rows: rows}
	for _, row := range rows {
		if row.Degraded {
			breakdown.Degraded = true
			break
		}
	}
	return breakdown
}
