package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// Extractor turns a corpus into a sentiment report; it never fails
type Extractor interface {
	Extract(ctx context.Context, corpus models.Corpus, subject string) models.SentimentReport
	SummarizeSource(ctx context.Context, corpus models.Corpus, subject string) models.BreakdownRow
}

// Strategy is one way of producing a report from a corpus
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, corpus models.Corpus, subject string) (models.SentimentReport, error)
}

// AIStrategy asks a completion service for a structured report and resolves its citations
type AIStrategy struct {
	completer   Completer
	budget      int
	maxEvidence int
}

// NewAIStrategy creates an AI strategy with a prompt budget in characters
func NewAIStrategy(completer Completer, budget int) *AIStrategy {
	if budget <= 0 {
		budget = PromptBudget
	}
	return &AIStrategy{completer: completer, budget: budget, maxEvidence: DefaultMaxEvidence}
}

// Name identifies the strategy in logs and metrics
func (a *AIStrategy) Name() string {
	return "ai"
}

// Analyze calls the completer, repairing malformed JSON once before giving up
func (a *AIStrategy) Analyze(ctx context.Context, corpus models.Corpus, subject string) (models.SentimentReport, error) {
	prompt := BuildPrompt(corpus, subject, a.budget)

	text, err := a.completer.Complete(ctx, CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: analysisTemperature,
		JSON:        true,
	})
	if err != nil {
		return models.SentimentReport{}, err
	}

	report, err := decodeReport(text)
	if err != nil {
		logrus.Warnf("Completion was not a valid report (%v), requesting a repair", err)

		repaired, repairErr := a.completer.Complete(ctx, CompletionRequest{
			System: repairSystemPrompt,
			Prompt: repairPrompt(text),
			JSON:   true,
		})
		if repairErr != nil {
			return models.SentimentReport{}, fmt.Errorf("repair call failed: %w", repairErr)
		}
		report, err = decodeReport(repaired)
		if err != nil {
			return models.SentimentReport{}, fmt.Errorf("repaired completion still invalid: %w", err)
		}
	}

	return a.finalize(report, corpus), nil
}

// finalize resolves citations and gives uncited pain points and wins a top-ranked post as evidence
func (a *AIStrategy) finalize(report models.SentimentReport, corpus models.Corpus) models.SentimentReport {
	lookup := NewLookup(corpus.Posts)

	report.Themes = resolveEntries(report.Themes, lookup, a.maxEvidence)
	report.PainPoints = resolveEntries(report.PainPoints, lookup, a.maxEvidence)
	report.Wins = resolveEntries(report.Wins, lookup, a.maxEvidence)

	var top []string
	for i, post := range corpus.Posts {
		if i == 5 {
			break
		}
		top = append(top, lookup[post.ID])
	}
	next := 0
	for _, entries := range [][]models.InsightEntry{report.PainPoints, report.Wins} {
		for i := range entries {
			if len(entries[i].Evidence) > 0 || len(top) == 0 {
				continue
			}
			entries[i].Evidence = []string{top[next%len(top)]}
			next++
		}
	}

	report.Degraded = false
	return report
}

func resolveEntries(entries []models.InsightEntry, lookup Lookup, maxEvidence int) []models.InsightEntry {
	resolved := make([]models.InsightEntry, 0, len(entries))
	for _, entry := range entries {
		resolved = append(resolved, ResolveEntry(entry, lookup, maxEvidence))
	}
	return resolved
}

// EngineOptions tunes the extraction engine
type EngineOptions struct {
	Timeout      time.Duration
	Budget       int
	SourceBudget int
}

// Engine runs the AI strategy with a timeout and falls back to the heuristic strategy on any failure
type Engine struct {
	primary       Strategy
	sourcePrimary Strategy
	fallback      Strategy
	timeout       time.Duration
}

// NewEngine creates an engine; a nil completer selects the heuristic strategy for every call
func NewEngine(completer Completer, opts EngineOptions) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SourceBudget <= 0 {
		opts.SourceBudget = SourcePromptBudget
	}

	engine := &Engine{
		fallback: NewHeuristicStrategy(),
		timeout:  opts.Timeout,
	}
	if completer != nil {
		engine.primary = NewAIStrategy(completer, opts.Budget)
		engine.sourcePrimary = NewAIStrategy(completer, opts.SourceBudget)
	}
	return engine
}

// NewEngineWithStrategies wires explicit strategies; primary may be nil
func NewEngineWithStrategies(primary, fallback Strategy, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{primary: primary, sourcePrimary: primary, fallback: fallback, timeout: timeout}
}

// Extract produces the report for corpus. An empty corpus yields Unknown
// without any external call, degraded only when no AI strategy is configured.
func (e *Engine) Extract(ctx context.Context, corpus models.Corpus, subject string) models.SentimentReport {
	if corpus.IsEmpty() {
		return models.EmptyReport(e.primary == nil)
	}
	return e.run(ctx, e.primary, corpus, subject)
}

func (e *Engine) run(ctx context.Context, primary Strategy, corpus models.Corpus, subject string) models.SentimentReport {
	logger := logrus.WithFields(logrus.Fields{"source": corpus.Source, "posts": len(corpus.Posts)})

	if primary != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		report, err := primary.Analyze(callCtx, corpus, subject)
		cancel()

		if err == nil {
			metrics.ExtractionTotal.WithLabelValues(primary.Name(), metrics.StatusSuccess).Inc()
			return report
		}
		metrics.ExtractionTotal.WithLabelValues(primary.Name(), metrics.StatusFailure).Inc()
		logger.Warnf("%s extraction failed, using %s fallback: %v", primary.Name(), e.fallback.Name(), err)
	}

	report, err := e.fallback.Analyze(ctx, corpus, subject)
	if err != nil {
		metrics.ExtractionTotal.WithLabelValues(e.fallback.Name(), metrics.StatusFailure).Inc()
		logger.Errorf("Fallback extraction failed: %v", err)
		return models.EmptyReport(true)
	}
	metrics.ExtractionTotal.WithLabelValues(e.fallback.Name(), metrics.StatusSuccess).Inc()
	report.Degraded = true
	return report
}
