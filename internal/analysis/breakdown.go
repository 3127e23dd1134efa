package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

const (
	rowThemes   = 5
	rowInsights = 3
	rowMinimum  = 3
)

// SummarizeSource builds the breakdown row for one source's corpus with the
// smaller source prompt. Rows produced by the heuristic strategy are marked
// degraded; thin AI rows are padded from the heuristic row for the same corpus.
func (e *Engine) SummarizeSource(ctx context.Context, corpus models.Corpus, subject string) models.BreakdownRow {
	if corpus.IsEmpty() {
		row := RowFromReport(corpus, models.EmptyReport(false))
		row.SummaryBullets = []string{fmt.Sprintf("No posts could be collected from r/%s.", corpus.Source)}
		return row
	}

	report := e.run(ctx, e.sourcePrimary, corpus, subject)
	row := RowFromReport(corpus, report)
	if report.Degraded || !thinRow(row) {
		return row
	}

	fallback, err := e.fallback.Analyze(ctx, corpus, subject)
	if err != nil {
		return row
	}
	return padRow(row, RowFromReport(corpus, fallback))
}

// RowFromReport projects a source-scoped report onto a breakdown row
func RowFromReport(corpus models.Corpus, report models.SentimentReport) models.BreakdownRow {
	row := models.BreakdownRow{
		Source:         corpus.Source,
		Label:          report.Label,
		TopThemes:      []string{},
		TopPainPoints:  firstEntries(report.PainPoints, rowInsights),
		TopWins:        firstEntries(report.Wins, rowInsights),
		SummaryBullets: []string{},
		PostCount:      len(corpus.Posts),
		Degraded:       report.Degraded,
	}
	if row.Label == "" {
		row.Label = models.SentimentUnknown
	}

	for _, theme := range report.Themes {
		if len(row.TopThemes) == rowThemes {
			break
		}
		row.TopThemes = append(row.TopThemes, theme.Text)
	}

	if len(corpus.Posts) == 0 {
		return row
	}

	row.SummaryBullets = append(row.SummaryBullets,
		fmt.Sprintf("Overall sentiment in r/%s is %s.", corpus.Source, strings.ToLower(string(row.Label))))
	if sentence := firstSentence(report.Summary); sentence != "" {
		row.SummaryBullets = append(row.SummaryBullets, sentence)
	}

	var refs []string
	for _, post := range corpus.Posts {
		if len(refs) == 2 {
			break
		}
		refs = append(refs, CitationToken(post.ID))
	}
	row.SummaryBullets = append(row.SummaryBullets, "Representative threads: "+strings.Join(refs, ", "))

	return row
}

func firstEntries(entries []models.InsightEntry, n int) []models.InsightEntry {
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]models.InsightEntry, len(entries))
	copy(out, entries)
	return out
}

func thinRow(row models.BreakdownRow) bool {
	return len(row.SummaryBullets) == 0 ||
		len(row.TopThemes) < rowMinimum ||
		len(row.TopPainPoints) < rowMinimum ||
		len(row.TopWins) < rowMinimum
}

// padRow tops up thin lists of row with entries from fallback that it does not already carry
func padRow(row, fallback models.BreakdownRow) models.BreakdownRow {
	if len(row.SummaryBullets) == 0 {
		row.SummaryBullets = fallback.SummaryBullets
	}

	for _, theme := range fallback.TopThemes {
		if len(row.TopThemes) >= rowMinimum {
			break
		}
		if !containsFold(row.TopThemes, theme) {
			row.TopThemes = append(row.TopThemes, theme)
		}
	}

	row.TopPainPoints = padEntries(row.TopPainPoints, fallback.TopPainPoints)
	row.TopWins = padEntries(row.TopWins, fallback.TopWins)
	return row
}

func padEntries(entries, extra []models.InsightEntry) []models.InsightEntry {
	for _, entry := range extra {
		if len(entries) >= rowMinimum {
			break
		}
		duplicate := false
		for _, existing := range entries {
			if strings.EqualFold(existing.Text, entry.Text) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			entries = append(entries, entry)
		}
	}
	return entries
}

func containsFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
