package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/analysis"
	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/monitoring"
	"github.com/gamepulse/sentiment-bot/internal/sources"
)

const outputDir = "test_output"

// sampleLister serves a fixed set of posts so reports can be generated offline
type sampleLister struct {
	posts    map[string][]models.Post
	comments map[string][]models.Comment
}

func (s *sampleLister) GetName() string { return "sample" }
func (s *sampleLister) IsEnabled() bool { return true }

func (s *sampleLister) SearchCommunities(ctx context.Context, prefix string, limit int) ([]models.Community, error) {
	var out []models.Community
	for name, posts := range s.posts {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			out = append(out, models.Community{Name: name, Title: name, Subscribers: len(posts) * 1000})
		}
	}
	return out, nil
}

func (s *sampleLister) ListPosts(ctx context.Context, community string, window sources.Window) ([]models.Post, error) {
	now := time.Now()
	var out []models.Post
	for _, post := range s.posts[community] {
		if window.Contains(post.CreatedAt, now) {
			out = append(out, post)
		}
	}
	return out, nil
}

func (s *sampleLister) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.comments[postID], nil
}

// terminalNotifier prints scan reports and saves them under test_output
type terminalNotifier struct{}

func (t *terminalNotifier) SendScanReport(ctx context.Context, n *models.ScanNotification) error {
	lookup := analysis.NewLookup(n.TopPosts)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("COMMUNITY SENTIMENT REPORT - %s\n", n.SubjectName)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Generated:   %s\n", n.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Communities: %s\n", strings.Join(n.Sources, ", "))
	fmt.Printf("Posts:       %d\n", n.Posts)
	fmt.Printf("Comments:    %d\n", n.Comments)
	fmt.Printf("Sentiment:   %s\n", n.Report.Label)
	if n.Report.Degraded {
		fmt.Println("(heuristic fallback)")
	}
	fmt.Printf("\n%s\n", analysis.RenderLinks(n.Report.Summary, lookup))

	printEntries("Pain points", n.Report.PainPoints, lookup)
	printEntries("Wins", n.Report.Wins, lookup)

	if len(n.TopPosts) > 0 {
		fmt.Println("\nTop threads:")
		for i, post := range n.TopPosts {
			fmt.Printf("   %d. [r/%s] %s (score %d)\n      %s\n", i+1, post.Source, post.Title, post.Score, post.Permalink)
		}
	}

	if err := saveReport(n); err != nil {
		fmt.Printf("\nWarning: could not save report: %v\n", err)
	}
	fmt.Println(strings.Repeat("=", 70))
	return nil
}

func printEntries(title string, entries []models.InsightEntry, lookup analysis.Lookup) {
	if len(entries) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, entry := range entries {
		fmt.Printf("   - %s\n", analysis.RenderLinks(entry.Text, lookup))
	}
}

func saveReport(n *models.ScanNotification) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	filename := filepath.Join(outputDir, fmt.Sprintf("%s_report_%s.json", n.SubjectID, n.GeneratedAt.Format("2006-01-02_15-04-05")))
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\nReport saved to: %s\n", filename)
	return nil
}

func samplePost(id, source, title, body, author string, score, comments int, age time.Duration) models.Post {
	return models.Post{
		ID:           id,
		Source:       source,
		Title:        title,
		Body:         body,
		Author:       author,
		Score:        score,
		CommentCount: comments,
		CreatedAt:    time.Now().Add(-age),
		Permalink:    sources.Permalink(id),
	}
}

func sampleData() *sampleLister {
	return &sampleLister{
		posts: map[string][]models.Post{
			"Eldenring": {
				samplePost("t3a001", "Eldenring", "The DLC boss design is the best FromSoftware has done", "Every fight felt fair and the music is incredible.", "tarnished_one", 1840, 212, 3*time.Hour),
				samplePost("t3a002", "Eldenring", "Constant stuttering on PC after the latest patch", "Frame drops in every open area, shader compilation still broken.", "pc_player", 960, 340, 6*time.Hour),
				samplePost("t3a003", "Eldenring", "Finally beat Malenia after 80 tries", "Love this game, the satisfaction is unreal.", "let_me_solo", 2400, 150, 20*time.Hour),
			},
			"EldenRingBuilds": {
				samplePost("t3b001", "EldenRingBuilds", "Bleed nerf ruined my favourite build", "The patch made arcane builds useless, really disappointed.", "arcane_main", 410, 98, 9*time.Hour),
				samplePost("t3b002", "EldenRingBuilds", "Great guide to faith builds for new players", "Helpful breakdown, thanks for putting this together.", "faith_knight", 380, 45, 30*time.Hour),
			},
		},
		comments: map[string][]models.Comment{
			"t3a002": {
				{ID: "c1", Body: "Same here, unplayable on my 3070.", Author: "gpu_sad", Score: 120, ParentPostID: "t3a002", CreatedAt: time.Now().Add(-5 * time.Hour)},
				{ID: "c2", Body: "Turning off ray tracing helped a bit.", Author: "tweaker", Score: 80, ParentPostID: "t3a002", CreatedAt: time.Now().Add(-4 * time.Hour)},
			},
			"t3a001": {
				{ID: "c3", Body: "Best soundtrack in the series.", Author: "music_fan", Score: 200, ParentPostID: "t3a001", CreatedAt: time.Now().Add(-2 * time.Hour)},
			},
		},
	}
}

func main() {
	fmt.Println("Community Sentiment Bot - Test Report Generator")
	fmt.Println(strings.Repeat("=", 50))

	cfg := &config.Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      "gpt-4o-mini",
		OpenAITimeout:    45 * time.Second,
		MaxPosts:         50,
		CollectWorkers:   2,
		BreakdownWorkers: 2,
		MaxSources:       5,
		CacheTTL:         time.Minute,
		TrackedSubjects: []models.TrackedSubject{
			{ID: "elden-ring", Name: "Elden Ring", Sources: []string{"Eldenring", "EldenRingBuilds"}},
		},
	}

	memory := cache.NewMemory(cfg.CacheTTL)
	defer memory.Stop()

	var primary analysis.Strategy
	if completer := analysis.NewOpenAICompleter(analysis.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}); completer != nil {
		primary = analysis.NewAIStrategy(completer, analysis.PromptBudget)
	} else {
		fmt.Println("OPENAI_API_KEY not set - using the heuristic report")
	}

	service := monitoring.NewService(cfg, monitoring.Components{
		Lister:    sampleData(),
		Extractor: analysis.NewEngineWithStrategies(primary, analysis.NewHeuristicStrategy(), cfg.OpenAITimeout),
		Notifier:  &terminalNotifier{},
		Cache:     memory,
	})

	fmt.Printf("\nGenerating report for %d tracked subject(s)...\n", len(cfg.TrackedSubjects))
	if err := service.RunScheduledScans(context.Background()); err != nil {
		fmt.Printf("Error generating report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nTest report generation completed")
	fmt.Println("Check the 'test_output' directory for the saved JSON report")
}
