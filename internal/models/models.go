package models

import "time"

// SentimentLabel is the overall polarity of a sentiment report
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentMixed    SentimentLabel = "Mixed"
	SentimentUnknown  SentimentLabel = "Unknown"
)

// Community is a raw search hit returned by a community search capability
type Community struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subscribers int    `json:"subscribers"`
}

// CandidateSource is a community proposed by discovery, ranked by relevance
type CandidateSource struct {
	Identifier  string  `json:"identifier"`
	Subscribers int     `json:"subscriber_count"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
}

// Post is a single discussion thread collected from a source
type Post struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	Body         string    `json:"body_text"`
	Author       string    `json:"author"`
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	Permalink    string    `json:"permalink"`
}

// Comment is a top-level reply to a Post
type Comment struct {
	ID           string    `json:"id"`
	Body         string    `json:"body_text"`
	Author       string    `json:"author"`
	Score        int       `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	ParentPostID string    `json:"parent_post_id"`
}

// Corpus is the ranked, bounded sample of content collected for one analysis run
type Corpus struct {
	Source   string    `json:"source"`
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
	Keywords []string  `json:"keywords,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// IsEmpty reports whether the corpus carries no posts
func (c Corpus) IsEmpty() bool {
	return len(c.Posts) == 0
}

// InsightEntry is a theme, pain point or win with its resolved evidence links
type InsightEntry struct {
	Text     string   `json:"text"`
	Evidence []string `json:"evidence"`
}

// SentimentReport is the structured output of the extraction step
type SentimentReport struct {
	Label      SentimentLabel `json:"sentiment_label"`
	Summary    string         `json:"sentiment_summary"`
	Themes     []InsightEntry `json:"themes"`
	PainPoints []InsightEntry `json:"pain_points"`
	Wins       []InsightEntry `json:"wins"`
	Degraded   bool           `json:"degraded"`
}

// EmptyReport returns an Unknown report with empty insight lists
func EmptyReport(degraded bool) SentimentReport {
	return SentimentReport{
		Label:      SentimentUnknown,
		Themes:     []InsightEntry{},
		PainPoints: []InsightEntry{},
		Wins:       []InsightEntry{},
		Degraded:   degraded,
	}
}

// BreakdownRow is the per-source decomposition of a multi-source report
type BreakdownRow struct {
	Source         string         `json:"source_identifier"`
	Label          SentimentLabel `json:"sentiment_label"`
	TopThemes      []string       `json:"top_themes"`
	TopPainPoints  []InsightEntry `json:"top_pain_points"`
	TopWins        []InsightEntry `json:"top_wins"`
	SummaryBullets []string       `json:"summary_bullets"`
	PostCount      int            `json:"post_count"`
	Degraded       bool           `json:"-"`
}

// Breakdown groups the per-source rows of a multi-source report
type Breakdown struct {
	Rows     []BreakdownRow `json:"rows"`
	Degraded bool           `json:"degraded"`
}

// ReportMeta summarises what a multi-source report was built from
type ReportMeta struct {
	Sources         []string  `json:"sources"`
	PostsAnalysed   int       `json:"posts_analysed"`
	CommentsSampled int       `json:"comments_sampled"`
	LastScanned     time.Time `json:"last_scanned"`
}

// MultiSourceReport combines the overall report with an optional breakdown
type MultiSourceReport struct {
	Overall   SentimentReport `json:"overall"`
	Meta      ReportMeta      `json:"meta"`
	Breakdown *Breakdown      `json:"breakdown,omitempty"`
}

// ScanResult is the response of a single-source scan
type ScanResult struct {
	ID            string          `json:"id"`
	SubjectID     string          `json:"subject_id"`
	CreatedAt     time.Time       `json:"created_at"`
	PostsCount    int             `json:"posts_count"`
	CommentsCount int             `json:"comments_count"`
	Analysis      SentimentReport `json:"analysis"`
}

// ScanDetail is a persisted scan together with the corpus it was built from
type ScanDetail struct {
	ID        string          `json:"id" bson:"_id"`
	SubjectID string          `json:"subject_id" bson:"subject_id"`
	Source    string          `json:"source" bson:"source"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	Analysis  SentimentReport `json:"analysis" bson:"analysis"`
	Posts     []Post          `json:"posts" bson:"posts"`
	Comments  []Comment       `json:"comments" bson:"comments"`
}

// Result projects the detail onto the scan response shape
func (d ScanDetail) Result() ScanResult {
	return ScanResult{
		ID:            d.ID,
		SubjectID:     d.SubjectID,
		CreatedAt:     d.CreatedAt,
		PostsCount:    len(d.Posts),
		CommentsCount: len(d.Comments),
		Analysis:      d.Analysis,
	}
}

// TrackedSubject is a subject rescanned on the configured schedule
type TrackedSubject struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Sources  []string `json:"sources"`
	Keywords string   `json:"keywords"`
}

// ScanNotification is delivered to notification channels after a scheduled scan
type ScanNotification struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Sources     []string        `json:"sources"`
	GeneratedAt time.Time       `json:"generated_at"`
	Posts       int             `json:"posts_analysed"`
	Comments    int             `json:"comments_sampled"`
	Report      SentimentReport `json:"report"`
	TopPosts    []Post          `json:"top_posts,omitempty"`
}
