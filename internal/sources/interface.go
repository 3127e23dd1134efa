package sources

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

// ErrSourceUnavailable is returned when a community is private, banned or unknown
var ErrSourceUnavailable = errors.New("source unavailable")

// Lister defines the contract for community search and content listing backends
type Lister interface {
	GetName() string
	IsEnabled() bool
	SearchCommunities(ctx context.Context, prefix string, limit int) ([]models.Community, error)
	ListPosts(ctx context.Context, community string, window Window) ([]models.Post, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// Window is an age range relative to now: posts created between After and Before ago
type Window struct {
	After  time.Duration
	Before time.Duration
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", formatAge(w.After), formatAge(w.Before))
}

// Contains reports whether a post created at t falls inside the window
func (w Window) Contains(t, now time.Time) bool {
	age := now.Sub(t)
	return age >= w.Before && age < w.After
}

// DefaultWindows are queried newest first until enough candidates are gathered
var DefaultWindows = []Window{
	{After: 48 * time.Hour, Before: 0},
	{After: 8 * 24 * time.Hour, Before: 48 * time.Hour},
	{After: 30 * 24 * time.Hour, Before: 8 * 24 * time.Hour},
}

const permalinkFormat = "https://www.reddit.com/comments/%s/"

// Permalink returns the canonical permalink for a post id
func Permalink(postID string) string {
	return fmt.Sprintf(permalinkFormat, postID)
}

var communityURLPattern = regexp.MustCompile(`(?i)reddit\.com/r/([^/?#]+)`)

// NormalizeIdentifier strips slashes, "r/" prefixes and full community URLs
func NormalizeIdentifier(raw string) string {
	value := strings.Trim(strings.TrimSpace(raw), "/")
	if len(value) >= 2 && strings.EqualFold(value[:2], "r/") {
		value = value[2:]
	}

	if match := communityURLPattern.FindStringSubmatch(value); match != nil {
		value = match[1]
	}

	return strings.Trim(strings.TrimSpace(value), "/")
}

// IdentifierKey is the case-insensitive identity of a community identifier
func IdentifierKey(raw string) string {
	return strings.ToLower(NormalizeIdentifier(raw))
}

// DedupeIdentifiers normalizes identifiers and removes case-insensitive duplicates, keeping first-seen order
func DedupeIdentifiers(raw []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, item := range raw {
		normalized := NormalizeIdentifier(item)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, normalized)
	}

	return unique
}

func formatAge(d time.Duration) string {
	hours := int(d / time.Hour)
	if hours > 0 && hours%24 == 0 && hours > 48 {
		return fmt.Sprintf("%dd", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
