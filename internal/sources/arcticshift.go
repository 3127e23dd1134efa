package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultArcticShiftURL = "https://arctic-shift.photon-reddit.com"

	postFields    = "id,title,selftext,created_utc,score,num_comments,author,subreddit"
	commentFields = "id,body,created_utc,score,author,parent_id"
)

// ArcticShiftSource reads public community archives without credentials
type ArcticShiftSource struct {
	baseURL   string
	userAgent string
	client    *resty.Client
}

// Ensure ArcticShiftSource implements Lister
var _ Lister = (*ArcticShiftSource)(nil)

type arcticPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

type arcticComment struct {
	ID       string  `json:"id"`
	Body     string  `json:"body"`
	Author   string  `json:"author"`
	ParentID string  `json:"parent_id"`
	Created  float64 `json:"created_utc"`
	Score    int     `json:"score"`
}

type arcticCommunity struct {
	Subreddit         string `json:"subreddit"`
	DisplayName       string `json:"display_name"`
	Name              string `json:"name"`
	Title             string `json:"title"`
	PublicDescription string `json:"public_description"`
	Description       string `json:"description"`
	Subscribers       int    `json:"subscribers"`
}

type arcticResponse[T any] struct {
	Data []T `json:"data"`
}

// NewArcticShiftSource creates a new archive source against baseURL
func NewArcticShiftSource(baseURL, userAgent string) *ArcticShiftSource {
	if baseURL == "" {
		baseURL = DefaultArcticShiftURL
	}
	if userAgent == "" {
		userAgent = "GamePulse-Sentiment-Bot/1.0"
	}

	return &ArcticShiftSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    resty.New().SetTimeout(30 * time.Second),
	}
}

func (a *ArcticShiftSource) GetName() string {
	return "arcticshift"
}

func (a *ArcticShiftSource) IsEnabled() bool {
	return a.baseURL != ""
}

func (a *ArcticShiftSource) request(ctx context.Context) *resty.Request {
	return a.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", a.userAgent).
		SetHeader("Accept", "application/json")
}

var prefixCleaner = regexp.MustCompile(`[^a-z0-9_]`)

// SearchCommunities returns communities whose name starts with prefix
func (a *ArcticShiftSource) SearchCommunities(ctx context.Context, prefix string, limit int) ([]models.Community, error) {
	clean := prefixCleaner.ReplaceAllString(strings.ToLower(prefix), "")
	if len(clean) < 2 {
		return nil, nil
	}
	if limit < 1 {
		limit = 25
	}

	resp, err := a.request(ctx).
		SetQueryParams(map[string]string{
			"subreddit_prefix": clean,
			"limit":            fmt.Sprintf("%d", limit),
		}).
		Get(a.baseURL + "/api/subreddits/search")
	if err != nil {
		return nil, fmt.Errorf("community search request failed: %w", err)
	}

	switch resp.StatusCode() {
	case 200:
	case 400, 404:
		return nil, nil
	default:
		return nil, statusError("community search", resp)
	}

	var payload arcticResponse[arcticCommunity]
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("invalid community search response: %w", err)
	}

	var communities []models.Community
	for _, item := range payload.Data {
		name := NormalizeIdentifier(firstNonEmpty(item.Subreddit, item.DisplayName, item.Name))
		if name == "" {
			continue
		}
		communities = append(communities, models.Community{
			Name:        name,
			Title:       item.Title,
			Description: firstNonEmpty(item.PublicDescription, item.Description),
			Subscribers: item.Subscribers,
		})
	}

	return communities, nil
}

// ListPosts returns the posts of community created inside window, newest first
func (a *ArcticShiftSource) ListPosts(ctx context.Context, community string, window Window) ([]models.Post, error) {
	name := NormalizeIdentifier(community)
	if name == "" {
		return nil, fmt.Errorf("%w: empty community identifier", ErrSourceUnavailable)
	}

	resp, err := a.request(ctx).
		SetQueryParams(map[string]string{
			"subreddit": name,
			"after":     formatAge(window.After),
			"before":    formatAge(window.Before),
			"sort":      "desc",
			"limit":     "100",
			"fields":    postFields,
		}).
		Get(a.baseURL + "/api/posts/search")
	if err != nil {
		return nil, fmt.Errorf("posts request failed: %w", err)
	}

	switch resp.StatusCode() {
	case 200:
	case 403, 404:
		return nil, fmt.Errorf("%w: r/%s returned status %d", ErrSourceUnavailable, name, resp.StatusCode())
	default:
		return nil, statusError("posts", resp)
	}

	var payload arcticResponse[arcticPost]
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("invalid posts response: %w", err)
	}

	posts := make([]models.Post, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.ID == "" {
			continue
		}
		posts = append(posts, models.Post{
			ID:           item.ID,
			Source:       firstNonEmpty(item.Subreddit, name),
			Title:        item.Title,
			Body:         item.Selftext,
			Author:       item.Author,
			Score:        item.Score,
			CommentCount: item.NumComments,
			CreatedAt:    time.Unix(int64(item.Created), 0).UTC(),
			Permalink:    Permalink(item.ID),
		})
	}

	logrus.Debugf("Fetched %d posts from r/%s (%s)", len(posts), name, window)
	return posts, nil
}

// ListComments returns the top-level comments of a post
func (a *ArcticShiftSource) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if postID == "" {
		return nil, nil
	}

	resp, err := a.request(ctx).
		SetQueryParams(map[string]string{
			"link_id": "t3_" + postID,
			"sort":    "desc",
			"limit":   "100",
			"fields":  commentFields,
		}).
		Get(a.baseURL + "/api/comments/search")
	if err != nil {
		return nil, fmt.Errorf("comments request failed: %w", err)
	}

	switch resp.StatusCode() {
	case 200:
	case 400, 404:
		return nil, nil
	default:
		return nil, statusError("comments", resp)
	}

	var payload arcticResponse[arcticComment]
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("invalid comments response: %w", err)
	}

	var comments []models.Comment
	for _, item := range payload.Data {
		if item.ParentID != "" && !strings.HasPrefix(item.ParentID, "t3_") {
			continue
		}
		body := strings.TrimSpace(item.Body)
		if isRemovedBody(body) {
			continue
		}
		comments = append(comments, models.Comment{
			ID:           item.ID,
			Body:         body,
			Author:       item.Author,
			Score:        item.Score,
			CreatedAt:    time.Unix(int64(item.Created), 0).UTC(),
			ParentPostID: postID,
		})
	}

	return comments, nil
}

func isRemovedBody(body string) bool {
	return body == "" || body == "[deleted]" || body == "[removed]"
}

// statusError builds an error carrying the most useful detail the response offers
func statusError(operation string, resp *resty.Response) error {
	detail := errorDetail(resp.Body())
	if detail != "" {
		return fmt.Errorf("%s request failed (HTTP %d): %s", operation, resp.StatusCode(), detail)
	}
	return fmt.Errorf("%s request failed (HTTP %d)", operation, resp.StatusCode())
}

func errorDetail(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
		return truncate(string(body), 300)
	}
	return truncate(strings.TrimSpace(string(body)), 300)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
