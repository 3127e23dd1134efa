package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
)

// RedditSource implements Lister against the official API with app-only OAuth
type RedditSource struct {
	clientID     string
	clientSecret string
	apiURL       string
	userAgent    string
	client       *resty.Client
	now          func() time.Time
}

// Ensure RedditSource implements Lister
var _ Lister = (*RedditSource)(nil)

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

type redditComment struct {
	ID       string  `json:"id"`
	Body     string  `json:"body"`
	Author   string  `json:"author"`
	ParentID string  `json:"parent_id"`
	Created  float64 `json:"created_utc"`
	Score    int     `json:"score"`
}

type redditSubreddit struct {
	DisplayName       string `json:"display_name"`
	Title             string `json:"title"`
	PublicDescription string `json:"public_description"`
	Subscribers       int    `json:"subscribers"`
}

// RedditOption customises a RedditSource
type RedditOption func(*RedditSource, *clientcredentials.Config)

// WithRedditEndpoints overrides the API and token endpoints
func WithRedditEndpoints(apiURL, tokenURL string) RedditOption {
	return func(r *RedditSource, cc *clientcredentials.Config) {
		r.apiURL = strings.TrimRight(apiURL, "/")
		cc.TokenURL = tokenURL
	}
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret, userAgent string, opts ...RedditOption) *RedditSource {
	if userAgent == "" {
		userAgent = "GamePulse-Sentiment-Bot/1.0"
	}

	r := &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       redditAPIURL,
		userAgent:    userAgent,
		now:          time.Now,
	}

	oauthConf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     redditAuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	for _, opt := range opts {
		opt(r, oauthConf)
	}

	httpClient := oauthConf.Client(context.Background())
	r.client = resty.NewWithClient(httpClient).SetTimeout(30 * time.Second)

	return r
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) get(ctx context.Context, path string, query map[string]string) (*resty.Response, error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("reddit source disabled - missing credentials")
	}

	return r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetQueryParams(query).
		Get(r.apiURL + path)
}

func (r *RedditSource) SearchCommunities(ctx context.Context, prefix string, limit int) ([]models.Community, error) {
	query := strings.TrimSpace(prefix)
	if len(query) < 2 {
		return nil, nil
	}
	if limit < 1 {
		limit = 25
	}

	resp, err := r.get(ctx, "/subreddits/search", map[string]string{
		"q":     query,
		"limit": fmt.Sprintf("%d", limit),
	})
	if err != nil {
		return nil, fmt.Errorf("reddit community search failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, statusError("reddit community search", resp)
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, err
	}

	var communities []models.Community
	for _, child := range listing.Data.Children {
		var sub redditSubreddit
		if err := json.Unmarshal(child.Data, &sub); err != nil || sub.DisplayName == "" {
			continue
		}
		communities = append(communities, models.Community{
			Name:        sub.DisplayName,
			Title:       sub.Title,
			Description: sub.PublicDescription,
			Subscribers: sub.Subscribers,
		})
	}

	return communities, nil
}

// ListPosts pages through the newest listing and keeps posts inside window
func (r *RedditSource) ListPosts(ctx context.Context, community string, window Window) ([]models.Post, error) {
	name := NormalizeIdentifier(community)
	if name == "" {
		return nil, fmt.Errorf("%w: empty community identifier", ErrSourceUnavailable)
	}

	resp, err := r.get(ctx, fmt.Sprintf("/r/%s/new", name), map[string]string{
		"limit":    "100",
		"raw_json": "1",
	})
	if err != nil {
		return nil, fmt.Errorf("reddit posts request failed: %w", err)
	}

	switch resp.StatusCode() {
	case 200:
	case 403, 404:
		return nil, fmt.Errorf("%w: r/%s returned status %d", ErrSourceUnavailable, name, resp.StatusCode())
	default:
		return nil, statusError("reddit posts", resp)
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, err
	}

	now := r.now()
	var posts []models.Post
	for _, child := range listing.Data.Children {
		var post redditPost
		if err := json.Unmarshal(child.Data, &post); err != nil || post.ID == "" {
			continue
		}
		createdAt := time.Unix(int64(post.Created), 0).UTC()
		if !window.Contains(createdAt, now) {
			continue
		}
		posts = append(posts, models.Post{
			ID:           post.ID,
			Source:       firstNonEmpty(post.Subreddit, name),
			Title:        post.Title,
			Body:         post.Selftext,
			Author:       post.Author,
			Score:        post.Score,
			CommentCount: post.NumComments,
			CreatedAt:    createdAt,
			Permalink:    Permalink(post.ID),
		})
	}

	logrus.Debugf("Fetched %d posts from r/%s via API (%s)", len(posts), name, window)
	return posts, nil
}

func (r *RedditSource) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if postID == "" {
		return nil, nil
	}

	resp, err := r.get(ctx, "/comments/"+postID, map[string]string{
		"limit":    "100",
		"depth":    "1",
		"sort":     "top",
		"raw_json": "1",
	})
	if err != nil {
		return nil, fmt.Errorf("reddit comments request failed: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.StatusCode() != 200 {
		return nil, statusError("reddit comments", resp)
	}

	// The thread endpoint returns [post listing, comment listing]
	var listings []redditListing
	if err := json.Unmarshal(resp.Body(), &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []models.Comment
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var comment redditComment
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			continue
		}
		if comment.ParentID != "" && !strings.HasPrefix(comment.ParentID, "t3_") {
			continue
		}
		body := strings.TrimSpace(comment.Body)
		if isRemovedBody(body) {
			continue
		}
		comments = append(comments, models.Comment{
			ID:           comment.ID,
			Body:         body,
			Author:       comment.Author,
			Score:        comment.Score,
			CreatedAt:    time.Unix(int64(comment.Created), 0).UTC(),
			ParentPostID: postID,
		})
	}

	return comments, nil
}
