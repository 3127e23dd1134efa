package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLister is a mock implementation of the sources.Lister interface
type MockLister struct {
	mock.Mock
}

func (m *MockLister) GetName() string { return "mock" }

func (m *MockLister) IsEnabled() bool { return true }

func (m *MockLister) SearchCommunities(ctx context.Context, prefix string, limit int) ([]models.Community, error) {
	args := m.Called(ctx, prefix, limit)
	return args.Get(0).([]models.Community), args.Error(1)
}

func (m *MockLister) ListPosts(ctx context.Context, community string, window sources.Window) ([]models.Post, error) {
	args := m.Called(ctx, community, window)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockLister) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).([]models.Comment), args.Error(1)
}

func eldenCommunities() []models.Community {
	return []models.Community{
		{Name: "Eldenring", Title: "Elden Ring", Description: "The official community", Subscribers: 4000000},
		{Name: "eldenring", Title: "", Subscribers: 10},
		{Name: "EldenRingBuilds", Title: "Elden Ring Builds", Subscribers: 50000},
		{Name: "darksouls", Title: "Dark Souls", Subscribers: 1000000},
	}
}

func TestScorer_Discover_SortedAndDeduplicated(t *testing.T) {
	lister := &MockLister{}
	lister.On("SearchCommunities", mock.Anything, mock.Anything, 25).Return(eldenCommunities(), nil)

	scorer := NewScorer(lister, nil, Options{})
	results, err := scorer.Discover(context.Background(), "  Elden Ring ", 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Eldenring", results[0].Identifier)
	assert.Equal(t, 4000000, results[0].Subscribers)
	assert.Equal(t, "EldenRingBuilds", results[1].Identifier)
	assert.NotEmpty(t, results[0].Reason)

	seen := make(map[string]bool)
	for i, result := range results {
		key := strings.ToLower(result.Identifier)
		assert.False(t, seen[key], "duplicate identifier %s", result.Identifier)
		seen[key] = true
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, result.Score)
		}
		assert.GreaterOrEqual(t, result.Score, 0.0)
		assert.LessOrEqual(t, result.Score, 1.0)
	}
}

func TestScorer_Discover_RespectsMaxResults(t *testing.T) {
	lister := &MockLister{}
	lister.On("SearchCommunities", mock.Anything, mock.Anything, 25).Return(eldenCommunities(), nil)

	scorer := NewScorer(lister, nil, Options{})
	results, err := scorer.Discover(context.Background(), "Elden Ring", 1)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestScorer_Discover_SearchUnreachable(t *testing.T) {
	lister := &MockLister{}
	lister.On("SearchCommunities", mock.Anything, mock.Anything, 25).
		Return([]models.Community{}, errors.New("connection refused"))

	scorer := NewScorer(lister, nil, Options{})
	results, err := scorer.Discover(context.Background(), "Elden Ring", 5)

	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestScorer_Discover_EmptySubject(t *testing.T) {
	lister := &MockLister{}
	scorer := NewScorer(lister, nil, Options{})

	_, err := scorer.Discover(context.Background(), "   ", 5)

	assert.ErrorIs(t, err, ErrEmptySubject)
	lister.AssertNotCalled(t, "SearchCommunities", mock.Anything, mock.Anything, mock.Anything)
}

func TestScorer_Discover_UsesCache(t *testing.T) {
	lister := &MockLister{}
	lister.On("SearchCommunities", mock.Anything, mock.Anything, 25).Return(eldenCommunities(), nil)

	c := cache.NewMemory(time.Minute)
	defer c.Stop()

	scorer := NewScorer(lister, c, Options{})
	first, err := scorer.Discover(context.Background(), "Elden Ring", 5)
	require.NoError(t, err)
	calls := len(lister.Calls)

	second, err := scorer.Discover(context.Background(), "elden  ring", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, lister.Calls, calls)
}

func TestScorer_Discover_ContentSampling(t *testing.T) {
	lister := &MockLister{}
	lister.On("SearchCommunities", mock.Anything, mock.Anything, 25).Return([]models.Community{
		{Name: "EldenRingLore", Title: "Elden Ring Lore", Subscribers: 1000},
		{Name: "EldenRingMemes", Title: "Elden Ring Memes", Subscribers: 1000},
	}, nil)
	lister.On("ListPosts", mock.Anything, "EldenRingLore", mock.Anything).Return([]models.Post{
		{Title: "Elden Ring lore deep dive"},
		{Title: "Who is Marika in Elden Ring"},
	}, nil)
	lister.On("ListPosts", mock.Anything, "EldenRingMemes", mock.Anything).Return([]models.Post{}, errors.New("timeout"))

	scorer := NewScorer(lister, nil, Options{SampleCandidates: 2})
	results, err := scorer.Discover(context.Background(), "Elden Ring", 5)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "EldenRingLore", results[0].Identifier)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestClampResults(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "Zero uses default", input: 0, expected: DefaultResults},
		{name: "Negative uses default", input: -3, expected: DefaultResults},
		{name: "In range", input: 7, expected: 7},
		{name: "Above cap", input: 50, expected: MaxResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampResults(tt.input))
		})
	}
}

func TestBuildPrefixes(t *testing.T) {
	prefixes := buildPrefixes("Elden Ring")

	assert.Equal(t, "eldenring", prefixes[0])
	assert.Equal(t, "elden_ring", prefixes[1])
	assert.Contains(t, prefixes, "eld")
	assert.Contains(t, prefixes, "ring")
	assert.LessOrEqual(t, len(prefixes), maxPrefixes)
	assert.Empty(t, buildPrefixes("!!!"))
}

func TestStrictMatch(t *testing.T) {
	tests := []struct {
		name        string
		community   string
		title       string
		description string
		expected    float64
	}{
		{name: "Exact name", community: "EldenRing", expected: 1.0},
		{name: "Contained in name", community: "EldenRingBuilds", expected: 0.85},
		{name: "Contained in title", community: "ERBuilds", title: "Elden Ring builds", expected: 0.7},
		{name: "Contained in description", community: "fromsoft", description: "Talk about Elden Ring", expected: 0.45},
		{name: "No match", community: "darksouls", title: "Dark Souls", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, strictMatch("Elden Ring", tt.community, tt.title, tt.description))
		})
	}
}

func TestSortCandidates_TieBreaksOnSubscribers(t *testing.T) {
	results := []models.CandidateSource{
		{Identifier: "small", Score: 0.5, Subscribers: 10},
		{Identifier: "big", Score: 0.5, Subscribers: 1000},
		{Identifier: "best", Score: 0.9, Subscribers: 1},
	}

	SortCandidates(results)

	assert.Equal(t, []string{"best", "big", "small"}, []string{results[0].Identifier, results[1].Identifier, results[2].Identifier})
}
