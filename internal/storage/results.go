package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/sirupsen/logrus"
)

const resultPrefix = "results/"

// maxMemoryResults bounds the history kept per subject by MemoryResultStore
const maxMemoryResults = 20

// BlobResultStore stores scan details as JSON documents in a StorageInterface.
// Names embed a zero-padded timestamp so the lexically greatest name is the newest scan.
type BlobResultStore struct {
	storage StorageInterface
}

var _ ResultStore = (*BlobResultStore)(nil)

// NewBlobResultStore wraps a blob backend
func NewBlobResultStore(storage StorageInterface) *BlobResultStore {
	return &BlobResultStore{storage: storage}
}

// Save writes the detail under its subject prefix
func (s *BlobResultStore) Save(ctx context.Context, detail models.ScanDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode scan %s: %w", detail.ID, err)
	}
	return s.storage.Store(ctx, resultName(detail), data)
}

// Latest loads the newest scan stored for subjectID
func (s *BlobResultStore) Latest(ctx context.Context, subjectID string) (*models.ScanDetail, error) {
	names, err := s.storage.List(ctx, subjectPrefix(subjectID))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNotFound
	}
	sort.Strings(names)

	// Walk back from the newest so a single corrupt document doesn't hide older scans
	for i := len(names) - 1; i >= 0; i-- {
		data, err := s.storage.Retrieve(ctx, names[i])
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}

		var detail models.ScanDetail
		if err := json.Unmarshal(data, &detail); err != nil {
			logrus.WithError(err).Warnf("Skipping undecodable scan document %s", names[i])
			continue
		}
		return &detail, nil
	}

	return nil, ErrNotFound
}

func subjectPrefix(subjectID string) string {
	key := strings.ToLower(strings.TrimSpace(subjectID))
	key = strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(key)
	return resultPrefix + key + "/"
}

func resultName(detail models.ScanDetail) string {
	return fmt.Sprintf("%s%020d-%s.json", subjectPrefix(detail.SubjectID), detail.CreatedAt.UnixNano(), detail.ID)
}

// MemoryResultStore keeps recent scans in process memory
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string][]models.ScanDetail
}

var _ ResultStore = (*MemoryResultStore)(nil)

// NewMemoryResultStore creates an empty in-memory store
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string][]models.ScanDetail)}
}

// Save appends the detail to its subject history
func (s *MemoryResultStore) Save(_ context.Context, detail models.ScanDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.results[detail.SubjectID], detail)
	if len(history) > maxMemoryResults {
		history = history[len(history)-maxMemoryResults:]
	}
	s.results[detail.SubjectID] = history
	return nil
}

// Latest returns the most recently created scan for subjectID
func (s *MemoryResultStore) Latest(_ context.Context, subjectID string) (*models.ScanDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.results[subjectID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	latest := history[0]
	for _, detail := range history[1:] {
		if !detail.CreatedAt.Before(latest.CreatedAt) {
			latest = detail
		}
	}
	return &latest, nil
}
