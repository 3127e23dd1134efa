package storage

import (
	"context"
	"errors"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

// ErrNotFound is returned when no stored scan matches the request
var ErrNotFound = errors.New("scan result not found")

// StorageInterface defines the contract for raw blob operations
type StorageInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// ResultStore persists scan details and serves the latest one per subject
type ResultStore interface {
	Save(ctx context.Context, detail models.ScanDetail) error
	Latest(ctx context.Context, subjectID string) (*models.ScanDetail, error)
}
