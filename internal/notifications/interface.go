package notifications

import (
	"context"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendScanReport(ctx context.Context, notification *models.ScanNotification) error
}

// Publisher is the subset of a NATS connection used to fan scan events out
type Publisher interface {
	Publish(subject string, data []byte) error
}
