package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// ConnectNATS opens a reconnecting NATS connection for scan events
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sentiment-bot"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logrus.Infof("Connected to NATS at %s", nc.ConnectedUrl())
	return nc, nil
}

// scanEvent is the message published for each scheduled scan
type scanEvent struct {
	Type string                   `json:"type"`
	Data *models.ScanNotification `json:"data"`
}

func (s *Service) publishEvent(notification *models.ScanNotification) error {
	data, err := json.Marshal(scanEvent{Type: "scan.completed", Data: notification})
	if err != nil {
		return fmt.Errorf("failed to encode scan event: %w", err)
	}
	if err := s.publisher.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.subject, err)
	}
	return nil
}
