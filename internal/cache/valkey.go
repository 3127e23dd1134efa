package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valkey-io/valkey-go"
)

// ValkeyCache is a Valkey-backed cache
type ValkeyCache struct {
	client valkey.Client
	ttl    time.Duration
	prefix string
}

// Ensure ValkeyCache implements Cache
var _ Cache = (*ValkeyCache)(nil)

// ValkeyConfig holds configuration for the Valkey cache
type ValkeyConfig struct {
	Addr     string
	Password string
	Prefix   string
}

// NewValkey connects to Valkey and verifies the connection
func NewValkey(cfg ValkeyConfig, ttl time.Duration) (*ValkeyCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{cfg.Addr},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "sentiment-bot:"
	}

	return &ValkeyCache{client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *ValkeyCache) key(k string) string {
	return c.prefix + k
}

func (c *ValkeyCache) Get(key string) ([]byte, bool) {
	ctx := context.Background()
	data, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).AsBytes()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			logrus.Debugf("Valkey get %s failed: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *ValkeyCache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *ValkeyCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	ctx := context.Background()
	cmd := c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		logrus.Debugf("Valkey set %s failed: %v", key, err)
	}
}

func (c *ValkeyCache) Delete(key string) {
	ctx := context.Background()
	c.client.Do(ctx, c.client.B().Del().Key(c.key(key)).Build())
}

// Close releases the underlying client
func (c *ValkeyCache) Close() {
	c.client.Close()
}
