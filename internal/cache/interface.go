package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache stores JSON-encoded values with a per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	SetWithTTL(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// Config selects and configures a cache backend
type Config struct {
	Backend    string
	TTL        time.Duration
	RedisAddr  string
	ValkeyAddr string
	Password   string
	Prefix     string
}

// New builds the backend named by cfg.Backend
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.TTL), nil
	case "redis":
		c, err := NewRedis(RedisConfig{Addr: cfg.RedisAddr, Password: cfg.Password, Prefix: cfg.Prefix}, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "valkey":
		c, err := NewValkey(ValkeyConfig{Addr: cfg.ValkeyAddr, Password: cfg.Password, Prefix: cfg.Prefix}, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Close releases the backend behind c: the memory janitor or a server connection
func Close(c Cache) {
	switch closer := c.(type) {
	case interface{ Stop() }:
		closer.Stop()
	case interface{ Close() error }:
		if err := closer.Close(); err != nil {
			logrus.Warnf("Failed to close cache: %v", err)
		}
	case interface{ Close() }:
		closer.Close()
	}
}

// GetJSON decodes the cached value for key into dest
func GetJSON(c Cache, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logrus.Debugf("Discarding undecodable cache entry %s: %v", key, err)
		c.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes value and stores it under key
func SetJSON(c Cache, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logrus.Debugf("Skipping cache write for %s: %v", key, err)
		return
	}
	c.SetWithTTL(key, data, ttl)
}
