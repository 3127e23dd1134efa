package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ScanSchedule string // cron spec with seconds; empty disables scheduled scans
	TimeZone     string

	// Completion service
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	// Content sources
	ArcticShiftBaseURL string
	RedditClientID     string
	RedditClientSecret string
	UserAgent          string

	// Collection policy
	MaxPosts             int
	MaxCommentsPerPost   int
	CommentPosts         int
	RecencyHalfLife      time.Duration
	MaxPerTitleSignature int
	MaxPerAuthor         int
	CommentDelay         time.Duration

	// Fan-out limits
	CollectWorkers   int
	BreakdownWorkers int
	MaxSources       int

	// Discovery
	DiscoverySampleCandidates int

	// Cache configuration
	CacheBackend      string // "memory", "redis" or "valkey"
	CacheTTL          time.Duration
	DiscoveryCacheTTL time.Duration
	MultiScanCacheTTL time.Duration
	RedisAddr         string
	ValkeyAddr        string
	CachePassword     string

	// Result storage
	ResultStore      string // "memory", "azure" or "mongo"
	StorageAccount   string
	StorageContainer string
	MongoURI         string
	MongoDatabase    string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	NATSURL           string
	NATSSubject       string

	// Subjects rescanned on ScanSchedule
	TrackedSubjects []models.TrackedSubject
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	subjects, err := ParseTrackedSubjects(getEnv("TRACKED_SUBJECTS", ""))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Debug:        getBoolEnv("DEBUG", false),
		ScanSchedule: getEnv("SCAN_SCHEDULE", ""),
		TimeZone:     getEnv("TIMEZONE", "UTC"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeout: getDurationEnv("OPENAI_TIMEOUT", 45*time.Second),

		ArcticShiftBaseURL: getEnv("ARCTIC_SHIFT_BASE_URL", "https://arctic-shift.photon-reddit.com"),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		UserAgent:          getEnv("USER_AGENT", "sentiment-bot/1.0"),

		MaxPosts:             getIntEnv("MAX_POSTS", 100),
		MaxCommentsPerPost:   getIntEnv("MAX_COMMENTS_PER_POST", 10),
		CommentPosts:         getIntEnv("COMMENT_POSTS", 15),
		RecencyHalfLife:      getDurationEnv("RECENCY_HALF_LIFE", 72*time.Hour),
		MaxPerTitleSignature: getIntEnv("MAX_PER_TITLE_SIGNATURE", 2),
		MaxPerAuthor:         getIntEnv("MAX_PER_AUTHOR", 3),
		CommentDelay:         getDurationEnv("COMMENT_DELAY", 0),

		CollectWorkers:   getIntEnv("COLLECT_WORKERS", 3),
		BreakdownWorkers: getIntEnv("BREAKDOWN_WORKERS", 2),
		MaxSources:       getIntEnv("MAX_SOURCES", 5),

		DiscoverySampleCandidates: getIntEnv("DISCOVERY_SAMPLE_CANDIDATES", 8),

		CacheBackend:      strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:          getDurationEnv("CACHE_TTL", 10*time.Minute),
		DiscoveryCacheTTL: getDurationEnv("DISCOVERY_CACHE_TTL", 24*time.Hour),
		MultiScanCacheTTL: getDurationEnv("MULTI_SCAN_CACHE_TTL", 10*time.Minute),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		ValkeyAddr:        getEnv("VALKEY_ADDR", ""),
		CachePassword:     getEnv("CACHE_PASSWORD", ""),

		ResultStore:      strings.ToLower(getEnv("RESULT_STORE", "memory")),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "scan-results"),
		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDatabase:    getEnv("MONGO_DATABASE", "sentiment_bot"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubject:       getEnv("NATS_SUBJECT", "sentiment.scans"),

		TrackedSubjects: subjects,
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "memory", "redis", "valkey":
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'memory', 'redis' or 'valkey'")
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND is 'redis'")
	}
	if c.CacheBackend == "valkey" && c.ValkeyAddr == "" {
		return fmt.Errorf("VALKEY_ADDR is required when CACHE_BACKEND is 'valkey'")
	}

	switch c.ResultStore {
	case "memory":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when RESULT_STORE is 'azure'")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when RESULT_STORE is 'mongo'")
		}
	default:
		return fmt.Errorf("RESULT_STORE must be 'memory', 'azure' or 'mongo'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	positives := map[string]int{
		"MAX_POSTS":         c.MaxPosts,
		"COLLECT_WORKERS":   c.CollectWorkers,
		"BREAKDOWN_WORKERS": c.BreakdownWorkers,
		"MAX_SOURCES":       c.MaxSources,
	}
	for key, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.DiscoverySampleCandidates < 0 {
		return fmt.Errorf("DISCOVERY_SAMPLE_CANDIDATES must not be negative")
	}
	if c.MaxCommentsPerPost < 0 || c.CommentPosts < 0 {
		return fmt.Errorf("MAX_COMMENTS_PER_POST and COMMENT_POSTS must not be negative")
	}

	if c.ScanSchedule != "" && len(c.TrackedSubjects) == 0 {
		return fmt.Errorf("TRACKED_SUBJECTS must be set when SCAN_SCHEDULE is configured")
	}

	return nil
}

// ParseTrackedSubjects reads "id|name|source1+source2|keywords" entries separated by semicolons
func ParseTrackedSubjects(raw string) ([]models.TrackedSubject, error) {
	var subjects []models.TrackedSubject
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, "|", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("tracked subject %q must have the form id|name|sources[|keywords]", entry)
		}

		subject := models.TrackedSubject{
			ID:   strings.TrimSpace(parts[0]),
			Name: strings.TrimSpace(parts[1]),
		}
		for _, source := range strings.Split(parts[2], "+") {
			if source = strings.TrimSpace(source); source != "" {
				subject.Sources = append(subject.Sources, source)
			}
		}
		if len(parts) == 4 {
			subject.Keywords = strings.TrimSpace(parts[3])
		}

		if subject.ID == "" || subject.Name == "" || len(subject.Sources) == 0 {
			return nil, fmt.Errorf("tracked subject %q needs an id, a name and at least one source", entry)
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
