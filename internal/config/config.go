// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the session store, and the platform connectors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string
	InstanceID      string

	// Webhook Configuration
	WebhookTimeout time.Duration

	// Session Store Configuration
	Session SessionConfig

	// Platform Connector Configuration
	Line      LineConfig
	Slack     SlackConfig
	Telegram  TelegramConfig
	Messenger MessengerConfig

	// Snapshot Backup Configuration
	Snapshot SnapshotConfig

	// Sentry Configuration
	Sentry SentryConfig

	// Better Stack Configuration
	BetterStack BetterStackConfig

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	Driver     string        // memory, file, sqlite, redis, mongo
	ExpiresIn  time.Duration // 0 means sessions never expire
	MaxSize    int           // memory driver: max sessions before eviction
	FileDir    string        // file driver: directory for session documents
	DataDir    string        // sqlite driver: directory for the database file
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	MongoURL   string
	MongoColl  string
}

// LineConfig holds LINE connector configuration
type LineConfig struct {
	AccessToken   string
	ChannelSecret string
}

// Enabled reports whether the LINE connector should be mounted.
func (c LineConfig) Enabled() bool {
	return c.AccessToken != "" && c.ChannelSecret != ""
}

// SlackConfig holds Slack connector configuration
type SlackConfig struct {
	AccessToken       string
	SigningSecret     string
	VerificationToken string // legacy fallback when SigningSecret is unset
}

// Enabled reports whether the Slack connector should be mounted.
func (c SlackConfig) Enabled() bool {
	return c.SigningSecret != "" || c.VerificationToken != ""
}

// TelegramConfig holds Telegram connector configuration
type TelegramConfig struct {
	AccessToken string
	SecretToken string // optional, matched against X-Telegram-Bot-Api-Secret-Token
}

// Enabled reports whether the Telegram connector should be mounted.
func (c TelegramConfig) Enabled() bool {
	return c.AccessToken != ""
}

// MessengerConfig holds Messenger and Facebook connector configuration
type MessengerConfig struct {
	AppSecret   string
	VerifyToken string
	PageToken   string            // default page access token
	PageTokens  map[string]string // per-page overrides keyed by page ID
	Fields      []string          // profile fields requested from the Graph API
}

// Enabled reports whether the Messenger connector should be mounted.
func (c MessengerConfig) Enabled() bool {
	return c.AppSecret != ""
}

// TokenForPage returns the access token for a page, falling back to the
// default page token when no override exists.
func (c MessengerConfig) TokenForPage(pageID string) string {
	if token, ok := c.PageTokens[pageID]; ok {
		return token
	}
	return c.PageToken
}

// SnapshotConfig holds session database backup configuration
type SnapshotConfig struct {
	Enabled         bool
	Interval        time.Duration
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Key             string
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	Enabled          bool
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
}

// BetterStackConfig holds Better Stack log shipping configuration
type BetterStackConfig struct {
	Enabled  bool
	Token    string
	Endpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// Server Configuration
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, "courier"),
		InstanceID:      getEnv(EnvInstanceID, ""),

		// Webhook Configuration
		WebhookTimeout: getDurationEnv(EnvWebhookTimeout, WebhookProcessing),

		// Session Store Configuration
		Session: SessionConfig{
			Driver:    getEnv(EnvSessionDriver, "memory"),
			ExpiresIn: getDurationEnv(EnvSessionExpiresIn, 0),
			MaxSize:   getIntEnv(EnvSessionMaxSize, 500),
			FileDir:   getEnv(EnvSessionFileDir, ".sessions"),
			DataDir:   getEnv(EnvDataDir, getDefaultDataDir()),
			RedisAddr: getEnv(EnvRedisAddr, "localhost:6379"),
			RedisPass: getEnv(EnvRedisPassword, ""),
			RedisDB:   getIntEnv(EnvRedisDB, 0),
			MongoURL:  getEnv(EnvMongoURL, "mongodb://localhost:27017"),
			MongoColl: getEnv(EnvMongoCollection, "sessions"),
		},

		// Platform Connector Configuration
		Line: LineConfig{
			AccessToken:   getEnv(EnvLineAccessToken, ""),
			ChannelSecret: getEnv(EnvLineChannelSecret, ""),
		},
		Slack: SlackConfig{
			AccessToken:       getEnv(EnvSlackAccessToken, ""),
			SigningSecret:     getEnv(EnvSlackSigningSecret, ""),
			VerificationToken: getEnv(EnvSlackVerificationToken, ""),
		},
		Telegram: TelegramConfig{
			AccessToken: getEnv(EnvTelegramAccessToken, ""),
			SecretToken: getEnv(EnvTelegramSecretToken, ""),
		},
		Messenger: MessengerConfig{
			AppSecret:   getEnv(EnvMessengerAppSecret, ""),
			VerifyToken: getEnv(EnvMessengerVerifyToken, ""),
			PageToken:   getEnv(EnvMessengerPageToken, ""),
			PageTokens:  parsePageTokens(getEnv(EnvMessengerPageTokens, "")),
			Fields:      parseList(getEnv(EnvFacebookFields, "id,name,first_name,last_name,profile_pic")),
		},

		// Snapshot Backup Configuration
		Snapshot: SnapshotConfig{
			Enabled:         getBoolEnv(EnvSnapshotEnabled, false),
			Interval:        getDurationEnv(EnvSnapshotInterval, 6*time.Hour),
			AccountID:       getEnv(EnvSnapshotAccountID, ""),
			AccessKeyID:     getEnv(EnvSnapshotAccessKeyID, ""),
			SecretAccessKey: getEnv(EnvSnapshotSecretAccessKey, ""),
			BucketName:      getEnv(EnvSnapshotBucketName, ""),
			Key:             getEnv(EnvSnapshotKey, "sessions.db"),
		},

		// Sentry Configuration
		Sentry: SentryConfig{
			Enabled:          getBoolEnv(EnvSentryEnabled, false),
			DSN:              getEnv(EnvSentryDSN, ""),
			Environment:      getEnv(EnvSentryEnvironment, "production"),
			Release:          getEnv(EnvSentryRelease, ""),
			SampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
			TracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.1),
		},

		// Better Stack Configuration
		BetterStack: BetterStackConfig{
			Enabled:  getBoolEnv(EnvBetterStackEnabled, false),
			Token:    getEnv(EnvBetterStackToken, ""),
			Endpoint: getEnv(EnvBetterStackEndpoint, ""),
		},

		// Metrics Authentication
		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvWebhookTimeout, c.WebhookTimeout))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session config: %w", err))
	}
	if !c.Line.Enabled() && !c.Slack.Enabled() && !c.Telegram.Enabled() && !c.Messenger.Enabled() {
		errs = append(errs, errors.New("at least one platform connector must be configured"))
	}
	if c.Line.AccessToken != "" && c.Line.ChannelSecret == "" {
		errs = append(errs, errors.New(EnvLineChannelSecret+" is required when LINE is configured"))
	}
	if c.Messenger.Enabled() && c.Messenger.PageToken == "" && len(c.Messenger.PageTokens) == 0 {
		errs = append(errs, errors.New(EnvMessengerPageToken+" is required when Messenger is configured"))
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.AccountID == "" || c.Snapshot.AccessKeyID == "" ||
			c.Snapshot.SecretAccessKey == "" || c.Snapshot.BucketName == "" {
			errs = append(errs, errors.New("snapshot backup requires account, credentials, and bucket"))
		}
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		errs = append(errs, errors.New(EnvSentryDSN+" is required when Sentry is enabled"))
	}
	if c.BetterStack.Enabled && c.BetterStack.Token == "" {
		errs = append(errs, errors.New(EnvBetterStackToken+" is required when Better Stack is enabled"))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, errors.New(EnvMetricsPassword+" is required when metrics auth is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks session store configuration values
func (c *SessionConfig) Validate() error {
	var errs []error

	switch c.Driver {
	case "memory", "file", "sqlite", "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.ExpiresIn < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvSessionExpiresIn, c.ExpiresIn))
	}
	if c.Driver == "memory" && c.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvSessionMaxSize, c.MaxSize))
	}
	if c.Driver == "file" && c.FileDir == "" {
		errs = append(errs, errors.New(EnvSessionFileDir+" is required for the file driver"))
	}
	if c.Driver == "sqlite" && c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required for the sqlite driver"))
	}
	if c.Driver == "redis" && c.RedisAddr == "" {
		errs = append(errs, errors.New(EnvRedisAddr+" is required for the redis driver"))
	}
	if c.Driver == "mongo" && c.MongoURL == "" {
		errs = append(errs, errors.New(EnvMongoURL+" is required for the mongo driver"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLitePath returns the full path to the SQLite session database file
func (c *SessionConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// parsePageTokens parses "pageID1:token1,pageID2:token2" into a map.
// Malformed entries are skipped.
func parsePageTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pageID, token, ok := strings.Cut(entry, ":")
		if !ok || pageID == "" || token == "" {
			continue
		}
		tokens[pageID] = token
	}
	return tokens
}

// parseList parses a comma-separated list, trimming whitespace.
func parseList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
