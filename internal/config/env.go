// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "COURIER_PORT"
	EnvLogLevel        = "COURIER_LOG_LEVEL"
	EnvShutdownTimeout = "COURIER_SHUTDOWN_TIMEOUT"
	EnvServerName      = "COURIER_SERVER_NAME"
	EnvInstanceID      = "COURIER_INSTANCE_ID"

	// Session Store
	EnvSessionDriver    = "COURIER_SESSION_DRIVER"
	EnvSessionExpiresIn = "COURIER_SESSION_EXPIRES_IN"
	EnvSessionMaxSize   = "COURIER_SESSION_MAX_SIZE"
	EnvSessionFileDir   = "COURIER_SESSION_FILE_DIR"
	EnvDataDir          = "COURIER_DATA_DIR"
	EnvRedisAddr        = "COURIER_REDIS_ADDR"
	EnvRedisPassword    = "COURIER_REDIS_PASSWORD"
	EnvRedisDB          = "COURIER_REDIS_DB"
	EnvMongoURL         = "COURIER_MONGO_URL"
	EnvMongoCollection  = "COURIER_MONGO_COLLECTION"

	// Webhook
	EnvWebhookTimeout = "COURIER_WEBHOOK_TIMEOUT"

	// LINE
	EnvLineAccessToken   = "COURIER_LINE_ACCESS_TOKEN"
	EnvLineChannelSecret = "COURIER_LINE_CHANNEL_SECRET"

	// Slack
	EnvSlackAccessToken       = "COURIER_SLACK_ACCESS_TOKEN"
	EnvSlackSigningSecret     = "COURIER_SLACK_SIGNING_SECRET"
	EnvSlackVerificationToken = "COURIER_SLACK_VERIFICATION_TOKEN"

	// Telegram
	EnvTelegramAccessToken = "COURIER_TELEGRAM_ACCESS_TOKEN"
	EnvTelegramSecretToken = "COURIER_TELEGRAM_SECRET_TOKEN"

	// Messenger / Facebook
	EnvMessengerAppSecret   = "COURIER_MESSENGER_APP_SECRET"
	EnvMessengerVerifyToken = "COURIER_MESSENGER_VERIFY_TOKEN"
	EnvMessengerPageToken   = "COURIER_MESSENGER_PAGE_TOKEN"
	EnvMessengerPageTokens  = "COURIER_MESSENGER_PAGE_TOKENS"
	EnvFacebookFields       = "COURIER_FACEBOOK_FIELDS"

	// Snapshot Backup Feature
	EnvSnapshotEnabled         = "COURIER_SNAPSHOT_ENABLED"
	EnvSnapshotInterval        = "COURIER_SNAPSHOT_INTERVAL"
	EnvSnapshotAccountID       = "COURIER_SNAPSHOT_ACCOUNT_ID"
	EnvSnapshotAccessKeyID     = "COURIER_SNAPSHOT_ACCESS_KEY_ID"
	EnvSnapshotSecretAccessKey = "COURIER_SNAPSHOT_SECRET_ACCESS_KEY"
	EnvSnapshotBucketName      = "COURIER_SNAPSHOT_BUCKET_NAME"
	EnvSnapshotKey             = "COURIER_SNAPSHOT_KEY"

	// Sentry Feature
	EnvSentryEnabled          = "COURIER_SENTRY_ENABLED"
	EnvSentryDSN              = "COURIER_SENTRY_DSN"
	EnvSentryEnvironment      = "COURIER_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "COURIER_SENTRY_RELEASE"
	EnvSentrySampleRate       = "COURIER_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "COURIER_SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "COURIER_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "COURIER_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "COURIER_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "COURIER_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "COURIER_METRICS_USERNAME"
	EnvMetricsPassword    = "COURIER_METRICS_PASSWORD"
)
