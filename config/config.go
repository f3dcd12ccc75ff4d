package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment   string
	PublicBaseURL string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (ticket delivery)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string

	// Ticket signing
	TicketSecret string

	// Gate stations present this key (bcrypt hash here) on check-in calls.
	// Empty hash disables the check.
	GateKeyHash string

	// Provider configuration
	TelebirrBaseURL string
	TelebirrTimeout time.Duration
	CBEBaseURL      string
	CBETimeout      time.Duration
	BOABaseURL      string
	BOATimeout      time.Duration

	// Retry configuration (transient provider failures only)
	VerifyRetries    int
	VerifyRetryDelay time.Duration

	// Rate limiting
	VerifyRateLimit int // requests per minute per user/IP

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment:   getEnv("ENVIRONMENT", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8090"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "ticket-engine"),

		// Ticket signing
		TicketSecret: getEnv("TICKET_SECRET", ""),
		GateKeyHash:  getEnv("GATE_KEY_HASH", ""),

		// Providers
		TelebirrBaseURL: getEnv("TELEBIRR_BASE_URL", "https://transactioninfo.ethiotelecom.et"),
		TelebirrTimeout: getEnvAsDuration("TELEBIRR_TIMEOUT", "15s"),
		CBEBaseURL:      getEnv("CBE_BASE_URL", "https://apps.cbe.com.et:100"),
		CBETimeout:      getEnvAsDuration("CBE_TIMEOUT", "60s"),
		BOABaseURL:      getEnv("BOA_BASE_URL", "https://cs.bankofabyssinia.com"),
		BOATimeout:      getEnvAsDuration("BOA_TIMEOUT", "20s"),

		// Retries
		VerifyRetries:    getEnvAsInt("VERIFY_RETRIES", 2),
		VerifyRetryDelay: getEnvAsDuration("VERIFY_RETRY_DELAY", "2s"),

		// Rate limiting
		VerifyRateLimit: getEnvAsInt("VERIFY_RATE_LIMIT", 10),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
