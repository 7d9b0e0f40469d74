package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlink/qbconnect/pkg/httpx"
)

// Provider endpoint defaults. Overridable per deployment so sandboxes and
// test doubles can be pointed at.
const (
	defaultAuthorizeURL = "https://appcenter.intuit.com/connect/oauth2"
	defaultTokenURL     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	defaultRevokeURL    = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	defaultProductionAPIBase = "https://quickbooks.api.intuit.com/v3/company/{realmId}/"
	defaultSandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com/v3/company/{realmId}/"

	defaultScope = "com.intuit.quickbooks.accounting"
)

type Config struct {
	ClientID     string // Required: OAuth client id
	ClientSecret string // Required: OAuth client secret, also signs states
	RedirectURI  string // Required: registered callback URL
	Scopes       []string // Space-delimited in QB_SCOPES per OAuth convention

	Environment       string // production or sandbox (default: sandbox)
	AuthorizeURL      string
	TokenURL          string
	RevokeURL         string
	ProductionAPIBase string
	SandboxAPIBase    string

	DefaultCompanyID string   // Optional: backs the default client
	Companies        []string // Optional: static/env resolver company ids

	ResolverDriver     string   // static, env, record, chain (default: record)
	ResolverChain      []string // chain member driver names
	ResolverOnlyActive bool     // record: skip inactive bindings

	TokenStoreDriver string // database, tenant, cache (default: database)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string

	RequestTimeout time.Duration // Per-request HTTP timeout (default: 30s)
	MaxRetries     int           // Retry attempts after the first try (default: 3)
	RetryDelay     time.Duration // Base backoff delay (default: 1s)

	DatabaseFile        string // Path to SQLite database file (default: ./qbconnect.db)
	Env                 string // Environment tag for logs (dev, staging, prod)
	LogLevel            string // debug, info, warn, error (default: info)
	LogFormat           string // json, text (default: json)
	Port                int    // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration
}

func LoadConfig() Config {
	return Config{
		ClientID:     os.Getenv("QB_CLIENT_ID"),
		ClientSecret: os.Getenv("QB_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("QB_REDIRECT_URI"),
		Scopes:       httpx.ParseSpaceDelimitedFields(getEnvOrDefault("QB_SCOPES", defaultScope)),

		Environment:       getEnvOrDefault("QB_ENVIRONMENT", "sandbox"),
		AuthorizeURL:      getEnvOrDefault("QB_AUTHORIZE_URL", defaultAuthorizeURL),
		TokenURL:          getEnvOrDefault("QB_TOKEN_URL", defaultTokenURL),
		RevokeURL:         getEnvOrDefault("QB_REVOKE_URL", defaultRevokeURL),
		ProductionAPIBase: getEnvOrDefault("QB_API_BASE_PRODUCTION", defaultProductionAPIBase),
		SandboxAPIBase:    getEnvOrDefault("QB_API_BASE_SANDBOX", defaultSandboxAPIBase),

		DefaultCompanyID: os.Getenv("QB_COMPANY_ID"),
		Companies:        splitList(os.Getenv("QB_COMPANIES")),

		ResolverDriver:     getEnvOrDefault("QB_RESOLVER", "record"),
		ResolverChain:      splitList(os.Getenv("QB_RESOLVER_CHAIN")),
		ResolverOnlyActive: getEnvBoolOrDefault("QB_RESOLVER_ONLY_ACTIVE", true),

		TokenStoreDriver: getEnvOrDefault("QB_TOKEN_STORE", "database"),
		RedisAddr:        getEnvOrDefault("QB_REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("QB_REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("QB_REDIS_DB", 0),
		RedisPrefix:      os.Getenv("QB_REDIS_PREFIX"),

		RequestTimeout: getEnvDurationOrDefault("QB_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvIntOrDefault("QB_MAX_RETRIES", 3),
		RetryDelay:     getEnvDurationOrDefault("QB_RETRY_DELAY", time.Second),

		DatabaseFile:        getEnvOrDefault("QB_DATABASE_FILE", "qbconnect.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// APIBaseURLs maps environment names to their API base URLs.
func (c Config) APIBaseURLs() map[string]string {
	return map[string]string{
		"production": c.ProductionAPIBase,
		"sandbox":    c.SandboxAPIBase,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare numbers are read as milliseconds.
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	return defaultValue
}
