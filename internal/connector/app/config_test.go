package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "sandbox", cfg.Environment)
	require.Equal(t, defaultAuthorizeURL, cfg.AuthorizeURL)
	require.Equal(t, defaultTokenURL, cfg.TokenURL)
	require.Equal(t, defaultRevokeURL, cfg.RevokeURL)
	require.Equal(t, []string{defaultScope}, cfg.Scopes)
	require.Equal(t, "record", cfg.ResolverDriver)
	require.Equal(t, "database", cfg.TokenStoreDriver)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, time.Second, cfg.RetryDelay)
	require.Equal(t, 8080, cfg.Port)
	require.True(t, cfg.ResolverOnlyActive)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("QB_ENVIRONMENT", "production")
	t.Setenv("QB_SCOPES", "scope-a scope-b")
	t.Setenv("QB_COMPANIES", "company-a,company-b")
	t.Setenv("QB_MAX_RETRIES", "5")
	t.Setenv("QB_RETRY_DELAY", "250ms")
	t.Setenv("QB_RESOLVER_ONLY_ACTIVE", "false")

	cfg := LoadConfig()

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, []string{"scope-a", "scope-b"}, cfg.Scopes)
	require.Equal(t, []string{"company-a", "company-b"}, cfg.Companies)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	require.False(t, cfg.ResolverOnlyActive)
}

func TestLoadConfigDurationAsMilliseconds(t *testing.T) {
	// Bare numbers keep working for callers used to millisecond knobs.
	t.Setenv("QB_RETRY_DELAY", "1500")

	cfg := LoadConfig()
	require.Equal(t, 1500*time.Millisecond, cfg.RetryDelay)
}

func TestAPIBaseURLs(t *testing.T) {
	cfg := LoadConfig()
	bases := cfg.APIBaseURLs()

	require.Contains(t, bases["production"], "{realmId}")
	require.Contains(t, bases["sandbox"], "{realmId}")
	require.NotEqual(t, bases["production"], bases["sandbox"])
}

func validTestConfig(t *testing.T) Config {
	t.Helper()

	cfg := LoadConfig()
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.RedirectURI = "https://example.com/v1/callback"
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "test.db")
	cfg.LogLevel = "error"
	return cfg
}

func TestNewFailsFast(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.ClientSecret = ""

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("unknown token store driver", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.TokenStoreDriver = "memcached"

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("unknown resolver driver", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.ResolverDriver = "ldap"

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("valid configuration initializes", func(t *testing.T) {
		cfg := validTestConfig(t)

		app, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, app.db.Close())
	})
}
