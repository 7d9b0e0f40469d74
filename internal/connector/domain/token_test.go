package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSetExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("unknown expiry treated as valid", func(t *testing.T) {
		var ts TokenSet
		require.False(t, ts.AccessTokenExpired(now))
		require.False(t, ts.RefreshTokenExpired(now))
	})

	t.Run("past expiry is expired", func(t *testing.T) {
		ts := TokenSet{AccessTokenExpiresAt: &past, RefreshTokenExpiresAt: &past}
		require.True(t, ts.AccessTokenExpired(now))
		require.True(t, ts.RefreshTokenExpired(now))
	})

	t.Run("future expiry is valid", func(t *testing.T) {
		ts := TokenSet{AccessTokenExpiresAt: &future, RefreshTokenExpiresAt: &future}
		require.False(t, ts.AccessTokenExpired(now))
		require.False(t, ts.RefreshTokenExpired(now))
	})
}

func TestTokenSetMerge(t *testing.T) {
	t.Parallel()

	exp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	stored := TokenSet{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		RealmID:      "realm-1",
	}

	t.Run("refreshed values win", func(t *testing.T) {
		merged := stored.Merge(TokenSet{
			AccessToken:          "new-access",
			RefreshToken:         "new-refresh",
			AccessTokenExpiresAt: &exp,
			RealmID:              "realm-2",
		})
		require.Equal(t, "new-access", merged.AccessToken)
		require.Equal(t, "new-refresh", merged.RefreshToken)
		require.Equal(t, "realm-2", merged.RealmID)
		require.Equal(t, &exp, merged.AccessTokenExpiresAt)
	})

	t.Run("missing realm keeps the stored one", func(t *testing.T) {
		merged := stored.Merge(TokenSet{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		})
		require.Equal(t, "realm-1", merged.RealmID)
	})
}
