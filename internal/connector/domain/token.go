package domain

import "time"

// TokenSet is the current OAuth2 credential pair for one connected company.
// The token store of record owns it; clients hold a request-scoped copy only.
type TokenSet struct {
	AccessToken           string     `json:"access_token"`
	RefreshToken          string     `json:"refresh_token"`
	AccessTokenExpiresAt  *time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at"`
	RealmID               string     `json:"realm_id,omitempty"`
}

// AccessTokenExpired reports whether the access token expiry is known and in
// the past. An unknown expiry is treated as still valid; the provider rejects
// the call if we are wrong and the client surfaces that as an auth error.
func (t TokenSet) AccessTokenExpired(now time.Time) bool {
	return t.AccessTokenExpiresAt != nil && t.AccessTokenExpiresAt.Before(now)
}

// RefreshTokenExpired reports whether the refresh token expiry is known and
// in the past.
func (t TokenSet) RefreshTokenExpired(now time.Time) bool {
	return t.RefreshTokenExpiresAt != nil && t.RefreshTokenExpiresAt.Before(now)
}

// Merge overlays the refreshed set on top of the stored one. Fields the
// provider omitted on refresh (typically realm_id) keep their stored value.
func (t TokenSet) Merge(refreshed TokenSet) TokenSet {
	out := refreshed
	if out.RealmID == "" {
		out.RealmID = t.RealmID
	}
	return out
}
