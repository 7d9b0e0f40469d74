// Package oauth implements the provider's OAuth2 protocol surface:
// authorization URLs, code exchange, refresh, revocation and the signed
// state parameter correlating callbacks with companies.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
)

// Endpoints are the provider OAuth URLs. Deployment configuration, not
// protocol logic.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
}

// Config carries the client credentials and HTTP policy for the handler.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	Endpoints    Endpoints

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Handler talks to the provider's OAuth endpoints. All network calls run
// through the retrying transport with the configured timeout.
type Handler struct {
	cfg    Config
	states *StateCodec
	client *http.Client
	logger *slog.Logger
}

func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		cfg:    cfg,
		states: NewStateCodec(cfg.ClientSecret),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: httpx.NewRetryTransport(nil, cfg.MaxRetries, cfg.RetryDelay),
		},
		logger: logger,
	}
}

// States exposes the state codec bound to the client secret.
func (h *Handler) States() *StateCodec { return h.states }

// AuthorizationURL builds the provider authorize URL for a company. A fresh
// signed state is generated unless the caller supplies one; nil scopes use
// the configured defaults; extra parameters are merged into the query.
func (h *Handler) AuthorizationURL(
	qbCompanyID string,
	scopes []string,
	state string,
	extra url.Values,
) (string, error) {
	if state == "" {
		var err error
		if state, err = h.states.NewState(qbCompanyID); err != nil {
			return "", err
		}
	}

	if len(scopes) == 0 {
		scopes = h.cfg.Scopes
	}

	q := url.Values{
		"client_id":     {h.cfg.ClientID},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"redirect_uri":  {h.cfg.RedirectURI},
		"state":         {state},
	}
	for key, vals := range extra {
		for _, v := range vals {
			q.Add(key, v)
		}
	}

	return strings.TrimRight(h.cfg.Endpoints.AuthorizeURL, "?") + "?" + q.Encode(), nil
}

// ExchangeCode trades an authorization code for a token set.
func (h *Handler) ExchangeCode(ctx context.Context, code, realmID string) (domain.TokenSet, error) {
	h.logger.Info("oauth: exchanging authorization code", "realm_id", realmID)

	payload, err := h.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {h.cfg.RedirectURI},
	})
	if err != nil {
		return domain.TokenSet{}, err
	}

	tokens, err := normalizeTokenResponse(payload, realmID, time.Now())
	if err != nil {
		return domain.TokenSet{}, err
	}

	h.logger.Info("oauth: token exchange successful", "realm_id", realmID)
	return tokens, nil
}

// RefreshToken trades a refresh token for a fresh token set.
func (h *Handler) RefreshToken(ctx context.Context, refreshToken, realmID string) (domain.TokenSet, error) {
	h.logger.Info("oauth: refreshing access token", "realm_id", realmID)

	payload, err := h.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return domain.TokenSet{}, err
	}

	tokens, err := normalizeTokenResponse(payload, realmID, time.Now())
	if err != nil {
		return domain.TokenSet{}, err
	}

	h.logger.Info("oauth: token refresh successful", "realm_id", realmID)
	return tokens, nil
}

// RevokeToken revokes a refresh token at the provider. The boolean reports
// whether the provider answered 2xx; transport failure is an error, never
// silently swallowed.
func (h *Handler) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	h.logger.Info("oauth: revoking token")

	body, err := json.Marshal(map[string]string{"token": refreshToken})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		h.cfg.Endpoints.RevokeURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(h.cfg.ClientID, h.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("oauth: failed to revoke token", "error", err)
		return false, fmt.Errorf("%w: failed to revoke token: %v", domain.ErrAuthentication, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	h.logger.Info("oauth: token revocation completed", "success", success)
	return success, nil
}

// tokenRequest posts a form to the token endpoint with HTTP basic client
// authentication and returns the decoded JSON payload.
func (h *Handler) tokenRequest(ctx context.Context, params url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		h.cfg.Endpoints.TokenURL,
		strings.NewReader(params.Encode()),
	)
	if err != nil {
		return tokenResponse{}, err
	}
	req.SetBasicAuth(h.cfg.ClientID, h.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("oauth: token request failed", "error", err)
		return tokenResponse{}, fmt.Errorf("%w: oauth token request failed: %v", domain.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("%w: reading oauth token response: %v", domain.ErrAuthentication, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Error("oauth: token request failed", "status", resp.StatusCode)
		return tokenResponse{}, fmt.Errorf("%w: oauth token request failed with status %d",
			domain.ErrAuthentication, resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return tokenResponse{}, fmt.Errorf("%w: invalid oauth token response", domain.ErrAuthentication)
	}
	return payload, nil
}

type tokenResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	ExpiresIn              int64  `json:"expires_in"`
	XRefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
}

// normalizeTokenResponse converts provider lifetimes (seconds from now,
// including the nonstandard x_refresh_token_expires_in) into absolute
// expiry timestamps. Missing tokens fail: a persisted set must always hold
// both.
func normalizeTokenResponse(payload tokenResponse, realmID string, now time.Time) (domain.TokenSet, error) {
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return domain.TokenSet{}, fmt.Errorf("%w: oauth response missing access or refresh token",
			domain.ErrAuthentication)
	}

	tokens := domain.TokenSet{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		RealmID:      realmID,
	}
	if payload.ExpiresIn > 0 {
		t := now.Add(time.Duration(payload.ExpiresIn) * time.Second)
		tokens.AccessTokenExpiresAt = &t
	}
	if payload.XRefreshTokenExpiresIn > 0 {
		t := now.Add(time.Duration(payload.XRefreshTokenExpiresIn) * time.Second)
		tokens.RefreshTokenExpiresAt = &t
	}
	return tokens, nil
}
