// Package api issues tenant-scoped requests against the provider's
// business API, refreshing the company's access token just in time.
package api

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
	"sync"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/oauth"
	"github.com/ledgerlink/qbconnect/internal/connector/tokenstore"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
)

// Config binds a client to one (company, realm, environment) triple and
// carries the HTTP policy.
type Config struct {
	QBCompanyID string
	RealmID     string
	Environment string

	// BaseURLs maps environment name to the API base URL containing the
	// {realmId} placeholder.
	BaseURLs map[string]string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Options shape a single request.
type Options struct {
	Query   url.Values
	JSON    any
	Headers map[string]string
}

// CompanyClient is the per-company API façade. The in-memory token set is
// a session-scoped cache owned by this instance; the token store stays the
// source of truth. Safe for concurrent use by virtue of the internal mutex,
// but the accepted pattern is one client per logical request/session.
type CompanyClient struct {
	cfg    Config
	tokens tokenstore.Store
	oauth  *oauth.Handler
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	current *domain.TokenSet
}

func NewCompanyClient(
	cfg Config,
	tokens tokenstore.Store,
	oauthHandler *oauth.Handler,
	logger *slog.Logger,
) *CompanyClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CompanyClient{
		cfg:    cfg,
		tokens: tokens,
		oauth:  oauthHandler,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: httpx.NewRetryTransport(nil, cfg.MaxRetries, cfg.RetryDelay),
		},
		logger: logger,
	}
}

func (c *CompanyClient) QBCompanyID() string { return c.cfg.QBCompanyID }
func (c *CompanyClient) RealmID() string     { return c.cfg.RealmID }
func (c *CompanyClient) Environment() string { return c.cfg.Environment }

// Tokens returns a fresh token set, refreshing through the OAuth handler
// and persisting the result when the access token has expired.
func (c *CompanyClient) Tokens(ctx context.Context) (domain.TokenSet, error) {
	return c.ensureFreshToken(ctx)
}

func (c *CompanyClient) ensureFreshToken(ctx context.Context) (domain.TokenSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return *c.current, nil
	}

	stored, err := c.tokens.Get(ctx, c.cfg.QBCompanyID)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if stored == nil {
		return domain.TokenSet{}, fmt.Errorf("%w: no tokens found for company %q",
			domain.ErrAuthentication, c.cfg.QBCompanyID)
	}

	now := time.Now()
	tokens := *stored

	if tokens.AccessTokenExpired(now) {
		if tokens.RefreshTokenExpired(now) {
			return domain.TokenSet{}, fmt.Errorf("%w: refresh token expired for company %q, re-authorize required",
				domain.ErrAuthentication, c.cfg.QBCompanyID)
		}
		if tokens.RefreshToken == "" {
			return domain.TokenSet{}, fmt.Errorf("%w: refresh token missing for company %q, re-authorize required",
				domain.ErrAuthentication, c.cfg.QBCompanyID)
		}

		c.logger.Info("api: access token expired, refreshing", "qb_company_id", c.cfg.QBCompanyID)

		refreshed, err := c.oauth.RefreshToken(ctx, tokens.RefreshToken, c.cfg.RealmID)
		if err != nil {
			return domain.TokenSet{}, err
		}
		if err := c.tokens.Put(ctx, c.cfg.QBCompanyID, refreshed); err != nil {
			return domain.TokenSet{}, err
		}
		tokens = tokens.Merge(refreshed)
	}

	c.current = &tokens
	return tokens, nil
}

// Request issues an authenticated call against the company's base URL and
// returns the decoded JSON body. Non-object bodies come back under "raw".
func (c *CompanyClient) Request(
	ctx context.Context,
	method, path string,
	opts Options,
) (map[string]any, error) {
	tokens, err := c.ensureFreshToken(ctx)
	if err != nil {
		return nil, err
	}

	target := c.buildURL(path)
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.JSON != nil {
		raw, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("Accept", "application/json")
	if opts.JSON != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("api: sending request",
		"method", method,
		"url", target,
		"qb_company_id", c.cfg.QBCompanyID,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("api: request failed",
			"method", method,
			"url", target,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrAPI, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", domain.ErrAPI, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(method, target, resp.StatusCode)
	}

	c.logger.Debug("api: request successful", "method", method, "status", resp.StatusCode)

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded == nil {
		return map[string]any{"raw": string(raw)}, nil
	}
	return decoded, nil
}

// Get issues a GET with optional query parameters.
func (c *CompanyClient) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	return c.Request(ctx, http.MethodGet, path, Options{Query: query})
}

// Post issues a POST with a JSON payload.
func (c *CompanyClient) Post(ctx context.Context, path string, payload any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPost, path, Options{JSON: payload})
}

// Query runs a provider query-language statement. No escaping happens at
// this layer; resource helpers own that.
func (c *CompanyClient) Query(ctx context.Context, query string) (map[string]any, error) {
	return c.Request(ctx, http.MethodPost, "query", Options{
		Query: url.Values{"query": {query}},
	})
}

func (c *CompanyClient) statusError(method, target string, status int) error {
	c.logger.Error("api: request failed",
		"method", method,
		"url", target,
		"status_code", status,
		"qb_company_id", c.cfg.QBCompanyID,
	)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: provider rejected credentials for company %q (status %d)",
			domain.ErrAuthentication, c.cfg.QBCompanyID, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: company %q (status %d)",
			domain.ErrRateLimited, c.cfg.QBCompanyID, status)
	default:
		return fmt.Errorf("%w: company %q (status %d)",
			domain.ErrAPI, c.cfg.QBCompanyID, status)
	}
}

func (c *CompanyClient) buildURL(path string) string {
	base := c.cfg.BaseURLs[c.cfg.Environment]
	base = strings.ReplaceAll(base, "{realmId}", c.cfg.RealmID)
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
