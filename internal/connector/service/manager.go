// Package service orchestrates the OAuth lifecycle and company bookkeeping
// across the store, token store, resolver and protocol handler.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/api"
	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/oauth"
	"github.com/ledgerlink/qbconnect/internal/connector/resolver"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
	"github.com/ledgerlink/qbconnect/internal/connector/tokenstore"
)

// ManagerConfig carries the deployment-level settings the manager applies
// to every company it serves.
type ManagerConfig struct {
	// DefaultCompanyID backs Client(ctx) for single-company deployments.
	DefaultCompanyID string

	// Environment is stamped onto bindings at callback time and used as a
	// fallback for clients whose binding predates environment tracking.
	Environment string

	// APIBaseURLs maps environment name to the business API base URL with
	// the {realmId} placeholder.
	APIBaseURLs map[string]string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Manager is the single entry point callers use: authorize URLs, OAuth
// callbacks, disconnects and per-company API clients.
type Manager struct {
	cfg      ManagerConfig
	store    store.Store
	tokens   tokenstore.Store
	resolver resolver.Resolver
	oauth    *oauth.Handler
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*api.CompanyClient
}

func NewManager(
	cfg ManagerConfig,
	st store.Store,
	tokens tokenstore.Store,
	res resolver.Resolver,
	oauthHandler *oauth.Handler,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:      cfg,
		store:    st,
		tokens:   tokens,
		resolver: res,
		oauth:    oauthHandler,
		logger:   logger,
		clients:  make(map[string]*api.CompanyClient),
	}
}

// CompanyStatus is a point-in-time connection summary for one company.
type CompanyStatus struct {
	QBCompanyID string `json:"qb_company_id"`
	DisplayName string `json:"display_name,omitempty"`
	RealmID     string `json:"realm_id,omitempty"`
	Environment string `json:"environment,omitempty"`
	Connected   bool   `json:"connected"`
}

// Company returns an API client for the given correlation id. The company
// must be recognized by the resolver and have completed an OAuth callback.
// Clients are memoized per id for the life of the manager.
func (m *Manager) Company(ctx context.Context, qbCompanyID string) (*api.CompanyClient, error) {
	if qbCompanyID == "" {
		return nil, fmt.Errorf("%w: no company id supplied and no default configured",
			domain.ErrMissingCompanyID)
	}

	if err := m.requireKnown(ctx, qbCompanyID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if client, ok := m.clients[qbCompanyID]; ok {
		m.mu.Unlock()
		return client, nil
	}
	m.mu.Unlock()

	realmID, environment, err := m.connectionInfo(ctx, qbCompanyID)
	if err != nil {
		return nil, err
	}

	client := api.NewCompanyClient(api.Config{
		QBCompanyID: qbCompanyID,
		RealmID:     realmID,
		Environment: environment,
		BaseURLs:    m.cfg.APIBaseURLs,
		Timeout:     m.cfg.Timeout,
		MaxRetries:  m.cfg.MaxRetries,
		RetryDelay:  m.cfg.RetryDelay,
	}, m.tokens, m.oauth, m.logger)

	m.mu.Lock()
	m.clients[qbCompanyID] = client
	m.mu.Unlock()

	return client, nil
}

// Client returns the API client for the configured default company.
func (m *Manager) Client(ctx context.Context) (*api.CompanyClient, error) {
	return m.Company(ctx, m.cfg.DefaultCompanyID)
}

// AuthorizationURL builds the provider authorize URL with a freshly signed
// state for the company. Scopes override the configured default when given.
func (m *Manager) AuthorizationURL(ctx context.Context, qbCompanyID string, scopes ...string) (string, error) {
	if err := m.requireKnown(ctx, qbCompanyID); err != nil {
		return "", err
	}
	return m.oauth.AuthorizationURL(qbCompanyID, scopes, "", nil)
}

// HandleCallback completes the OAuth flow: the state is verified and its
// company id extracted, the code is exchanged, and the tokens plus the
// company binding update are committed in one transaction. Returns the
// company id the callback belongs to.
func (m *Manager) HandleCallback(ctx context.Context, code, state, realmID string) (string, error) {
	qbCompanyID, err := m.oauth.States().ExtractCompanyID(state)
	if err != nil {
		return "", err
	}
	if err := m.requireKnown(ctx, qbCompanyID); err != nil {
		return "", err
	}

	// Network call stays outside the transaction.
	tokens, err := m.oauth.ExchangeCode(ctx, code, realmID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tokenstore.InTx(m.tokens, tx).Put(ctx, qbCompanyID, tokens); err != nil {
			return err
		}

		err := tx.Companies().MarkConnected(ctx, qbCompanyID, realmID, m.cfg.Environment, now)
		if errors.Is(err, store.ErrNotFound) {
			// Companies declared by static/env resolvers have no binding
			// row; tokens alone are enough for them.
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}

	m.evict(qbCompanyID)

	m.logger.Info("oauth callback completed",
		"qb_company_id", qbCompanyID,
		"realm_id", realmID,
	)
	return qbCompanyID, nil
}

// Disconnect revokes the refresh token at the provider (best effort),
// forgets the stored tokens and soft-disconnects the binding. The realm id
// stays on the row so a later reconnect is recognizable.
func (m *Manager) Disconnect(ctx context.Context, qbCompanyID string) error {
	if err := m.requireKnown(ctx, qbCompanyID); err != nil {
		return err
	}

	stored, err := m.tokens.Get(ctx, qbCompanyID)
	if err != nil {
		return err
	}

	if stored != nil && stored.RefreshToken != "" {
		if ok, err := m.oauth.RevokeToken(ctx, stored.RefreshToken); err != nil || !ok {
			// Local state wins over provider-side revocation.
			m.logger.Warn("token revocation failed, disconnecting locally anyway",
				"qb_company_id", qbCompanyID,
				"error", err,
			)
		}
	}

	now := time.Now()
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tokenstore.InTx(m.tokens, tx).Forget(ctx, qbCompanyID); err != nil {
			return err
		}

		err := tx.Companies().MarkDisconnected(ctx, qbCompanyID, now)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	m.evict(qbCompanyID)

	m.logger.Info("company disconnected", "qb_company_id", qbCompanyID)
	return nil
}

// IsConnected reports whether the company is recognized and holds a token
// set whose refresh token has not expired. An expired refresh token cannot
// be renewed, so the connection is dead even though the row still exists.
func (m *Manager) IsConnected(ctx context.Context, qbCompanyID string) (bool, error) {
	known, err := m.resolver.Has(ctx, qbCompanyID)
	if err != nil {
		return false, err
	}
	if !known {
		return false, nil
	}
	return m.hasLiveTokens(ctx, qbCompanyID)
}

// ConnectionStatus summarizes every resolved company.
func (m *Manager) ConnectionStatus(ctx context.Context) ([]CompanyStatus, error) {
	ids, err := m.resolver.All(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]CompanyStatus, 0, len(ids))
	for _, id := range ids {
		status := CompanyStatus{QBCompanyID: id}

		company, err := m.store.Companies().GetByQBCompanyID(ctx, id, tenant.GroupFrom(ctx))
		switch {
		case err == nil:
			status.DisplayName = company.DisplayName
			status.RealmID = company.RealmID
			status.Environment = company.Environment
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}

		live, err := m.hasLiveTokens(ctx, id)
		if err != nil {
			return nil, err
		}
		status.Connected = live

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// AllCompanies returns clients for every resolved, connected company.
// Companies that cannot produce a client (never authorized, tenant
// mismatch) are logged and skipped rather than failing the batch.
func (m *Manager) AllCompanies(ctx context.Context) ([]*api.CompanyClient, error) {
	ids, err := m.resolver.All(ctx)
	if err != nil {
		return nil, err
	}

	clients := make([]*api.CompanyClient, 0, len(ids))
	for _, id := range ids {
		client, err := m.Company(ctx, id)
		if err != nil {
			m.logger.Warn("skipping company without usable client",
				"qb_company_id", id,
				"error", err,
			)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// hasLiveTokens reports whether a token set is stored and its refresh token
// is still usable.
func (m *Manager) hasLiveTokens(ctx context.Context, qbCompanyID string) (bool, error) {
	stored, err := m.tokens.Get(ctx, qbCompanyID)
	if err != nil {
		return false, err
	}
	return stored != nil && !stored.RefreshTokenExpired(time.Now()), nil
}

func (m *Manager) requireKnown(ctx context.Context, qbCompanyID string) error {
	known, err := m.resolver.Has(ctx, qbCompanyID)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: %q", domain.ErrCompanyNotFound, qbCompanyID)
	}
	return nil
}

// connectionInfo resolves the realm and environment for a recognized
// company. Companies without a completed callback cannot make API calls.
func (m *Manager) connectionInfo(ctx context.Context, qbCompanyID string) (realmID, environment string, err error) {
	company, err := m.store.Companies().GetByQBCompanyID(ctx, qbCompanyID, tenant.GroupFrom(ctx))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "", "", fmt.Errorf("%w: company %q has not completed authorization",
			domain.ErrAuthentication, qbCompanyID)
	case err != nil:
		return "", "", err
	}

	if company.RealmID == "" {
		return "", "", fmt.Errorf("%w: company %q has not completed authorization",
			domain.ErrAuthentication, qbCompanyID)
	}

	environment = company.Environment
	if environment == "" {
		environment = m.cfg.Environment
	}
	return company.RealmID, environment, nil
}

func (m *Manager) evict(qbCompanyID string) {
	m.mu.Lock()
	delete(m.clients, qbCompanyID)
	m.mu.Unlock()
}
