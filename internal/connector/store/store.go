package store

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface over the durable company and
// token records. Concrete drivers (sqlite) implement this. Sub-repositories
// keep concerns tidy and stop callers from accidentally nesting
// transactions.
type Store interface {
	Companies() Companies
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to make the connect/disconnect persistence steps
	// atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// CompanyFilter narrows company listings. The zero value matches everything.
type CompanyFilter struct {
	// TenantGroupID restricts to one tenant group when non-empty.
	TenantGroupID string
	// OnlyActive restricts to is_active rows.
	OnlyActive bool
}

type Companies interface {
	// GetByQBCompanyID returns the binding for a correlation id, optionally
	// restricted to a tenant group (empty group means no restriction).
	GetByQBCompanyID(ctx context.Context, qbCompanyID, tenantGroupID string) (domain.Company, error)

	// GetBySource returns the binding registered for a source record.
	GetBySource(ctx context.Context, sourceType, sourceID, tenantGroupID string) (domain.Company, error)

	// Create inserts a new binding (id is provided by the app via ULID).
	Create(ctx context.Context, c domain.Company) error

	// List returns bindings matching the filter, oldest first.
	List(ctx context.Context, f CompanyFilter) ([]domain.Company, error)

	// MarkConnected records a successful OAuth callback: realm and
	// environment set, connected_at stamped, disconnected_at cleared.
	MarkConnected(ctx context.Context, qbCompanyID, realmID, environment string, connectedAt time.Time) error

	// MarkDisconnected soft-disconnects the binding: disconnected_at is
	// stamped and the realm id is preserved for history.
	MarkDisconnected(ctx context.Context, qbCompanyID string, disconnectedAt time.Time) error
}

type Tokens interface {
	// Get returns the current token set for a correlation id.
	Get(ctx context.Context, qbCompanyID string) (domain.TokenSet, error)

	// Upsert stores the token set, replacing any previous row.
	Upsert(ctx context.Context, qbCompanyID string, t domain.TokenSet) error

	// Delete removes the token row. Deleting a missing row is not an error.
	Delete(ctx context.Context, qbCompanyID string) error

	// Exists reports whether a token row is present.
	Exists(ctx context.Context, qbCompanyID string) (bool, error)
}
