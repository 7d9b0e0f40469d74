// Package tokenstore holds the durable mapping from a company correlation
// id to its current OAuth token set. Three implementations exist: plain
// database, tenant-scoped database and redis cache, selected once at
// startup by a configuration enum.
package tokenstore

import (
	"context"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
)

// Store is the token store of record. Get returns (nil, nil) when no token
// set exists for the id.
type Store interface {
	Get(ctx context.Context, qbCompanyID string) (*domain.TokenSet, error)
	Put(ctx context.Context, qbCompanyID string, tokens domain.TokenSet) error
	Forget(ctx context.Context, qbCompanyID string) error
	Has(ctx context.Context, qbCompanyID string) (bool, error)
}

// TxStore is implemented by stores backed by the durable store. WithTx
// returns a view bound to the transaction so token writes commit atomically
// with company binding updates. Stores with nothing to roll back (cache)
// do not implement it.
type TxStore interface {
	Store
	WithTx(tx store.Tx) Store
}

// InTx upgrades s to its tx-scoped view when it supports transactions,
// otherwise returns s unchanged.
func InTx(s Store, tx store.Tx) Store {
	if txs, ok := s.(TxStore); ok {
		return txs.WithTx(tx)
	}
	return s
}
