package tokenstore

import (
	"context"
	"errors"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
)

// DatabaseStore persists token sets in the durable tokens table, keyed by
// the company correlation id.
type DatabaseStore struct {
	st store.Store
}

func NewDatabase(st store.Store) *DatabaseStore {
	return &DatabaseStore{st: st}
}

// WithTx returns a store writing through the transaction.
func (s *DatabaseStore) WithTx(tx store.Tx) Store {
	return &DatabaseStore{st: tx}
}

func (s *DatabaseStore) Get(ctx context.Context, qbCompanyID string) (*domain.TokenSet, error) {
	t, err := s.st.Tokens().Get(ctx, qbCompanyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *DatabaseStore) Put(ctx context.Context, qbCompanyID string, tokens domain.TokenSet) error {
	return s.st.Tokens().Upsert(ctx, qbCompanyID, tokens)
}

func (s *DatabaseStore) Forget(ctx context.Context, qbCompanyID string) error {
	return s.st.Tokens().Delete(ctx, qbCompanyID)
}

func (s *DatabaseStore) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	return s.st.Tokens().Exists(ctx, qbCompanyID)
}
