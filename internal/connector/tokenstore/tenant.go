package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
)

// TenantStore is the tenant-isolated database store. Every operation is
// additionally checked against the company binding's tenant group when the
// context carries one: reads outside the active group see nothing, writes
// outside it fail with domain.ErrCompanyNotFound. This is a hard isolation
// boundary, not an optimization.
type TenantStore struct {
	st store.Store
}

func NewTenant(st store.Store) *TenantStore {
	return &TenantStore{st: st}
}

// WithTx returns a store writing through the transaction.
func (s *TenantStore) WithTx(tx store.Tx) Store {
	return &TenantStore{st: tx}
}

func (s *TenantStore) Get(ctx context.Context, qbCompanyID string) (*domain.TokenSet, error) {
	visible, err := s.visible(ctx, qbCompanyID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	t, err := s.st.Tokens().Get(ctx, qbCompanyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *TenantStore) Put(ctx context.Context, qbCompanyID string, tokens domain.TokenSet) error {
	if err := s.assertAccess(ctx, qbCompanyID); err != nil {
		return err
	}
	return s.st.Tokens().Upsert(ctx, qbCompanyID, tokens)
}

func (s *TenantStore) Forget(ctx context.Context, qbCompanyID string) error {
	if err := s.assertAccess(ctx, qbCompanyID); err != nil {
		return err
	}
	return s.st.Tokens().Delete(ctx, qbCompanyID)
}

func (s *TenantStore) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	visible, err := s.visible(ctx, qbCompanyID)
	if err != nil || !visible {
		return false, err
	}
	return s.st.Tokens().Exists(ctx, qbCompanyID)
}

// visible reports whether the id belongs to the active tenant group. With
// no active group every id is visible.
func (s *TenantStore) visible(ctx context.Context, qbCompanyID string) (bool, error) {
	group := tenant.GroupFrom(ctx)
	if group == "" {
		return true, nil
	}

	_, err := s.st.Companies().GetByQBCompanyID(ctx, qbCompanyID, group)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *TenantStore) assertAccess(ctx context.Context, qbCompanyID string) error {
	visible, err := s.visible(ctx, qbCompanyID)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("%w: company %q is not in the active tenant group",
			domain.ErrCompanyNotFound, qbCompanyID)
	}
	return nil
}
