package resolver

import (
	"context"
	"errors"

	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
)

// Record resolves against the durable company bindings, filtered by the
// active tenant group (when the context carries one) and by the configured
// static conditions.
type Record struct {
	st store.Store

	// OnlyActive restricts resolution to is_active bindings.
	OnlyActive bool
}

func NewRecord(st store.Store, onlyActive bool) *Record {
	return &Record{st: st, OnlyActive: onlyActive}
}

func (r *Record) All(ctx context.Context) ([]string, error) {
	companies, err := r.st.Companies().List(ctx, store.CompanyFilter{
		TenantGroupID: tenant.GroupFrom(ctx),
		OnlyActive:    r.OnlyActive,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.QBCompanyID)
	}
	return ids, nil
}

func (r *Record) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	c, err := r.st.Companies().GetByQBCompanyID(ctx, qbCompanyID, tenant.GroupFrom(ctx))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if r.OnlyActive && !c.IsActive {
		return false, nil
	}
	return true, nil
}
