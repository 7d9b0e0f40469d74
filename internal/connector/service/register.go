package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
	"github.com/ledgerlink/qbconnect/pkg/idx"
)

// RegisterInput identifies the source record a company binding is created
// for. SourceType and SourceID together must be unique within a tenant
// group.
type RegisterInput struct {
	SourceType  string
	SourceID    string
	DisplayName string
}

// Registrar creates company bindings and hands out their correlation ids.
type Registrar struct {
	store  store.Store
	logger *slog.Logger
}

func NewRegistrar(st store.Store, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{store: st, logger: logger}
}

// Register creates a binding for the source record and returns it. The call
// is idempotent: registering the same (source type, source id) within a
// tenant group returns the existing binding unchanged, with created false.
func (r *Registrar) Register(ctx context.Context, in RegisterInput) (company domain.Company, created bool, err error) {
	if in.SourceType == "" || in.SourceID == "" {
		return domain.Company{}, false, errors.New("source type and source id are required")
	}

	group := tenant.GroupFrom(ctx)

	existing, err := r.store.Companies().GetBySource(ctx, in.SourceType, in.SourceID, group)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.Company{}, false, fmt.Errorf("looking up existing binding: %w", err)
	}

	now := time.Now()
	company = domain.Company{
		ID:            idx.New().String(),
		QBCompanyID:   uuid.NewString(),
		TenantGroupID: group,
		SourceType:    in.SourceType,
		SourceID:      in.SourceID,
		DisplayName:   in.DisplayName,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.store.Companies().Create(ctx, company); err != nil {
		return domain.Company{}, false, fmt.Errorf("creating company binding: %w", err)
	}

	r.logger.Info("company registered",
		"qb_company_id", company.QBCompanyID,
		"source_type", in.SourceType,
		"source_id", in.SourceID,
		"tenant_group_id", group,
	)
	return company, true, nil
}
