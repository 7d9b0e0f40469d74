package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
)

type companiesRepo struct {
	db dbtx
}

const companyColumns = `id, qb_company_id, tenant_group_id, source_type, source_id,
	display_name, qb_realm_id, environment, is_active, connected_at, disconnected_at,
	created_at, updated_at`

func (r *companiesRepo) GetByQBCompanyID(
	ctx context.Context,
	qbCompanyID, tenantGroupID string,
) (domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE qb_company_id = ?`
	args := []any{qbCompanyID}
	if tenantGroupID != "" {
		query += ` AND tenant_group_id = ?`
		args = append(args, tenantGroupID)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	return scanCompany(row)
}

func (r *companiesRepo) GetBySource(
	ctx context.Context,
	sourceType, sourceID, tenantGroupID string,
) (domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE source_type = ? AND source_id = ?`
	args := []any{sourceType, sourceID}
	if tenantGroupID != "" {
		query += ` AND tenant_group_id = ?`
		args = append(args, tenantGroupID)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	return scanCompany(row)
}

func (r *companiesRepo) Create(ctx context.Context, c domain.Company) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (
			id, qb_company_id, tenant_group_id, source_type, source_id,
			display_name, qb_realm_id, environment, is_active,
			connected_at, disconnected_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		c.ID,
		c.QBCompanyID,
		mapStringNull(c.TenantGroupID),
		mapStringNull(c.SourceType),
		mapStringNull(c.SourceID),
		mapStringNull(c.DisplayName),
		mapStringNull(c.RealmID),
		c.Environment,
		c.IsActive,
		mapOptionalTime(c.ConnectedAt),
		mapOptionalTime(c.DisconnectedAt),
	)
	return err
}

func (r *companiesRepo) List(ctx context.Context, f store.CompanyFilter) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	var args []any
	if f.TenantGroupID != "" {
		query += ` AND tenant_group_id = ?`
		args = append(args, f.TenantGroupID)
	}
	if f.OnlyActive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompanyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *companiesRepo) MarkConnected(
	ctx context.Context,
	qbCompanyID, realmID, environment string,
	connectedAt time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE companies SET
			qb_realm_id = ?,
			environment = ?,
			connected_at = ?,
			disconnected_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE qb_company_id = ?`,
		realmID, environment, connectedAt.UTC(), qbCompanyID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *companiesRepo) MarkDisconnected(
	ctx context.Context,
	qbCompanyID string,
	disconnectedAt time.Time,
) error {
	// Soft disconnect: the realm id stays in place for history.
	res, err := r.db.ExecContext(ctx, `
		UPDATE companies SET
			disconnected_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE qb_company_id = ?`,
		disconnectedAt.UTC(), qbCompanyID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row *sql.Row) (domain.Company, error) {
	c, err := scanCompanyFrom(row)
	if err != nil {
		return domain.Company{}, mapNotFound(err)
	}
	return c, nil
}

func scanCompanyRows(rows *sql.Rows) (domain.Company, error) {
	return scanCompanyFrom(rows)
}

func scanCompanyFrom(s rowScanner) (domain.Company, error) {
	var (
		c              domain.Company
		tenantGroup    sql.NullString
		sourceType     sql.NullString
		sourceID       sql.NullString
		displayName    sql.NullString
		realmID        sql.NullString
		connectedAt    sql.NullTime
		disconnectedAt sql.NullTime
	)

	err := s.Scan(
		&c.ID,
		&c.QBCompanyID,
		&tenantGroup,
		&sourceType,
		&sourceID,
		&displayName,
		&realmID,
		&c.Environment,
		&c.IsActive,
		&connectedAt,
		&disconnectedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Company{}, err
	}

	c.TenantGroupID = mapNullString(tenantGroup)
	c.SourceType = mapNullString(sourceType)
	c.SourceID = mapNullString(sourceID)
	c.DisplayName = mapNullString(displayName)
	c.RealmID = mapNullString(realmID)
	c.ConnectedAt = mapNullTimePtr(connectedAt)
	c.DisconnectedAt = mapNullTimePtr(disconnectedAt)
	return c, nil
}
