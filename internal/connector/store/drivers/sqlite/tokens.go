package sqlite

import (
	"context"
	"database/sql"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) Get(ctx context.Context, qbCompanyID string) (domain.TokenSet, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, access_token_expires_at,
			refresh_token_expires_at, qb_realm_id
		FROM tokens WHERE qb_company_id = ?`,
		qbCompanyID,
	)

	var (
		t                domain.TokenSet
		accessExpiresAt  sql.NullTime
		refreshExpiresAt sql.NullTime
		realmID          sql.NullString
	)
	err := row.Scan(&t.AccessToken, &t.RefreshToken, &accessExpiresAt, &refreshExpiresAt, &realmID)
	if err != nil {
		return domain.TokenSet{}, mapNotFound(err)
	}

	t.AccessTokenExpiresAt = mapNullTimePtr(accessExpiresAt)
	t.RefreshTokenExpiresAt = mapNullTimePtr(refreshExpiresAt)
	t.RealmID = mapNullString(realmID)
	return t, nil
}

func (r *tokensRepo) Upsert(ctx context.Context, qbCompanyID string, t domain.TokenSet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (
			qb_company_id, access_token, refresh_token,
			access_token_expires_at, refresh_token_expires_at, qb_realm_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (qb_company_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			access_token_expires_at = excluded.access_token_expires_at,
			refresh_token_expires_at = excluded.refresh_token_expires_at,
			qb_realm_id = excluded.qb_realm_id,
			updated_at = CURRENT_TIMESTAMP`,
		qbCompanyID,
		t.AccessToken,
		t.RefreshToken,
		mapOptionalTime(t.AccessTokenExpiresAt),
		mapOptionalTime(t.RefreshTokenExpiresAt),
		mapStringNull(t.RealmID),
	)
	return err
}

func (r *tokensRepo) Delete(ctx context.Context, qbCompanyID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE qb_company_id = ?`, qbCompanyID)
	return err
}

func (r *tokensRepo) Exists(ctx context.Context, qbCompanyID string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tokens WHERE qb_company_id = ?)`, qbCompanyID)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
