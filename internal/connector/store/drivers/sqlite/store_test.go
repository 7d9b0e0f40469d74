package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newCompany(qbCompanyID, group string) domain.Company {
	return domain.Company{
		ID:            idx.New().String(),
		QBCompanyID:   qbCompanyID,
		TenantGroupID: group,
		SourceType:    "client",
		SourceID:      "src-" + qbCompanyID,
		DisplayName:   "Company " + qbCompanyID,
		IsActive:      true,
	}
}

func TestCompaniesRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	t.Run("create and get by correlation id", func(t *testing.T) {
		require.NoError(t, st.Companies().Create(ctx, newCompany("company-a", "group-1")))

		got, err := st.Companies().GetByQBCompanyID(ctx, "company-a", "")
		require.NoError(t, err)
		require.Equal(t, "company-a", got.QBCompanyID)
		require.Equal(t, "group-1", got.TenantGroupID)
		require.True(t, got.IsActive)
		require.Empty(t, got.RealmID)
		require.Nil(t, got.ConnectedAt)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get scoped to a tenant group", func(t *testing.T) {
		_, err := st.Companies().GetByQBCompanyID(ctx, "company-a", "group-1")
		require.NoError(t, err)

		_, err = st.Companies().GetByQBCompanyID(ctx, "company-a", "group-2")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("get by source record", func(t *testing.T) {
		got, err := st.Companies().GetBySource(ctx, "client", "src-company-a", "")
		require.NoError(t, err)
		require.Equal(t, "company-a", got.QBCompanyID)

		_, err = st.Companies().GetBySource(ctx, "client", "src-unknown", "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown id is ErrNotFound", func(t *testing.T) {
		_, err := st.Companies().GetByQBCompanyID(ctx, "missing", "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCompaniesList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Companies().Create(ctx, newCompany("company-a", "group-1")))
	require.NoError(t, st.Companies().Create(ctx, newCompany("company-b", "group-2")))

	inactive := newCompany("company-c", "group-1")
	inactive.IsActive = false
	require.NoError(t, st.Companies().Create(ctx, inactive))

	t.Run("unfiltered returns everything", func(t *testing.T) {
		all, err := st.Companies().List(ctx, store.CompanyFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
	})

	t.Run("filter by tenant group", func(t *testing.T) {
		got, err := st.Companies().List(ctx, store.CompanyFilter{TenantGroupID: "group-1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("filter by active", func(t *testing.T) {
		got, err := st.Companies().List(ctx, store.CompanyFilter{
			TenantGroupID: "group-1",
			OnlyActive:    true,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "company-a", got[0].QBCompanyID)
	})
}

func TestConnectionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Companies().Create(ctx, newCompany("company-a", "")))

	connectedAt := time.Now().Round(time.Second)

	t.Run("mark connected sets realm and clears disconnect", func(t *testing.T) {
		err := st.Companies().MarkConnected(ctx, "company-a", "realm-1", domain.EnvironmentSandbox, connectedAt)
		require.NoError(t, err)

		got, err := st.Companies().GetByQBCompanyID(ctx, "company-a", "")
		require.NoError(t, err)
		require.Equal(t, "realm-1", got.RealmID)
		require.Equal(t, domain.EnvironmentSandbox, got.Environment)
		require.NotNil(t, got.ConnectedAt)
		require.Nil(t, got.DisconnectedAt)
		require.True(t, got.Connected())
	})

	t.Run("mark disconnected keeps the realm", func(t *testing.T) {
		err := st.Companies().MarkDisconnected(ctx, "company-a", time.Now())
		require.NoError(t, err)

		got, err := st.Companies().GetByQBCompanyID(ctx, "company-a", "")
		require.NoError(t, err)
		require.Equal(t, "realm-1", got.RealmID)
		require.NotNil(t, got.DisconnectedAt)
	})

	t.Run("reconnect clears the disconnect stamp", func(t *testing.T) {
		err := st.Companies().MarkConnected(ctx, "company-a", "realm-1", domain.EnvironmentSandbox, time.Now())
		require.NoError(t, err)

		got, err := st.Companies().GetByQBCompanyID(ctx, "company-a", "")
		require.NoError(t, err)
		require.Nil(t, got.DisconnectedAt)
	})

	t.Run("marking an unknown company fails", func(t *testing.T) {
		err := st.Companies().MarkConnected(ctx, "missing", "realm-x", domain.EnvironmentSandbox, time.Now())
		require.ErrorIs(t, err, store.ErrNotFound)

		err = st.Companies().MarkDisconnected(ctx, "missing", time.Now())
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTokensRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	exp := time.Now().Add(time.Hour).Round(time.Second)
	tokens := domain.TokenSet{
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		AccessTokenExpiresAt: &exp,
		RealmID:              "realm-1",
	}

	t.Run("upsert then get", func(t *testing.T) {
		require.NoError(t, st.Tokens().Upsert(ctx, "company-a", tokens))

		got, err := st.Tokens().Get(ctx, "company-a")
		require.NoError(t, err)
		require.Equal(t, "access-1", got.AccessToken)
		require.NotNil(t, got.AccessTokenExpiresAt)
		require.Nil(t, got.RefreshTokenExpiresAt)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		updated := tokens
		updated.AccessToken = "access-2"
		require.NoError(t, st.Tokens().Upsert(ctx, "company-a", updated))

		got, err := st.Tokens().Get(ctx, "company-a")
		require.NoError(t, err)
		require.Equal(t, "access-2", got.AccessToken)
	})

	t.Run("exists and delete", func(t *testing.T) {
		ok, err := st.Tokens().Exists(ctx, "company-a")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, st.Tokens().Delete(ctx, "company-a"))

		ok, err = st.Tokens().Exists(ctx, "company-a")
		require.NoError(t, err)
		require.False(t, ok)

		_, err = st.Tokens().Get(ctx, "company-a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	t.Run("error rolls the transaction back", func(t *testing.T) {
		sentinel := context.DeadlineExceeded
		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Companies().Create(ctx, newCompany("company-a", "")); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = st.Companies().GetByQBCompanyID(ctx, "company-a", "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("success commits", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Companies().Create(ctx, newCompany("company-b", ""))
		})
		require.NoError(t, err)

		_, err = st.Companies().GetByQBCompanyID(ctx, "company-b", "")
		require.NoError(t, err)
	})
}
