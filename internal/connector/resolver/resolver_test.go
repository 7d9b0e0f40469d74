package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/store/drivers/sqlite"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
	"github.com/ledgerlink/qbconnect/pkg/idx"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewStatic([]string{"company-a", " company-b ", "", "company-c"})

	all, err := r.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"company-a", "company-b", "company-c"}, all)

	has, err := r.Has(ctx, "company-b")
	require.NoError(t, err)
	require.True(t, has)

	has, err = r.Has(ctx, "company-x")
	require.NoError(t, err)
	require.False(t, has)
}

func TestEnv(t *testing.T) {
	ctx := context.Background()

	r := NewEnv()
	r.Var = "QB_COMPANIES_TEST"
	t.Setenv(r.Var, "company-a, company-b")

	all, err := r.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"company-a", "company-b"}, all)

	// The variable is re-read on every call.
	t.Setenv(r.Var, "company-c")

	all, err = r.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"company-c"}, all)

	has, err := r.Has(ctx, "company-a")
	require.NoError(t, err)
	require.False(t, has)

	has, err = r.Has(ctx, "company-c")
	require.NoError(t, err)
	require.True(t, has)
}

func seedCompany(t *testing.T, st store.Store, qbCompanyID, group string, active bool) {
	t.Helper()

	now := time.Now()
	require.NoError(t, st.Companies().Create(context.Background(), domain.Company{
		ID:            idx.New().String(),
		QBCompanyID:   qbCompanyID,
		TenantGroupID: group,
		SourceType:    "client",
		SourceID:      "src-" + qbCompanyID,
		IsActive:      active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
}

func TestRecord(t *testing.T) {
	t.Parallel()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	seedCompany(t, st, "company-a", "group-1", true)
	seedCompany(t, st, "company-b", "group-1", false)
	seedCompany(t, st, "company-c", "group-2", true)

	t.Run("only active bindings resolve", func(t *testing.T) {
		r := NewRecord(st, true)

		all, err := r.All(context.Background())
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"company-a", "company-c"}, all)

		has, err := r.Has(context.Background(), "company-b")
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("inactive bindings resolve when allowed", func(t *testing.T) {
		r := NewRecord(st, false)

		all, err := r.All(context.Background())
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"company-a", "company-b", "company-c"}, all)
	})

	t.Run("tenant group scopes resolution", func(t *testing.T) {
		r := NewRecord(st, true)
		ctx := tenant.WithGroup(context.Background(), "group-1")

		all, err := r.All(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"company-a"}, all)

		has, err := r.Has(ctx, "company-c")
		require.NoError(t, err)
		require.False(t, has)
	})
}

func TestChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := NewChain(
		NewStatic([]string{"company-a", "company-b"}),
		NewStatic([]string{"company-b", "company-c"}),
	)

	t.Run("all is the deduplicated union in first-seen order", func(t *testing.T) {
		all, err := chain.All(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"company-a", "company-b", "company-c"}, all)
	})

	t.Run("has consults members in order", func(t *testing.T) {
		has, err := chain.Has(ctx, "company-c")
		require.NoError(t, err)
		require.True(t, has)

		has, err = chain.Has(ctx, "company-x")
		require.NoError(t, err)
		require.False(t, has)
	})
}

func TestFactory(t *testing.T) {
	t.Parallel()

	t.Run("builds configured drivers", func(t *testing.T) {
		r, err := New("static", Config{Companies: []string{"company-a"}})
		require.NoError(t, err)
		require.IsType(t, &Static{}, r)

		r, err = New("chain", Config{
			Companies: []string{"company-a"},
			ChainOf:   []string{"static", "env"},
		})
		require.NoError(t, err)
		require.IsType(t, &Chain{}, r)
	})

	t.Run("unknown driver fails at startup", func(t *testing.T) {
		_, err := New("ldap", Config{})
		require.Error(t, err)
	})

	t.Run("record without store fails", func(t *testing.T) {
		_, err := New("record", Config{})
		require.Error(t, err)
	})

	t.Run("chain cannot contain itself", func(t *testing.T) {
		_, err := New("chain", Config{ChainOf: []string{"static", "chain"}})
		require.Error(t, err)
	})
}
