package repos_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := repos.OpenDB(ctx, repos.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Migrate(ctx, db))
	return db
}

func addProduct(t *testing.T, db *sqlx.DB, id, price string, qty int) {
	t.Helper()
	err := repos.NewProductRepo(db).Upsert(context.Background(), domain.Product{
		ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Quantity: qty, Active: true,
	})
	require.NoError(t, err)
}
