package repos_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func TestCartRepo_SaveGetDelete(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	r := repos.NewCartRepo(db)
	alice := domain.UserIdentity("u-alice")

	_, ok, err := r.Get(ctx, alice, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Save(ctx, alice, "p1", 3))
	require.NoError(t, r.Save(ctx, alice, "p1", 5))
	require.NoError(t, r.Save(ctx, alice, "p2", 1))

	line, ok, err := r.Get(ctx, alice, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, alice, line.Owner)
	assert.False(t, line.AddedAt.IsZero())

	lines, err := r.Lines(ctx, alice)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)

	require.NoError(t, r.Delete(ctx, alice, "p1"))
	require.NoError(t, r.Delete(ctx, alice, "p1"))
	lines, err = r.Lines(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.ErrorIs(t, r.Save(ctx, alice, "p3", 0), domain.ErrInvalidQuantity)
}

func TestCartRepo_ClearIsScopedToIdentity(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	r := repos.NewCartRepo(db)
	alice := domain.UserIdentity("u-alice")
	anon := domain.SessionIdentity("s-1")

	require.NoError(t, r.Save(ctx, alice, "p1", 1))
	require.NoError(t, r.Save(ctx, anon, "p1", 2))

	require.NoError(t, r.Clear(ctx, alice))
	require.NoError(t, r.Clear(ctx, alice))

	lines, err := r.Lines(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, lines)
	lines, err = r.Lines(ctx, anon)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartRepo_ConsumeTxFollowsTransaction(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	r := repos.NewCartRepo(db)
	anon := domain.SessionIdentity("s-1")
	require.NoError(t, r.Save(ctx, anon, "p1", 2))
	lines, err := r.Lines(ctx, anon)
	require.NoError(t, err)

	err = repos.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := r.ConsumeTx(ctx, tx, anon, lines); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	lines, err = r.Lines(ctx, anon)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartRepo_ConsumeTxRejectsChangedCart(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	r := repos.NewCartRepo(db)
	anon := domain.SessionIdentity("s-1")
	require.NoError(t, r.Save(ctx, anon, "p1", 2))
	require.NoError(t, r.Save(ctx, anon, "p2", 1))
	loaded, err := r.Lines(ctx, anon)
	require.NoError(t, err)

	t.Run("quantity moved", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, anon, "p1", 3))
		err := repos.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			return r.ConsumeTx(ctx, tx, anon, loaded)
		})
		require.ErrorIs(t, err, domain.ErrCartChanged)
		lines, err := r.Lines(ctx, anon)
		require.NoError(t, err)
		assert.Len(t, lines, 2)
	})

	t.Run("already consumed", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, anon, "p1", 2))
		require.NoError(t, repos.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			return r.ConsumeTx(ctx, tx, anon, loaded)
		}))
		err := repos.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			return r.ConsumeTx(ctx, tx, anon, loaded)
		})
		require.ErrorIs(t, err, domain.ErrCartChanged)
	})
}
