package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// CartRepo is the durable cart backend: one row per (identity, product).
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

type cartLineRow struct {
	Identity  string `db:"identity"`
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
	AddedAt   string `db:"added_at"`
}

func (r cartLineRow) line(owner domain.Identity) domain.CartLine {
	return domain.CartLine{
		Owner:     owner,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		AddedAt:   parseTime(r.AddedAt),
	}
}

// Lines returns the identity's lines in the order they were first added.
func (r *CartRepo) Lines(ctx context.Context, owner domain.Identity) ([]domain.CartLine, error) {
	var rows []cartLineRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT identity, product_id, quantity, added_at
		FROM cart_lines
		WHERE identity = ?
		ORDER BY added_at, product_id
	`), owner.String())
	if err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	out := make([]domain.CartLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.line(owner))
	}
	return out, nil
}

func (r *CartRepo) Get(ctx context.Context, owner domain.Identity, productID string) (domain.CartLine, bool, error) {
	var row cartLineRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT identity, product_id, quantity, added_at
		FROM cart_lines
		WHERE identity = ? AND product_id = ?
	`), owner.String(), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, false, nil
	}
	if err != nil {
		return domain.CartLine{}, false, fmt.Errorf("cart line: %w", err)
	}
	return row.line(owner), true, nil
}

// Save sets the line's quantity, creating it if needed. added_at is kept on update.
func (r *CartRepo) Save(ctx context.Context, owner domain.Identity, productID string, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	ts := now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO cart_lines(identity, product_id, quantity, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity, product_id) DO UPDATE SET
		  quantity = excluded.quantity,
		  updated_at = excluded.updated_at
	`), owner.String(), productID, qty, ts, ts)
	if err != nil {
		return fmt.Errorf("save cart line: %w", err)
	}
	return nil
}

func (r *CartRepo) Delete(ctx context.Context, owner domain.Identity, productID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cart_lines WHERE identity = ? AND product_id = ?`),
		owner.String(), productID)
	return err
}

func (r *CartRepo) Clear(ctx context.Context, owner domain.Identity) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cart_lines WHERE identity = ?`), owner.String())
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ConsumeTx deletes exactly the given lines through ext. If any of them is
// gone or its quantity moved, it returns domain.ErrCartChanged and the caller
// must roll back.
func (r *CartRepo) ConsumeTx(ctx context.Context, ext sqlx.ExtContext, owner domain.Identity, lines []domain.CartLine) error {
	q := ext.Rebind(`DELETE FROM cart_lines WHERE identity = ? AND product_id = ? AND quantity = ?`)
	var consumed int64
	for _, l := range lines {
		res, err := ext.ExecContext(ctx, q, owner.String(), l.ProductID, l.Quantity)
		if err != nil {
			return fmt.Errorf("consume cart line %s: %w", l.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("consume cart line %s: %w", l.ProductID, err)
		}
		consumed += n
	}
	if consumed != int64(len(lines)) {
		return domain.ErrCartChanged
	}
	return nil
}
