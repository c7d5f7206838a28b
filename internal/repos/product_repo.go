package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// ProductRepo is the catalog collaborator: product snapshots and the stock column.
type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, name, description, price, quantity, active`

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// GetMany returns the products that exist, keyed by id. Missing ids are simply absent.
func (r *ProductRepo) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []domain.Product
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// List returns every product, active or not, for the admin inventory page.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := r.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY name`)
	return rows, err
}

// Upsert creates or replaces a product row.
func (r *ProductRepo) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO products(id, name, description, price, quantity, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  name = excluded.name,
		  description = excluded.description,
		  price = excluded.price,
		  quantity = excluded.quantity,
		  active = excluded.active,
		  updated_at = excluded.created_at
	`), p.ID, p.Name, p.Description, p.Price, p.Quantity, boolInt(p.Active), now())
	return err
}

// SetStock overwrites the available quantity.
func (r *ProductRepo) SetStock(ctx context.Context, id string, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE products SET quantity = ?, updated_at = ? WHERE id = ?`), qty, now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return nil
}

func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE products SET active = ?, updated_at = ? WHERE id = ?`), boolInt(active), now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return nil
}

// DecrementStock subtracts by units in one conditional UPDATE, so the row
// lock taken by the update is the oversell guard. When the guard trips it
// reports the quantity that was actually there.
func (r *ProductRepo) DecrementStock(ctx context.Context, ext sqlx.ExtContext, id string, by int) error {
	if by <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(`
		UPDATE products
		SET quantity = quantity - ?
		WHERE id = ? AND active = 1 AND quantity >= ?
	`), by, id, by)
	if err != nil {
		return fmt.Errorf("decrement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var p domain.Product
	avail := 0
	err = sqlx.GetContext(ctx, ext, &p, ext.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	switch {
	case err == nil:
		avail = p.Available()
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("decrement %s: %w", id, err)
	}
	return &domain.InsufficientStockError{Violations: []domain.StockViolation{
		{ProductID: id, Name: p.Name, Requested: by, Available: avail},
	}}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
