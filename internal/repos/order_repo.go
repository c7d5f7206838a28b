package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID             string          `db:"id"`
	OrderID        string          `db:"order_id"`
	Identity       string          `db:"identity"`
	UserID         sql.NullString  `db:"user_id"`
	ContactName    string          `db:"contact_name"`
	ContactEmail   string          `db:"contact_email"`
	ContactPhone   string          `db:"contact_phone"`
	ShipLine1      string          `db:"ship_line1"`
	ShipLine2      string          `db:"ship_line2"`
	ShipCity       string          `db:"ship_city"`
	ShipState      string          `db:"ship_state"`
	ShipPostalCode string          `db:"ship_postal_code"`
	ShipCountry    string          `db:"ship_country"`
	PaymentMethod  string          `db:"payment_method"`
	Notes          string          `db:"notes"`
	Status         string          `db:"status"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	Tax            decimal.Decimal `db:"tax"`
	ShippingCost   decimal.Decimal `db:"shipping_cost"`
	Total          decimal.Decimal `db:"total"`
	ItemCount      int             `db:"item_count"`
	CreatedAt      string          `db:"created_at"`
}

const orderColumns = `id, order_id, identity, user_id,
	contact_name, contact_email, contact_phone,
	ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
	payment_method, notes, status, subtotal, tax, shipping_cost, total, item_count, created_at`

func (r orderRow) order() (domain.Order, error) {
	owner, err := domain.ParseIdentity(r.Identity)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: corrupt owner: %v", r.OrderID, err)
	}
	return domain.Order{
		ID:      r.ID,
		OrderID: r.OrderID,
		Owner:   owner,
		UserID:  r.UserID.String,
		Contact: domain.Contact{Name: r.ContactName, Email: r.ContactEmail, Phone: r.ContactPhone},
		Shipping: domain.Address{
			Line1:      r.ShipLine1,
			Line2:      r.ShipLine2,
			City:       r.ShipCity,
			State:      r.ShipState,
			PostalCode: r.ShipPostalCode,
			Country:    r.ShipCountry,
		},
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
		Status:        domain.OrderStatus(r.Status),
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		ShippingCost:  r.ShippingCost,
		Total:         r.Total,
		ItemCount:     r.ItemCount,
		CreatedAt:     parseTime(r.CreatedAt),
	}, nil
}

// InsertOrder writes the header through ext. CreatedAt is stamped here when unset.
func (r *OrderRepo) InsertOrder(ctx context.Context, ext sqlx.ExtContext, o *domain.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = parseTime(now())
	}
	var userID sql.NullString
	if o.UserID != "" {
		userID = sql.NullString{String: o.UserID, Valid: true}
	}
	_, err := ext.ExecContext(ctx, ext.Rebind(`
		INSERT INTO orders(`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		o.ID, o.OrderID, o.Owner.String(), userID,
		o.Contact.Name, o.Contact.Email, o.Contact.Phone,
		o.Shipping.Line1, o.Shipping.Line2, o.Shipping.City, o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
		o.PaymentMethod, o.Notes, string(o.Status),
		o.Subtotal, o.Tax, o.ShippingCost, o.Total, o.ItemCount,
		o.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.OrderID, err)
	}
	return nil
}

// InsertLines writes the lines of orderID (the internal id) in slice order.
func (r *OrderRepo) InsertLines(ctx context.Context, ext sqlx.ExtContext, orderID string, lines []domain.OrderLine) error {
	q := ext.Rebind(`
		INSERT INTO order_lines(order_id, line_no, product_id, product_name, quantity, unit_price, line_subtotal)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i, l := range lines {
		if _, err := ext.ExecContext(ctx, q, orderID, i, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.LineSubtotal); err != nil {
			return fmt.Errorf("insert order line %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// GetByPublicID loads the header and its lines, or domain.ErrNotFound.
func (r *OrderRepo) GetByPublicID(ctx context.Context, publicID string) (domain.Order, []domain.OrderLine, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`), publicID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, nil, fmt.Errorf("order %s: %w", publicID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("get order %s: %w", publicID, err)
	}

	var lines []domain.OrderLine
	err = r.db.SelectContext(ctx, &lines, r.db.Rebind(`
		SELECT order_id, product_id, product_name, quantity, unit_price, line_subtotal
		FROM order_lines
		WHERE order_id = ?
		ORDER BY line_no
	`), row.ID)
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("get order lines %s: %w", publicID, err)
	}
	o, err := row.order()
	if err != nil {
		return domain.Order{}, nil, err
	}
	return o, lines, nil
}

// ListByOwner returns the identity's orders, newest first.
func (r *OrderRepo) ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE identity = ?
		ORDER BY created_at DESC
	`), owner.String())
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return toOrders(rows)
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list latest orders: %w", err)
	}
	return toOrders(rows)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, publicID string, status domain.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE orders SET status = ? WHERE order_id = ?`), string(status), publicID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s: %w", publicID, domain.ErrNotFound)
	}
	return nil
}

func toOrders(rows []orderRow) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
