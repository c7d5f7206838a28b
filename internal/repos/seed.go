package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedDemo inserts demo products and users. Safe to run on every start.
func SeedDemo(ctx context.Context, db *sqlx.DB) error {
	ts := now()
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		products := []struct {
			ID, Name, Desc, Price string
			Qty                   int
		}{
			{"gbc-001", "Game Boy Color", "Handheld console", "129.99", 9},
			{"nes-001", "NES Console", "Classic 8-bit console", "199.00", 5},
			{"snes-001", "Super Nintendo (SNES) Console", "Classic 16-bit SNES console with controller", "199.00", 10},
			{"radio-001", "Philco 1939", "Vintage vacuum tube radio", "349.50", 2},
			{"radio-zenith-500", "Zenith Royal 500 Transistor Radio", "Iconic vintage pocket radio", "89.00", 5},
		}
		for _, p := range products {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO products(id, name, description, price, quantity, active, created_at)
				VALUES (?, ?, ?, ?, ?, 1, ?)
				ON CONFLICT(id) DO NOTHING
			`), p.ID, p.Name, p.Desc, p.Price, p.Qty, ts); err != nil {
				return err
			}
		}

		users := []struct{ ID, Email, Name, Role string }{
			{"u-alice", "alice@storefront.test", "Alice", "USER"},
			{"u-bob", "bob@storefront.test", "Bob", "USER"},
			{"u-admin", "admin@storefront.test", "Admin", "ADMIN"},
		}
		for _, u := range users {
			hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO users(id, email, name, password_hash, role, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(email) DO NOTHING
			`), u.ID, u.Email, u.Name, string(hash), u.Role, ts); err != nil {
				return err
			}
		}
		return nil
	})
}
