package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

// Notifier is told about committed orders. Implementations must not block checkout;
// callers log a returned error and carry on.
type Notifier interface {
	OrderPlaced(ctx context.Context, o domain.Order) error
}

// Receipt is the payload handed to receipt/email dispatchers.
type Receipt struct {
	OrderID   string `json:"order_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Total     string `json:"total"`
	ItemCount int    `json:"item_count"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func ReceiptFor(o domain.Order) Receipt {
	return Receipt{
		OrderID:   o.OrderID,
		Email:     o.Contact.Email,
		Name:      o.Contact.Name,
		Total:     o.Total.StringFixed(2),
		ItemCount: o.ItemCount,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// LogNotifier writes the receipt to the log. Used when no dispatcher is configured.
type LogNotifier struct{ Log zerolog.Logger }

func (n LogNotifier) OrderPlaced(_ context.Context, o domain.Order) error {
	r := ReceiptFor(o)
	n.Log.Info().
		Str("kind", "notify").
		Str("order_id", r.OrderID).
		Str("email", r.Email).
		Str("total", r.Total).
		Int("items", r.ItemCount).
		Msg("order_placed")
	return nil
}

// DefaultChannel is where RedisNotifier publishes receipts.
const DefaultChannel = "sf:orders:placed"

// RedisNotifier publishes receipts on a pub/sub channel for the mailer to pick up.
type RedisNotifier struct {
	client  redis.Cmdable
	channel string
}

func NewRedisNotifier(client redis.Cmdable, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) OrderPlaced(ctx context.Context, o domain.Order) error {
	payload, err := json.Marshal(ReceiptFor(o))
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish receipt %s: %w", o.OrderID, err)
	}
	return nil
}
