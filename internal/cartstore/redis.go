package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const (
	keyNamespace = "sf"
	checkoutTTL  = 30 * time.Second
)

// releaseLock deletes the lock only while it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps each cart in one hash keyed by identity; fields are
// product ids. The whole hash expires TTL after the last write.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

type entry struct {
	Quantity int   `json:"q"`
	AddedAt  int64 `json:"a"`
}

func cartKey(owner domain.Identity) string {
	return fmt.Sprintf("%s:cart:%s", keyNamespace, owner.String())
}

func checkoutKey(owner domain.Identity) string {
	return cartKey(owner) + ":checkout"
}

func decode(owner domain.Identity, productID, raw string) (domain.CartLine, error) {
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.CartLine{}, fmt.Errorf("decode cart line %s: %w", productID, err)
	}
	return domain.CartLine{
		Owner:     owner,
		ProductID: productID,
		Quantity:  e.Quantity,
		AddedAt:   time.Unix(0, e.AddedAt).UTC(),
	}, nil
}

func (s *RedisStore) Lines(ctx context.Context, owner domain.Identity) ([]domain.CartLine, error) {
	all, err := s.client.HGetAll(ctx, cartKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	out := make([]domain.CartLine, 0, len(all))
	for pid, raw := range all {
		line, err := decode(owner, pid, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, owner domain.Identity, productID string) (domain.CartLine, bool, error) {
	raw, err := s.client.HGet(ctx, cartKey(owner), productID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.CartLine{}, false, nil
	}
	if err != nil {
		return domain.CartLine{}, false, fmt.Errorf("redis hget failed: %w", err)
	}
	line, err := decode(owner, productID, raw)
	if err != nil {
		return domain.CartLine{}, false, err
	}
	return line, true, nil
}

// Save sets the quantity, keeping the original added_at, and refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, owner domain.Identity, productID string, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	e := entry{Quantity: qty, AddedAt: time.Now().UTC().UnixNano()}
	if cur, ok, err := s.Get(ctx, owner, productID); err != nil {
		return err
	} else if ok {
		e.AddedAt = cur.AddedAt.UnixNano()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cart line failed: %w", err)
	}

	key := cartKey(owner)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, productID, string(raw))
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner domain.Identity, productID string) error {
	if err := s.client.HDel(ctx, cartKey(owner), productID).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, owner domain.Identity) error {
	if err := s.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// LockCheckout marks the owner's cart as being checked out. A second caller
// gets domain.ErrCheckoutInProgress until release runs or the lock expires.
func (s *RedisStore) LockCheckout(ctx context.Context, owner domain.Identity) (release func(), err error) {
	key := checkoutKey(owner)
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, checkoutTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return nil, domain.ErrCheckoutInProgress
	}
	return func() {
		_ = releaseLock.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}, nil
}
