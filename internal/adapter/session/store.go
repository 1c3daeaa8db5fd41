package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layouts. Values are JSON blobs opaque to this package.
const (
	keyOrderStatus = "order_status:%s"
	keySession     = "session:%d"
)

// ErrMiss is returned when a key is absent or the store is disabled.
var ErrMiss = errors.New("cache miss")

// Store is a TTL key-value convenience cache. No correctness invariant may
// depend on it: with a nil client every operation degrades to a miss/no-op.
type Store struct {
	client    *redis.Client
	statusTTL time.Duration
}

// New builds the store. addr may be empty, which disables caching entirely.
func New(addr string, statusTTL time.Duration) *Store {
	if addr == "" {
		return &Store{statusTTL: statusTTL}
	}
	return &Store{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		statusTTL: statusTTL,
	}
}

// Enabled reports whether a backing client is configured.
func (s *Store) Enabled() bool {
	return s.client != nil
}

// Close releases the redis connection.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// OrderStatus returns the cached status payload for an invoice.
func (s *Store) OrderStatus(ctx context.Context, invoiceID string) ([]byte, error) {
	if s.client == nil {
		return nil, ErrMiss
	}
	data, err := s.client.Get(ctx, fmt.Sprintf(keyOrderStatus, invoiceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

// SetOrderStatus caches the status payload for an invoice with the status TTL.
func (s *Store) SetOrderStatus(ctx context.Context, invoiceID string, payload []byte) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, fmt.Sprintf(keyOrderStatus, invoiceID), payload, s.statusTTL).Err()
}

// DropOrderStatus invalidates the cached status, used after a transition.
func (s *Store) DropOrderStatus(ctx context.Context, invoiceID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, fmt.Sprintf(keyOrderStatus, invoiceID)).Err()
}

// Session returns the opaque navigation state blob for a user.
func (s *Store) Session(ctx context.Context, userID int64) ([]byte, error) {
	if s.client == nil {
		return nil, ErrMiss
	}
	data, err := s.client.Get(ctx, fmt.Sprintf(keySession, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

// SetSession stores the navigation state blob with the provided TTL.
func (s *Store) SetSession(ctx context.Context, userID int64, payload []byte, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, fmt.Sprintf(keySession, userID), payload, ttl).Err()
}

// HealthCheck pings redis; a disabled store is always healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
