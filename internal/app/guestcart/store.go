package guestcart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Item is one line of an anonymous cart. Prices are captured at add
// time; the authenticated cart re-prices from the catalog on merge.
type Item struct {
	ProductID     uint                 `json:"product_id"`
	ProductName   string               `json:"product_name"`
	ImageURL      string               `json:"image_url,omitempty"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     float64              `json:"unit_price"`
	Customization *model.Customization `json:"customization,omitempty"`
}

// Cart is the stored value for one guest token.
type Cart struct {
	Items []Item `json:"items"`
}

// Count returns the total quantity across lines.
func (c *Cart) Count() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the cart total at captured prices.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Store persists anonymous carts keyed by guest token. Get returns an
// empty cart for unknown tokens; Delete on a missing token is a no-op.
type Store interface {
	Get(ctx context.Context, token string) (*Cart, error)
	Save(ctx context.Context, token string, cart *Cart) error
	Delete(ctx context.Context, token string) error
}

const redisKeyPrefix = "guestcart:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by Redis. Every save refreshes
// the TTL, so active carts never expire mid-session.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, token string) (*Cart, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return &Cart{}, nil
	}
	if err != nil {
		logger.Error("Failed to load guest cart", err, map[string]interface{}{
			"token": token,
		})
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		logger.Error("Failed to decode guest cart", err, map[string]interface{}{
			"token": token,
		})
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &cart, nil
}

func (s *redisStore) Save(ctx context.Context, token string, cart *Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+token, data, s.ttl).Err(); err != nil {
		logger.Error("Failed to save guest cart", err, map[string]interface{}{
			"token": token,
		})
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		logger.Error("Failed to delete guest cart", err, map[string]interface{}{
			"token": token,
		})
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

type memoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

// NewMemoryStore returns an in-process Store for tests and local runs
// without Redis.
func NewMemoryStore() Store {
	return &memoryStore{carts: make(map[string]*Cart)}
}

func (s *memoryStore) Get(_ context.Context, token string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[token]
	if !ok {
		return &Cart{}, nil
	}

	// Copy so callers never mutate the stored cart directly.
	items := make([]Item, len(cart.Items))
	copy(items, cart.Items)
	return &Cart{Items: items}, nil
}

func (s *memoryStore) Save(_ context.Context, token string, cart *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, len(cart.Items))
	copy(items, cart.Items)
	s.carts[token] = &Cart{Items: items}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, token)
	return nil
}
