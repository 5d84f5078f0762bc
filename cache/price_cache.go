package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pricepilot/config"
	"pricepilot/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PriceCache keeps the most recent observed price per product in Redis so
// dashboard reads skip the history table. All methods are nil-safe: a nil
// cache (Redis not configured) silently does nothing.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// LatestPrice is the cached snapshot for one product.
type LatestPrice struct {
	ProductID  uuid.UUID `json:"product_id"`
	Platform   string    `json:"platform"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	CapturedAt time.Time `json:"captured_at"`
}

// New connects to Redis. Returns nil (cache disabled) when addr is empty.
func New(cfg config.RedisConfig) (*PriceCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &PriceCache{client: client, ttl: cfg.TTL}, nil
}

// SetLatest stores the most recent price for a product with the cache TTL.
func (c *PriceCache) SetLatest(ctx context.Context, record *models.PriceRecord) error {
	if c == nil {
		return nil
	}

	snapshot := LatestPrice{
		ProductID:  record.ProductID,
		Platform:   record.Platform,
		Price:      record.Price,
		Currency:   record.Currency,
		CapturedAt: record.CapturedAt,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, latestKey(record.ProductID), data, c.ttl).Err()
}

// GetLatest returns the cached latest price, or (nil, nil) on a miss.
func (c *PriceCache) GetLatest(ctx context.Context, productID uuid.UUID) (*LatestPrice, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, latestKey(productID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snapshot LatestPrice
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// Close shuts the Redis connection down.
func (c *PriceCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func latestKey(productID uuid.UUID) string {
	return fmt.Sprintf("latest:%s", productID)
}
