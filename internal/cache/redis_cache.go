package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// ActivePromotionsKey — ключ снимка активных акций.
const ActivePromotionsKey = "pos:promotions:active"

type promotionRecord struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Active           bool      `json:"active"`
	Kind             string    `json:"kind"`
	TargetCategory   string    `json:"target_category,omitempty"`
	TargetProductIDs []string  `json:"target_product_ids,omitempty"`
	Priority         int       `json:"priority"`
	MinimumItems     int       `json:"minimum_items,omitempty"`
	FixedBundlePrice int64     `json:"fixed_bundle_price,omitempty"`
	DiscountPercent  int       `json:"discount_percent,omitempty"`
	FreeItems        int       `json:"free_items,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RedisPromotionCache хранит снимок акций в Redis в виде JSON.
type RedisPromotionCache struct {
	client *redis.Client
	key    string
}

// NewRedisPromotionCache подключается к Redis.
func NewRedisPromotionCache(addr string, password string, db int) *RedisPromotionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisPromotionCacheFromClient(client)
}

// NewRedisPromotionCacheFromClient оборачивает готовый клиент.
func NewRedisPromotionCacheFromClient(client *redis.Client) *RedisPromotionCache {
	return &RedisPromotionCache{client: client, key: ActivePromotionsKey}
}

func (c *RedisPromotionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPromotionCache) Close() error {
	return c.client.Close()
}

func (c *RedisPromotionCache) Get(ctx context.Context) ([]domain.Promotion, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []promotionRecord
	if err := json.Unmarshal(val, &records); err != nil {
		return nil, false, err
	}
	promotions := make([]domain.Promotion, 0, len(records))
	for _, r := range records {
		promotions = append(promotions, domain.Promotion{
			ID:               r.ID,
			Name:             r.Name,
			Active:           r.Active,
			Kind:             domain.PromotionKind(r.Kind),
			TargetCategory:   r.TargetCategory,
			TargetProductIDs: r.TargetProductIDs,
			Priority:         r.Priority,
			MinimumItems:     r.MinimumItems,
			FixedBundlePrice: domain.Money(r.FixedBundlePrice),
			DiscountPercent:  r.DiscountPercent,
			FreeItems:        r.FreeItems,
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
		})
	}
	return promotions, true, nil
}

func (c *RedisPromotionCache) Set(ctx context.Context, promotions []domain.Promotion, ttl time.Duration) error {
	records := make([]promotionRecord, 0, len(promotions))
	for _, p := range promotions {
		records = append(records, promotionRecord{
			ID:               p.ID,
			Name:             p.Name,
			Active:           p.Active,
			Kind:             string(p.Kind),
			TargetCategory:   p.TargetCategory,
			TargetProductIDs: p.TargetProductIDs,
			Priority:         p.Priority,
			MinimumItems:     p.MinimumItems,
			FixedBundlePrice: int64(p.FixedBundlePrice),
			DiscountPercent:  p.DiscountPercent,
			FreeItems:        p.FreeItems,
			CreatedAt:        p.CreatedAt,
			UpdatedAt:        p.UpdatedAt,
		})
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, payload, ttl).Err()
}

func (c *RedisPromotionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

var _ PromotionCache = (*RedisPromotionCache)(nil)
