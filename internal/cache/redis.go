package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

const (
	defaultTTL = 10 * time.Minute
	keyPrefix  = "rec"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func buildKey(scope domain.Scope, k int) string {
	return fmt.Sprintf("%s:strategy:%s:source:%d:actor:%s:k:%d", keyPrefix, scope.Strategy, scope.SourceID, scope.ActorID, k)
}

// Get ranked recommendations from cache
func (c *Cache) Get(ctx context.Context, scope domain.Scope, k int) ([]domain.RankedRecommendation, bool, error) {
	key := buildKey(scope, k)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get recommendations from cache: %w", err)
	}

	var recs []domain.RankedRecommendation
	if err := json.Unmarshal(val, &recs); err != nil {
		return nil, false, fmt.Errorf("unmarshal recommendations %s: %w", key, err)
	}
	return recs, true, nil
}

// Store ranked recommendations in cache
func (c *Cache) Set(ctx context.Context, scope domain.Scope, k int, recs []domain.RankedRecommendation) error {
	val, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	if err := c.client.Set(ctx, buildKey(scope, k), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set recommendations in cache: %w", err)
	}
	return nil
}

// interactionPatterns match every key whose list depends on the interaction
// log. Item-anchored content lists only depend on the catalog.
func interactionPatterns() []string {
	return []string{
		fmt.Sprintf("%s:strategy:%s:*", keyPrefix, domain.StrategyCollaborative),
		fmt.Sprintf("%s:strategy:%s:*", keyPrefix, domain.StrategyHybrid),
		fmt.Sprintf("%s:strategy:%s:source:0:*", keyPrefix, domain.StrategyContent),
	}
}

// ClearInteractionDependent drops every cached list that depends on the
// interaction log.
func (c *Cache) ClearInteractionDependent(ctx context.Context) error {
	for _, pattern := range interactionPatterns() {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
