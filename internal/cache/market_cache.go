package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tripdesk/internal/domain"
)

const marketRateTTL = 15 * time.Minute

// MarketCache fronts the market_intelligence table with redis. A nil
// *MarketCache is valid and behaves as a permanent miss, so callers
// don't branch on whether redis is configured.
type MarketCache struct {
	rdb *redis.Client
}

func NewMarketCache(redisURL string) (*MarketCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &MarketCache{rdb: redis.NewClient(opts)}, nil
}

func marketKey(serviceType domain.ServiceType, location string) string {
	return fmt.Sprintf("market:%s:%s", serviceType, location)
}

func (c *MarketCache) Get(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, marketKey(serviceType, location)).Bytes()
	if err != nil {
		return nil, false
	}
	var mi domain.MarketIntelligence
	if err := json.Unmarshal(raw, &mi); err != nil {
		return nil, false
	}
	return &mi, true
}

func (c *MarketCache) Set(ctx context.Context, mi *domain.MarketIntelligence) {
	if c == nil || c.rdb == nil || mi == nil {
		return
	}
	raw, err := json.Marshal(mi)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, marketKey(mi.ServiceType, mi.Location), raw, marketRateTTL).Err()
}
