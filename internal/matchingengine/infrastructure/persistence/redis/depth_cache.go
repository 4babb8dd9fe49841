// Package redis 深度快照的 Redis 缓存
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/cache"
)

// DepthCache 以 (标的, 档位数) 为键缓存深度快照，写入后由撮合命令主动失效
type DepthCache struct {
	cache  *cache.RedisCache
	prefix string
	ttl    time.Duration
}

// NewDepthCache ttl 为 0 时使用 2 秒
func NewDepthCache(c *cache.RedisCache, ttl time.Duration) *DepthCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &DepthCache{cache: c, prefix: "exchange:depth:", ttl: ttl}
}

func (d *DepthCache) Get(ctx context.Context, instrument string, levels int) (*domain.MarketDepth, bool, error) {
	var depth domain.MarketDepth
	ok, err := d.cache.GetJSON(ctx, d.key(instrument, levels), &depth)
	if err != nil || !ok {
		return nil, false, err
	}
	return &depth, true, nil
}

func (d *DepthCache) Set(ctx context.Context, depth *domain.MarketDepth, levels int) error {
	return d.cache.SetJSON(ctx, d.key(depth.Instrument, levels), depth, d.ttl)
}

func (d *DepthCache) Invalidate(ctx context.Context, instrument string) error {
	return d.cache.DeletePattern(ctx, d.prefix+instrument+":*")
}

func (d *DepthCache) key(instrument string, levels int) string {
	return fmt.Sprintf("%s%s:%d", d.prefix, instrument, levels)
}
