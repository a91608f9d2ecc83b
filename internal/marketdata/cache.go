package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

// CachingProvider decorates a Provider with a Redis cache of whole responses.
// A nil client disables caching.
type CachingProvider struct {
	inner     Provider
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	loc       *time.Location
	log       zerolog.Logger
}

// NewCachingProvider wraps inner. A non-positive ttl defaults to 5 minutes and
// an empty namespace to "candles".
func NewCachingProvider(rdb *redis.Client, ttl time.Duration, inner Provider, namespace string, loc *time.Location) *CachingProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingProvider{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		loc:       loc,
		log:       utils.Logger("cache"),
	}
}

func (c *CachingProvider) FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	if c.rdb == nil {
		return c.inner.FetchCandles(ctx, symbol, from, to)
	}

	key := c.cacheKey(symbol, from, to)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []candle.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			if c.loc != nil {
				out = candle.InLocation(out, c.loc)
			}
			return out, nil
		}
		c.log.Warn().Str("key", key).Msg("FetchCandles | dropping corrupted cache entry")
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.FetchCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	// Missing data is not cached so a later import is picked up.
	if len(out) == 0 {
		return out, nil
	}
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("FetchCandles | cache write failed")
		}
	}
	return out, nil
}

func (c *CachingProvider) cacheKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", c.namespace, safe(NormalizeSymbol(symbol)), WorkingTimeframe, from.Unix(), to.Unix())
}

func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ":", "_")
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", addr, err)
	}
	return rdb, nil
}
