package cache

import (
	"context"
	"errors"
	"time"

	"cajapos/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
	cb  *infra.CircuitBreaker
}

// NewRedis stores reports in Redis. Reads and writes go through cb so that a
// Redis outage degrades to recomputing reports; a nil cb gets the defaults.
func NewRedis(rdb *redis.Client, ttl time.Duration, cb *infra.CircuitBreaker) ReporteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig("redis-reportes"))
	}
	return &redisCache{rdb: rdb, ttl: ttl, cb: cb}
}

func (c *redisCache) Get(ctx context.Context, sesionID uuid.UUID) ([]byte, bool) {
	var b []byte
	err := c.cb.Execute(func() error {
		v, err := c.rdb.Get(ctx, key(sesionID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		b = v
		return err
	})
	if err != nil {
		if !errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Err(err).Str("sesion_caja_id", sesionID.String()).Msg("reporte cache get failed")
		}
		return nil, false
	}
	return b, b != nil
}

// Set is best effort; a failed write only costs a recomputation later.
func (c *redisCache) Set(ctx context.Context, sesionID uuid.UUID, payload []byte) {
	err := c.cb.Execute(func() error {
		return c.rdb.Set(ctx, key(sesionID), payload, c.ttl).Err()
	})
	if err != nil && !errors.Is(err, infra.ErrCircuitOpen) {
		log.Warn().Err(err).Str("sesion_caja_id", sesionID.String()).Msg("reporte cache set failed")
	}
}

// Invalidate always reaches Redis, even with the breaker open: a skipped
// delete would leave a stale report behind once Redis is back.
func (c *redisCache) Invalidate(ctx context.Context, sesionID uuid.UUID) {
	if err := c.rdb.Del(ctx, key(sesionID)).Err(); err != nil {
		log.Error().Err(err).Str("sesion_caja_id", sesionID.String()).Msg("reporte cache invalidation failed")
	}
}
