package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type memoriaCache struct {
	c *gocache.Cache
}

// NewMemoria returns an in-process cache. Entries expire after ttl and are
// swept every 2*ttl.
func NewMemoria(ttl time.Duration) ReporteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoriaCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *memoriaCache) Get(_ context.Context, sesionID uuid.UUID) ([]byte, bool) {
	v, ok := m.c.Get(key(sesionID))
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *memoriaCache) Set(_ context.Context, sesionID uuid.UUID, payload []byte) {
	m.c.SetDefault(key(sesionID), payload)
}

func (m *memoriaCache) Invalidate(_ context.Context, sesionID uuid.UUID) {
	m.c.Delete(key(sesionID))
}
