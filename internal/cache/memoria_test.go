package cache_test

import (
	"context"
	"testing"
	"time"

	"cajapos/internal/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoria_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoria(time.Minute)
	id := uuid.New()

	_, ok := c.Get(ctx, id)
	assert.False(t, ok)

	c.Set(ctx, id, []byte(`{"estado":"abierta"}`))
	got, ok := c.Get(ctx, id)
	require.True(t, ok)
	assert.JSONEq(t, `{"estado":"abierta"}`, string(got))

	// other sessions are unaffected
	_, ok = c.Get(ctx, uuid.New())
	assert.False(t, ok)

	c.Invalidate(ctx, id)
	_, ok = c.Get(ctx, id)
	assert.False(t, ok)
}

func TestMemoria_Expira(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoria(20 * time.Millisecond)
	id := uuid.New()

	c.Set(ctx, id, []byte("x"))
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get(ctx, id)
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c cache.ReporteCache = cache.Noop{}
	id := uuid.New()

	c.Set(ctx, id, []byte("x"))
	_, ok := c.Get(ctx, id)
	assert.False(t, ok)
}
