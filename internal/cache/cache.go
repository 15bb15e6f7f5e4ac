// Package cache stores serialized cash-session reports between writes.
// Every mutation of a session (movement, sale, close) must call Invalidate
// for that session; readers fall back to recomputing from the database.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReporteCache is implemented by Redis (shared across replicas) and by an
// in-process store for single-node deployments and tests.
type ReporteCache interface {
	Get(ctx context.Context, sesionID uuid.UUID) ([]byte, bool)
	Set(ctx context.Context, sesionID uuid.UUID, payload []byte)
	Invalidate(ctx context.Context, sesionID uuid.UUID)
}

const DefaultTTL = 5 * time.Minute

func key(sesionID uuid.UUID) string { return "caja:reporte:" + sesionID.String() }

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, uuid.UUID, []byte) {}
func (Noop) Invalidate(context.Context, uuid.UUID) {}
