package model

import (
	"time"

	"cajapos/internal/caja"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SesionCaja represents the lifecycle of a cash register session.
// Estado: "abierta" | "cerrada"
type SesionCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmpleadoID   *uuid.UUID      `gorm:"type:uuid"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado       string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	// Final figures are only written on close.
	MontoFinalEfectivo      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoFinalTarjeta       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoFinalTransferencia *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// MontoContado is the manual cash count declared at close.
	MontoContado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	OpenedAt     time.Time        `gorm:"not null"`
	ClosedAt     *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable manual cash movement.
// Tipo: "ingreso" | "retiro". Monto is stored positive; the sign comes from Tipo.
// Movements are NEVER modified or deleted.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string          `gorm:"not null"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// ToCaja converts the row into the core type. Unknown Estado values are kept
// verbatim so that the core rejects them instead of guessing.
func (s *SesionCaja) ToCaja() caja.Sesion {
	return caja.Sesion{
		ID:                      s.ID,
		UsuarioID:               s.UsuarioID,
		EmpleadoID:              s.EmpleadoID,
		MontoInicial:            s.MontoInicial,
		Estado:                  caja.Estado(s.Estado),
		OpenedAt:                s.OpenedAt,
		ClosedAt:                s.ClosedAt,
		MontoFinalEfectivo:      s.MontoFinalEfectivo,
		MontoFinalTarjeta:       s.MontoFinalTarjeta,
		MontoFinalTransferencia: s.MontoFinalTransferencia,
	}
}

// SesionFromCaja builds a row from a core session.
func SesionFromCaja(s caja.Sesion) *SesionCaja {
	return &SesionCaja{
		ID:                      s.ID,
		UsuarioID:               s.UsuarioID,
		EmpleadoID:              s.EmpleadoID,
		MontoInicial:            s.MontoInicial,
		Estado:                  string(s.Estado),
		OpenedAt:                s.OpenedAt,
		ClosedAt:                s.ClosedAt,
		MontoFinalEfectivo:      s.MontoFinalEfectivo,
		MontoFinalTarjeta:       s.MontoFinalTarjeta,
		MontoFinalTransferencia: s.MontoFinalTransferencia,
	}
}

func (m *MovimientoCaja) ToCaja() caja.Movimiento {
	return caja.Movimiento{
		ID:          m.ID,
		SesionID:    m.SesionCajaID,
		Tipo:        caja.TipoMovimiento(m.Tipo),
		Monto:       m.Monto,
		Descripcion: m.Descripcion,
		Fecha:       m.CreatedAt,
	}
}

func MovimientoFromCaja(m caja.Movimiento) *MovimientoCaja {
	return &MovimientoCaja{
		ID:           m.ID,
		SesionCajaID: m.SesionID,
		Tipo:         string(m.Tipo),
		Monto:        m.Monto,
		Descripcion:  m.Descripcion,
		CreatedAt:    m.Fecha,
	}
}

// MovimientosToCaja converts a slice of rows.
func MovimientosToCaja(rows []MovimientoCaja) []caja.Movimiento {
	out := make([]caja.Movimiento, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToCaja())
	}
	return out
}
