package model

import (
	"time"

	"cajapos/internal/caja"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is a completed sale recorded against a cash session.
type Venta struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  *string
	CreatedAt    time.Time

	Pagos []VentaPago `gorm:"foreignKey:VentaID"`
}

func (Venta) TableName() string { return "ventas" }

// VentaPago is one row of the sale's payment split.
// Metodo: "efectivo" | "tarjeta" | "transferencia"
// Monto is nullable so that rows written by other systems without an amount
// surface as integrity errors instead of zeros.
type VentaPago struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID   uuid.UUID           `gorm:"type:uuid;index;not null"`
	Metodo    string              `gorm:"type:varchar(20);not null"`
	Monto     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	CreatedAt time.Time
}

func (VentaPago) TableName() string { return "venta_pagos" }

func (p *VentaPago) ToCaja() caja.Transaccion {
	return caja.Transaccion{
		ID:         p.ID,
		VentaID:    p.VentaID,
		MetodoPago: caja.MetodoPago(p.Metodo),
		Monto:      p.Monto,
	}
}

// PagosToCaja converts payment rows into core transactions.
func PagosToCaja(rows []VentaPago) []caja.Transaccion {
	out := make([]caja.Transaccion, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToCaja())
	}
	return out
}
