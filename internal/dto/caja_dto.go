package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial MontoTexto `json:"monto_inicial" validate:"required"`
	EmpleadoID   *string    `json:"empleado_id"   validate:"omitempty,uuid"`
}

// MovimientoRequest registers a manual ingreso / retiro. When SesionCajaID is
// empty the caller's open session is used.
type MovimientoRequest struct {
	SesionCajaID string     `json:"sesion_caja_id" validate:"omitempty,uuid"`
	Tipo         string     `json:"tipo"           validate:"required"`
	Monto        MontoTexto `json:"monto"          validate:"required"`
	Descripcion  string     `json:"descripcion"    validate:"required"`
}

// CerrarCajaRequest carries the manual cash count. When SesionCajaID is empty
// the caller's open session is closed.
type CerrarCajaRequest struct {
	SesionCajaID   string     `json:"sesion_caja_id"  validate:"omitempty,uuid"`
	ConteoEfectivo MontoTexto `json:"conteo_efectivo" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MontosPorMetodo struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Tarjeta       decimal.Decimal `json:"tarjeta"`
	Transferencia decimal.Decimal `json:"transferencia"`
	Total         decimal.Decimal `json:"total"`
}

type MovimientoResponse struct {
	ID           string          `json:"id"`
	SesionCajaID string          `json:"sesion_caja_id"`
	Tipo         string          `json:"tipo"`
	Monto        decimal.Decimal `json:"monto"`
	Descripcion  string          `json:"descripcion"`
	Fecha        string          `json:"fecha"`
}

type ReporteCajaResponse struct {
	SesionCajaID string          `json:"sesion_caja_id"`
	UsuarioID    string          `json:"usuario_id"`
	EmpleadoID   *string         `json:"empleado_id"`
	Estado       string          `json:"estado"`
	MontoInicial decimal.Decimal `json:"monto_inicial"`
	// Saldo is the cash expected in the drawer right now.
	Saldo            decimal.Decimal `json:"saldo"`
	TotalIngresos    decimal.Decimal `json:"total_ingresos"`
	TotalRetiros     decimal.Decimal `json:"total_retiros"`
	TotalMovimientos decimal.Decimal `json:"total_movimiento_efectivo"`
	// Ventas.Total is informational and is not part of Saldo.
	Ventas       MontosPorMetodo      `json:"ventas"`
	MontoFinal   *MontosPorMetodo     `json:"monto_final"`
	MontoContado *decimal.Decimal     `json:"monto_contado"`
	OpenedAt     string               `json:"opened_at"`
	ClosedAt     *string              `json:"closed_at"`
	Movimientos  []MovimientoResponse `json:"movimientos,omitempty"`
}

type HistorialCajaResponse struct {
	Data  []ReporteCajaResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type TransaccionResponse struct {
	ID         string          `json:"id"`
	VentaID    string          `json:"venta_id"`
	MetodoPago string          `json:"metodo_pago"`
	Monto      decimal.Decimal `json:"monto"`
	Fecha      string          `json:"fecha"`
}

type TransaccionesEfectivoResponse struct {
	SesionCajaID  string                `json:"sesion_caja_id"`
	Total         decimal.Decimal       `json:"total"`
	Transacciones []TransaccionResponse `json:"transacciones"`
}
