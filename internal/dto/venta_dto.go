package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PagoRequest struct {
	Metodo string     `json:"metodo" validate:"required"`
	Monto  MontoTexto `json:"monto"  validate:"required"`
}

type RegistrarVentaRequest struct {
	SesionCajaID string        `json:"sesion_caja_id" validate:"required,uuid"`
	Total        MontoTexto    `json:"total"          validate:"required"`
	Pagos        []PagoRequest `json:"pagos"          validate:"required,min=1,dive"`
	Descripcion  *string       `json:"descripcion"`
}

// ValidarPagosRequest checks a split without persisting anything. With
// Borrador set, zero rows are tolerated and Total is not compared.
type ValidarPagosRequest struct {
	Total    MontoTexto    `json:"total"`
	Pagos    []PagoRequest `json:"pagos"    validate:"dive"`
	Borrador bool          `json:"borrador"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PagoResponse struct {
	Metodo string          `json:"metodo"`
	Monto  decimal.Decimal `json:"monto"`
}

type VentaResponse struct {
	ID           string          `json:"id"`
	SesionCajaID string          `json:"sesion_caja_id"`
	Total        decimal.Decimal `json:"total"`
	Pagos        []PagoResponse  `json:"pagos"`
	Descripcion  *string         `json:"descripcion"`
	CreatedAt    string          `json:"created_at"`
}

type ValidarPagosResponse struct {
	Valido bool            `json:"valido"`
	Suma   decimal.Decimal `json:"suma"`
	// Restante is Total - Suma; only meaningful when Total was sent.
	Restante decimal.Decimal `json:"restante"`
	Pagos    []PagoResponse  `json:"pagos"`
}
