package caja

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetodoPago: "efectivo" | "tarjeta" | "transferencia". Only efectivo moves
// the cash drawer.
type MetodoPago string

const (
	Efectivo      MetodoPago = "efectivo"
	Tarjeta       MetodoPago = "tarjeta"
	Transferencia MetodoPago = "transferencia"
)

// MetodosPago lists every accepted method, in display order.
var MetodosPago = []MetodoPago{Efectivo, Tarjeta, Transferencia}

func (m MetodoPago) Valido() bool {
	switch m {
	case Efectivo, Tarjeta, Transferencia:
		return true
	}
	return false
}

// Transaccion is the payment-split projection of a completed sale recorded
// against a session. An invalid Monto means the sale subsystem sent a row
// without an amount.
type Transaccion struct {
	ID         uuid.UUID
	VentaID    uuid.UUID
	MetodoPago MetodoPago
	Monto      decimal.NullDecimal
}

// Balance is the result of folding a session snapshot.
type Balance struct {
	// Saldo is the cash expected in the drawer:
	// MontoInicial + ingresos - retiros + efectivo sales.
	Saldo decimal.Decimal
	// TotalVentas sums every transaction regardless of method. Informational
	// only, never folded into Saldo.
	TotalVentas decimal.Decimal

	TotalIngresos      decimal.Decimal
	TotalRetiros       decimal.Decimal
	TotalEfectivo      decimal.Decimal
	TotalTarjeta       decimal.Decimal
	TotalTransferencia decimal.Decimal
}

// TotalMovimientos is ingresos minus retiros.
func (b Balance) TotalMovimientos() decimal.Decimal {
	return b.TotalIngresos.Sub(b.TotalRetiros)
}

// CalcularSaldo folds every movement and every transaction exactly once.
// Order does not matter. A movement with an unknown type or a non-positive
// amount, a movement belonging to another session, or a transaction with an
// unknown method or no amount aborts the fold with a *DataIntegrityError.
func CalcularSaldo(s Sesion, movs []Movimiento, txs []Transaccion) (Balance, error) {
	bal := Balance{
		TotalIngresos:      decimal.Zero,
		TotalRetiros:       decimal.Zero,
		TotalEfectivo:      decimal.Zero,
		TotalTarjeta:       decimal.Zero,
		TotalTransferencia: decimal.Zero,
	}

	for _, m := range movs {
		if m.SesionID != s.ID {
			return Balance{}, integridad(CodeMovimientoAjeno, "movimiento %s pertenece a la sesion %s", m.ID, m.SesionID)
		}
		if !m.Monto.IsPositive() {
			return Balance{}, integridad(CodeMontoInvalido, "movimiento %s con monto %s", m.ID, m.Monto)
		}
		switch m.Tipo {
		case Ingreso:
			bal.TotalIngresos = bal.TotalIngresos.Add(m.Monto)
		case Retiro:
			bal.TotalRetiros = bal.TotalRetiros.Add(m.Monto)
		default:
			return Balance{}, integridad(CodeTipoInvalido, "movimiento %s con tipo %q", m.ID, m.Tipo)
		}
	}

	for _, t := range txs {
		if !t.Monto.Valid {
			return Balance{}, integridad(CodeMontoFaltante, "transaccion %s sin monto", t.ID)
		}
		switch t.MetodoPago {
		case Efectivo:
			bal.TotalEfectivo = bal.TotalEfectivo.Add(t.Monto.Decimal)
		case Tarjeta:
			bal.TotalTarjeta = bal.TotalTarjeta.Add(t.Monto.Decimal)
		case Transferencia:
			bal.TotalTransferencia = bal.TotalTransferencia.Add(t.Monto.Decimal)
		default:
			return Balance{}, integridad(CodeMetodoInvalido, "transaccion %s con metodo %q", t.ID, t.MetodoPago)
		}
	}

	bal.Saldo = s.MontoInicial.Add(bal.TotalMovimientos()).Add(bal.TotalEfectivo)
	bal.TotalVentas = bal.TotalEfectivo.Add(bal.TotalTarjeta).Add(bal.TotalTransferencia)
	return bal, nil
}

// FiltrarEfectivo returns the cash-affecting subset of txs.
func FiltrarEfectivo(txs []Transaccion) []Transaccion {
	out := make([]Transaccion, 0, len(txs))
	for _, t := range txs {
		if t.MetodoPago == Efectivo {
			out = append(out, t)
		}
	}
	return out
}
