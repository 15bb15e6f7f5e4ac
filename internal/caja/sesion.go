// Package caja holds the cash-register session lifecycle: opening, manual
// cash movements, the running balance fold, close-time reconciliation and the
// split-payment validator used at checkout.
//
// Every function here is pure. Callers load a consistent snapshot of the
// session, its movements and its sale transactions, call into this package,
// and persist whatever comes back. Nothing is cached between calls.
package caja

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado: "abierta" | "cerrada". A session is created abierta and moves to
// cerrada exactly once.
type Estado string

const (
	EstadoAbierta Estado = "abierta"
	EstadoCerrada Estado = "cerrada"
)

// TipoMovimiento: "ingreso" (cash in) | "retiro" (cash out).
type TipoMovimiento string

const (
	Ingreso TipoMovimiento = "ingreso"
	Retiro  TipoMovimiento = "retiro"
)

func (t TipoMovimiento) Valido() bool { return t == Ingreso || t == Retiro }

// Sesion is one cash-register session owned by UsuarioID.
type Sesion struct {
	ID           uuid.UUID
	UsuarioID    uuid.UUID
	EmpleadoID   *uuid.UUID
	MontoInicial decimal.Decimal
	Estado       Estado
	OpenedAt     time.Time
	ClosedAt     *time.Time

	// Final figures, only set once the session is cerrada.
	MontoFinalEfectivo      *decimal.Decimal
	MontoFinalTarjeta       *decimal.Decimal
	MontoFinalTransferencia *decimal.Decimal
}

func (s Sesion) Abierta() bool { return s.Estado == EstadoAbierta }

// Movimiento is an immutable manual cash movement. Monto is always positive;
// the sign comes from Tipo.
type Movimiento struct {
	ID          uuid.UUID
	SesionID    uuid.UUID
	Tipo        TipoMovimiento
	Monto       decimal.Decimal
	Descripcion string
	Fecha       time.Time
}

// AperturaInput carries what the cashier types when opening a register.
type AperturaInput struct {
	UsuarioID    uuid.UUID
	EmpleadoID   *uuid.UUID
	MontoInicial decimal.Decimal
}

// Abrir opens a new session. abierta is the owner's currently open session as
// seen by the persistence layer, or nil when there is none. The returned
// session has no ID; the store assigns it.
func Abrir(abierta *Sesion, in AperturaInput, now time.Time) (*Sesion, error) {
	if abierta != nil && abierta.Abierta() {
		return nil, &PreconditionError{Code: CodeSesionYaAbierta}
	}
	if !in.MontoInicial.IsPositive() || !EnCentavos(in.MontoInicial) {
		return nil, validacion(CodeMontoInicial)
	}
	return &Sesion{
		UsuarioID:    in.UsuarioID,
		EmpleadoID:   in.EmpleadoID,
		MontoInicial: in.MontoInicial,
		Estado:       EstadoAbierta,
		OpenedAt:     now,
	}, nil
}

// RegistrarMovimiento builds a new manual movement against s. A retiro is not
// checked against the available balance; it may drive the balance negative.
func RegistrarMovimiento(s Sesion, tipo TipoMovimiento, monto decimal.Decimal, descripcion string, now time.Time) (Movimiento, error) {
	if !s.Abierta() {
		return Movimiento{}, &PreconditionError{Code: CodeSesionNoAbierta}
	}
	if !tipo.Valido() {
		return Movimiento{}, validacion(CodeTipoInvalido)
	}
	if !monto.IsPositive() || !EnCentavos(monto) {
		return Movimiento{}, validacion(CodeMontoInvalido)
	}
	desc := strings.TrimSpace(descripcion)
	if desc == "" {
		return Movimiento{}, validacion(CodeDescripcionVacia)
	}
	return Movimiento{
		SesionID:    s.ID,
		Tipo:        tipo,
		Monto:       monto,
		Descripcion: desc,
		Fecha:       now,
	}, nil
}

// Cerrar reconciles the manual cash count against the computed cash and, on
// match, returns a closed copy of s carrying the final per-method figures.
// On mismatch s is left untouched and a *ReconciliationError is returned.
func Cerrar(s Sesion, conteoManual decimal.Decimal, movs []Movimiento, txs []Transaccion, now time.Time) (*Sesion, Balance, error) {
	if !s.Abierta() {
		return nil, Balance{}, &PreconditionError{Code: CodeSesionNoAbierta}
	}
	if conteoManual.IsNegative() || !EnCentavos(conteoManual) {
		return nil, Balance{}, validacion(CodeMontoInvalido)
	}
	bal, err := CalcularSaldo(s, movs, txs)
	if err != nil {
		return nil, Balance{}, err
	}
	if !DentroDeTolerancia(conteoManual, bal.Saldo) {
		return nil, bal, &ReconciliationError{
			Code:     CodeDiferenciaEfectivo,
			Esperado: bal.Saldo,
			Contado:  conteoManual,
		}
	}

	efectivo := bal.Saldo
	tarjeta := bal.TotalTarjeta
	transferencia := bal.TotalTransferencia
	closedAt := now

	cerrada := s
	cerrada.Estado = EstadoCerrada
	cerrada.ClosedAt = &closedAt
	cerrada.MontoFinalEfectivo = &efectivo
	cerrada.MontoFinalTarjeta = &tarjeta
	cerrada.MontoFinalTransferencia = &transferencia
	return &cerrada, bal, nil
}
