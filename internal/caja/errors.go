package caja

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes. They travel to clients inside apierror envelopes, so they are
// part of the public contract and must not be renamed.
const (
	CodeSesionYaAbierta    = "SessionAlreadyOpen"
	CodeSesionNoAbierta    = "SessionNotOpen"
	CodeMontoInicial       = "InvalidInitialAmount"
	CodeMontoInvalido      = "InvalidAmount"
	CodeDescripcionVacia   = "EmptyDescription"
	CodeTipoInvalido       = "InvalidMovementType"
	CodeMetodoInvalido     = "InvalidPaymentMethod"
	CodeMetodoDuplicado    = "DuplicatePaymentMethod"
	CodeDemasiadosPagos    = "TooManyPayments"
	CodeMontoNoCoincide    = "AmountMismatch"
	CodeDiferenciaEfectivo = "CashMismatch"
	CodeMontoFaltante      = "MissingAmount"
	CodeMovimientoAjeno    = "ForeignMovement"
)

// ValidationError reports malformed input. The caller is expected to re-prompt.
// Esperado and Obtenido are only set for CodeMontoNoCoincide.
type ValidationError struct {
	Code     string
	Esperado *decimal.Decimal
	Obtenido *decimal.Decimal
}

func (e *ValidationError) Error() string {
	if e.Esperado != nil && e.Obtenido != nil {
		return fmt.Sprintf("validation: %s (expected=%s, got=%s)", e.Code, e.Esperado.StringFixed(2), e.Obtenido.StringFixed(2))
	}
	return "validation: " + e.Code
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// PreconditionError reports an operation attempted against a session in the
// wrong state. No mutation happens when it is returned.
type PreconditionError struct {
	Code string
}

func (e *PreconditionError) Error() string { return "precondition: " + e.Code }

func (e *PreconditionError) Is(target error) bool {
	t, ok := target.(*PreconditionError)
	return ok && t.Code == e.Code
}

// ReconciliationError is returned by Cerrar when the counted cash differs from
// the computed cash by more than Tolerancia. The session stays open.
type ReconciliationError struct {
	Code     string
	Esperado decimal.Decimal
	Contado  decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation: %s (expected=%s, counted=%s)", e.Code, e.Esperado.StringFixed(2), e.Contado.StringFixed(2))
}

func (e *ReconciliationError) Is(target error) bool {
	t, ok := target.(*ReconciliationError)
	return ok && t.Code == e.Code
}

// Diferencia is counted minus expected; negative means a shortage.
func (e *ReconciliationError) Diferencia() decimal.Decimal {
	return e.Contado.Sub(e.Esperado)
}

// DataIntegrityError reports a malformed record handed in by the persistence
// layer (unknown movement type, transaction without amount, ...).
type DataIntegrityError struct {
	Code    string
	Detalle string
}

func (e *DataIntegrityError) Error() string {
	if e.Detalle == "" {
		return "data integrity: " + e.Code
	}
	return "data integrity: " + e.Code + ": " + e.Detalle
}

func (e *DataIntegrityError) Is(target error) bool {
	t, ok := target.(*DataIntegrityError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrSesionYaAbierta    = &PreconditionError{Code: CodeSesionYaAbierta}
	ErrSesionNoAbierta    = &PreconditionError{Code: CodeSesionNoAbierta}
	ErrMontoInicial       = &ValidationError{Code: CodeMontoInicial}
	ErrMontoInvalido      = &ValidationError{Code: CodeMontoInvalido}
	ErrDescripcionVacia   = &ValidationError{Code: CodeDescripcionVacia}
	ErrTipoInvalido       = &ValidationError{Code: CodeTipoInvalido}
	ErrMetodoInvalido     = &ValidationError{Code: CodeMetodoInvalido}
	ErrMetodoDuplicado    = &ValidationError{Code: CodeMetodoDuplicado}
	ErrDemasiadosPagos    = &ValidationError{Code: CodeDemasiadosPagos}
	ErrMontoNoCoincide    = &ValidationError{Code: CodeMontoNoCoincide}
	ErrDiferenciaEfectivo = &ReconciliationError{Code: CodeDiferenciaEfectivo}
)

func validacion(code string) error { return &ValidationError{Code: code} }

func integridad(code, format string, args ...any) error {
	return &DataIntegrityError{Code: code, Detalle: fmt.Sprintf(format, args...)}
}
