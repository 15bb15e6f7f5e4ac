// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is set when the failure maps to a register error code.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// MontosError carries the two amounts that disagreed: the computed cash and
// the count on a rejected close, or the order total and the payment sum on a
// rejected split.
type MontosError struct {
	Detail     string          `json:"detail"`
	Code       string          `json:"code"`
	Esperado   decimal.Decimal `json:"esperado"`
	Obtenido   decimal.Decimal `json:"obtenido"`
	Diferencia decimal.Decimal `json:"diferencia"`
}

func NewMontos(code, msg string, esperado, obtenido decimal.Decimal) *MontosError {
	return &MontosError{
		Detail:     msg,
		Code:       code,
		Esperado:   esperado,
		Obtenido:   obtenido,
		Diferencia: obtenido.Sub(esperado),
	}
}
