package caja

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerancia absorbs currency rounding when comparing two amounts.
var Tolerancia = decimal.New(1, -2)

// DentroDeTolerancia reports whether |a - b| <= Tolerancia. Both the close
// reconciliation and the split-payment sum check go through here.
func DentroDeTolerancia(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerancia)
}

// EnCentavos reports whether d carries no more than two significant decimals.
// Amounts are stored as numeric(12,2); anything finer would be rounded on
// write and fold differently from what was validated. Trailing zeros are fine.
func EnCentavos(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// ParseMonto converts user-typed text into a decimal amount. A single comma is
// accepted as decimal separator ("12,50"). Anything else that is not a plain
// number with at most two decimals yields ErrMontoInvalido; the value is never
// defaulted to zero.
func ParseMonto(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, validacion(CodeMontoInvalido)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return decimal.Zero, validacion(CodeMontoInvalido)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !EnCentavos(d) {
		return decimal.Zero, validacion(CodeMontoInvalido)
	}
	return d, nil
}
