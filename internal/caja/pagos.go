package caja

import "github.com/shopspring/decimal"

// Pago is one row of a split payment.
type Pago struct {
	Monto  decimal.Decimal
	Metodo MetodoPago
}

// ValidarBorrador checks a split that the cashier is still composing: methods
// must be known and unique, and amounts non-negative. Zero rows are tolerated
// and the sum is not compared against the order total yet.
func ValidarBorrador(pagos []Pago) error {
	return validarFilas(pagos, false)
}

// ValidarPagos is the submit-time check. On top of ValidarBorrador it requires
// every amount to be > 0 and the sum to match total within Tolerancia. The
// returned slice is the accepted allocation, in input order.
func ValidarPagos(pagos []Pago, total decimal.Decimal) ([]Pago, error) {
	if err := validarFilas(pagos, true); err != nil {
		return nil, err
	}
	suma := SumarPagos(pagos)
	if !DentroDeTolerancia(suma, total) {
		esperado, obtenido := total, suma
		return nil, &ValidationError{
			Code:     CodeMontoNoCoincide,
			Esperado: &esperado,
			Obtenido: &obtenido,
		}
	}
	out := make([]Pago, len(pagos))
	copy(out, pagos)
	return out, nil
}

// SumarPagos adds up every row.
func SumarPagos(pagos []Pago) decimal.Decimal {
	suma := decimal.Zero
	for _, p := range pagos {
		suma = suma.Add(p.Monto)
	}
	return suma
}

func validarFilas(pagos []Pago, envio bool) error {
	if len(pagos) > len(MetodosPago) {
		return validacion(CodeDemasiadosPagos)
	}
	vistos := make(map[MetodoPago]struct{}, len(pagos))
	for _, p := range pagos {
		if !p.Metodo.Valido() {
			return validacion(CodeMetodoInvalido)
		}
		if _, dup := vistos[p.Metodo]; dup {
			return validacion(CodeMetodoDuplicado)
		}
		vistos[p.Metodo] = struct{}{}

		if p.Monto.IsNegative() || (envio && p.Monto.IsZero()) || !EnCentavos(p.Monto) {
			return validacion(CodeMontoInvalido)
		}
	}
	return nil
}
