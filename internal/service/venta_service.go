package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cajapos/internal/cache"
	"cajapos/internal/caja"
	"cajapos/internal/dto"
	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type VentaService interface {
	RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	ValidarPagos(ctx context.Context, req dto.ValidarPagosRequest) (*dto.ValidarPagosResponse, error)
	ListarPorSesion(ctx context.Context, lector Lector, sesionID uuid.UUID) ([]dto.VentaResponse, error)
}

type ventaService struct {
	repo  repository.VentaRepository
	caja  CajaService
	cache cache.ReporteCache
}

func NewVentaService(repo repository.VentaRepository, caja CajaService, rc cache.ReporteCache) VentaService {
	if rc == nil {
		rc = cache.Noop{}
	}
	return &ventaService{repo: repo, caja: caja, cache: rc}
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
//   1. Validate sesion de caja is open and belongs to the cashier
//   2. Parse total and payment rows
//   3. Validate the split (unique methods, amounts > 0, sum == total ± 0.01)
//   4. Persist venta + pagos in one transaction; the repository re-checks
//      the session under lock so a concurrent close cannot miss the sale
//   5. Invalidate the cached session report

func (s *ventaService) RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, fmt.Errorf("sesion_caja_id: %w", ErrIDInvalido)
	}

	// 1. Validate open session
	sesion, err := s.caja.FindSesionAbierta(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.UsuarioID != usuarioID {
		return nil, ErrNoEncontrado
	}

	// 2. Parse
	total, err := caja.ParseMonto(req.Total.String())
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, &caja.ValidationError{Code: caja.CodeMontoInvalido}
	}
	pagos, err := parsePagos(req.Pagos)
	if err != nil {
		return nil, err
	}

	// 3. Validate split
	aceptados, err := caja.ValidarPagos(pagos, total)
	if err != nil {
		return nil, err
	}

	// 4. Persist
	venta := model.Venta{
		SesionCajaID: sesionID,
		UsuarioID:    usuarioID,
		Total:        total,
		Descripcion:  req.Descripcion,
		CreatedAt:    time.Now().UTC(),
	}
	for _, p := range aceptados {
		venta.Pagos = append(venta.Pagos, model.VentaPago{
			Metodo:    string(p.Metodo),
			Monto:     decimal.NewNullDecimal(p.Monto),
			CreatedAt: venta.CreatedAt,
		})
	}
	if err := s.repo.Create(ctx, &venta); err != nil {
		if errors.Is(err, repository.ErrSesionNoAbierta) {
			return nil, &caja.PreconditionError{Code: caja.CodeSesionNoAbierta}
		}
		return nil, err
	}

	// 5. The register balance changed
	s.cache.Invalidate(ctx, sesionID)

	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("sesion_caja_id", sesionID.String()).
		Str("total", total.StringFixed(2)).
		Int("pagos", len(venta.Pagos)).
		Msg("venta registrada")

	resp := ventaToResponse(&venta)
	return &resp, nil
}

// ── ValidarPagos ──────────────────────────────────────────────────────────────
// Lets the checkout screen validate the split while it is being composed.

func (s *ventaService) ValidarPagos(_ context.Context, req dto.ValidarPagosRequest) (*dto.ValidarPagosResponse, error) {
	pagos, err := parsePagos(req.Pagos)
	if err != nil {
		return nil, err
	}
	suma := caja.SumarPagos(pagos)

	var total decimal.Decimal
	tieneTotal := strings.TrimSpace(req.Total.String()) != ""
	if tieneTotal || !req.Borrador {
		total, err = caja.ParseMonto(req.Total.String())
		if err != nil {
			return nil, err
		}
	}

	if req.Borrador {
		if err := caja.ValidarBorrador(pagos); err != nil {
			return nil, err
		}
	} else if _, err := caja.ValidarPagos(pagos, total); err != nil {
		return nil, err
	}

	resp := &dto.ValidarPagosResponse{
		Valido:   true,
		Suma:     suma,
		Restante: decimal.Zero,
		Pagos:    make([]dto.PagoResponse, 0, len(pagos)),
	}
	if tieneTotal {
		resp.Restante = total.Sub(suma)
	}
	for _, p := range pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoResponse{Metodo: string(p.Metodo), Monto: p.Monto})
	}
	return resp, nil
}

// ── ListarPorSesion ───────────────────────────────────────────────────────────

func (s *ventaService) ListarPorSesion(ctx context.Context, lector Lector, sesionID uuid.UUID) ([]dto.VentaResponse, error) {
	if _, err := s.caja.SesionVisible(ctx, lector, sesionID); err != nil {
		return nil, err
	}
	ventas, err := s.repo.ListPorSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		out = append(out, ventaToResponse(&ventas[i]))
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func parsePagos(rows []dto.PagoRequest) ([]caja.Pago, error) {
	pagos := make([]caja.Pago, 0, len(rows))
	for _, r := range rows {
		monto, err := caja.ParseMonto(r.Monto.String())
		if err != nil {
			return nil, err
		}
		pagos = append(pagos, caja.Pago{
			Monto:  monto,
			Metodo: caja.MetodoPago(strings.ToLower(strings.TrimSpace(r.Metodo))),
		})
	}
	return pagos, nil
}

func ventaToResponse(v *model.Venta) dto.VentaResponse {
	resp := dto.VentaResponse{
		ID:           v.ID.String(),
		SesionCajaID: v.SesionCajaID.String(),
		Total:        v.Total,
		Descripcion:  v.Descripcion,
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
		Pagos:        make([]dto.PagoResponse, 0, len(v.Pagos)),
	}
	for _, p := range v.Pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoResponse{Metodo: p.Metodo, Monto: p.Monto.Decimal})
	}
	return resp
}
