package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cajapos/internal/cache"
	"cajapos/internal/caja"
	"cajapos/internal/dto"
	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrNoEncontrado is returned when a session does not exist or belongs to
// another user.
var ErrNoEncontrado = errors.New("sesión de caja no encontrada")

// ErrIDInvalido wraps identifiers in a request body that are not UUIDs.
var ErrIDInvalido = errors.New("id inválido")

// Lector is the caller of a read on a given session. Cashiers see their own
// sessions; supervisors see every register.
type Lector struct {
	UsuarioID uuid.UUID
	VeTodas   bool
}

func (l Lector) puedeVer(s *model.SesionCaja) bool {
	return l.VeTodas || s.UsuarioID == l.UsuarioID
}

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ReporteCajaResponse, error)
	// ObtenerActual returns (nil, nil) when the user has no open session.
	ObtenerActual(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error)
	ObtenerReporte(ctx context.Context, lector Lector, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.HistorialCajaResponse, error)
	ListarMovimientos(ctx context.Context, lector Lector, sesionID uuid.UUID) ([]dto.MovimientoResponse, error)
	TransaccionesEfectivo(ctx context.Context, lector Lector, sesionID uuid.UUID) (*dto.TransaccionesEfectivoResponse, error)
	// FindSesionAbierta is called by VentaService to validate an open session
	FindSesionAbierta(ctx context.Context, sesionID uuid.UUID) (*model.SesionCaja, error)
	// SesionVisible returns the session when lector may read it, and
	// ErrNoEncontrado otherwise.
	SesionVisible(ctx context.Context, lector Lector, sesionID uuid.UUID) (*model.SesionCaja, error)
}

type cajaService struct {
	repo   repository.CajaRepository
	ventas repository.VentaRepository
	cache  cache.ReporteCache
	now    func() time.Time
}

func NewCajaService(repo repository.CajaRepository, ventas repository.VentaRepository, rc cache.ReporteCache) CajaService {
	if rc == nil {
		rc = cache.Noop{}
	}
	return &cajaService{
		repo:   repo,
		ventas: ventas,
		cache:  rc,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error) {
	monto, err := caja.ParseMonto(req.MontoInicial.String())
	if err != nil {
		return nil, &caja.ValidationError{Code: caja.CodeMontoInicial}
	}
	var empleadoID *uuid.UUID
	if req.EmpleadoID != nil && *req.EmpleadoID != "" {
		id, err := uuid.Parse(*req.EmpleadoID)
		if err != nil {
			return nil, fmt.Errorf("empleado_id: %w", ErrIDInvalido)
		}
		empleadoID = &id
	}

	existente, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	var abierta *caja.Sesion
	if existente != nil {
		cs := existente.ToCaja()
		abierta = &cs
	}

	nueva, err := caja.Abrir(abierta, caja.AperturaInput{
		UsuarioID:    usuarioID,
		EmpleadoID:   empleadoID,
		MontoInicial: monto,
	}, s.now())
	if err != nil {
		return nil, err
	}

	row := model.SesionFromCaja(*nueva)
	if err := s.repo.CreateSesion(ctx, row); err != nil {
		// Lost the race against another open request: the partial unique
		// index on (usuario_id) WHERE estado = 'abierta' rejected the insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &caja.PreconditionError{Code: caja.CodeSesionYaAbierta}
		}
		return nil, err
	}

	log.Info().
		Str("sesion_caja_id", row.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Str("monto_inicial", monto.StringFixed(2)).
		Msg("caja abierta")

	return s.reporte(ctx, row)
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Ingreso / retiro manual. Movements are immutable: no Update/Delete.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error) {
	sesion, err := s.resolverSesion(ctx, usuarioID, req.SesionCajaID)
	if err != nil {
		return nil, err
	}
	monto, err := caja.ParseMonto(req.Monto.String())
	if err != nil {
		return nil, err
	}

	mov, err := caja.RegistrarMovimiento(sesion.ToCaja(), caja.TipoMovimiento(req.Tipo), monto, req.Descripcion, s.now())
	if err != nil {
		return nil, err
	}
	row := model.MovimientoFromCaja(mov)
	if err := s.repo.CreateMovimiento(ctx, row); err != nil {
		if errors.Is(err, repository.ErrSesionNoAbierta) {
			return nil, &caja.PreconditionError{Code: caja.CodeSesionNoAbierta}
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, sesion.ID)

	log.Info().
		Str("sesion_caja_id", sesion.ID.String()).
		Str("tipo", row.Tipo).
		Str("monto", row.Monto.StringFixed(2)).
		Msg("movimiento de caja registrado")

	resp := movimientoToResponse(row)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// The manual count must match the computed cash within caja.Tolerancia.
// On mismatch nothing is written and the session stays open.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.resolverSesion(ctx, usuarioID, req.SesionCajaID)
	if err != nil {
		return nil, err
	}
	conteo, err := caja.ParseMonto(req.ConteoEfectivo.String())
	if err != nil {
		return nil, err
	}

	// The close is computed inside the repository transaction so that no sale
	// or movement can land between the snapshot and the update.
	var (
		row  *model.SesionCaja
		bal  caja.Balance
		movs []model.MovimientoCaja
	)
	err = s.repo.CerrarSesion(ctx, sesion.ID, func(abierta *model.SesionCaja, ms []model.MovimientoCaja, pagos []model.VentaPago) (*model.SesionCaja, error) {
		cerrada, b, err := caja.Cerrar(abierta.ToCaja(), conteo, model.MovimientosToCaja(ms), model.PagosToCaja(pagos), s.now())
		if err != nil {
			return nil, err
		}
		row = model.SesionFromCaja(*cerrada)
		row.MontoContado = &conteo
		bal, movs = b, ms
		return row, nil
	})
	if err != nil {
		var re *caja.ReconciliationError
		switch {
		case errors.Is(err, repository.ErrSesionNoAbierta):
			return nil, &caja.PreconditionError{Code: caja.CodeSesionNoAbierta}
		case errors.As(err, &re):
			log.Warn().
				Str("sesion_caja_id", sesion.ID.String()).
				Str("esperado", re.Esperado.StringFixed(2)).
				Str("contado", re.Contado.StringFixed(2)).
				Msg("cierre de caja rechazado por diferencia de efectivo")
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, row.ID)

	log.Info().
		Str("sesion_caja_id", row.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Str("efectivo", row.MontoFinalEfectivo.StringFixed(2)).
		Str("tarjeta", row.MontoFinalTarjeta.StringFixed(2)).
		Str("transferencia", row.MontoFinalTransferencia.StringFixed(2)).
		Msg("caja cerrada")

	return buildReporte(row, bal, movs), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerActual(ctx context.Context, usuarioID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil || sesion == nil {
		return nil, err
	}
	return s.reporte(ctx, sesion)
}

func (s *cajaService) ObtenerReporte(ctx context.Context, lector Lector, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.SesionVisible(ctx, lector, sesionID)
	if err != nil {
		return nil, err
	}
	return s.reporte(ctx, sesion)
}

func (s *cajaService) Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.HistorialCajaResponse, error) {
	sesiones, total, err := s.repo.ListSesionesCerradas(ctx, usuarioID, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ReporteCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		r, err := s.reporte(ctx, &sesiones[i])
		if err != nil {
			return nil, err
		}
		r.Movimientos = nil
		data = append(data, *r)
	}
	return &dto.HistorialCajaResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *cajaService) ListarMovimientos(ctx context.Context, lector Lector, sesionID uuid.UUID) ([]dto.MovimientoResponse, error) {
	if _, err := s.SesionVisible(ctx, lector, sesionID); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movimientoToResponse(&movs[i]))
	}
	return out, nil
}

// TransaccionesEfectivo lists the cash legs of the session's sales. The total
// goes through the same fold as the register balance so that malformed rows
// are rejected the same way.
func (s *cajaService) TransaccionesEfectivo(ctx context.Context, lector Lector, sesionID uuid.UUID) (*dto.TransaccionesEfectivoResponse, error) {
	sesion, err := s.SesionVisible(ctx, lector, sesionID)
	if err != nil {
		return nil, err
	}
	pagos, err := s.ventas.ListPagosPorSesion(ctx, sesionID, string(caja.Efectivo))
	if err != nil {
		return nil, err
	}
	bal, err := caja.CalcularSaldo(sesion.ToCaja(), nil, model.PagosToCaja(pagos))
	if err != nil {
		return nil, err
	}

	txs := make([]dto.TransaccionResponse, 0, len(pagos))
	for _, p := range pagos {
		txs = append(txs, dto.TransaccionResponse{
			ID:         p.ID.String(),
			VentaID:    p.VentaID.String(),
			MetodoPago: p.Metodo,
			Monto:      p.Monto.Decimal,
			Fecha:      p.CreatedAt.Format(time.RFC3339),
		})
	}
	return &dto.TransaccionesEfectivoResponse{
		SesionCajaID:  sesionID.String(),
		Total:         bal.TotalEfectivo,
		Transacciones: txs,
	}, nil
}

// ── FindSesionAbierta ─────────────────────────────────────────────────────────

func (s *cajaService) FindSesionAbierta(ctx context.Context, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != string(caja.EstadoAbierta) {
		return nil, &caja.PreconditionError{Code: caja.CodeSesionNoAbierta}
	}
	return sesion, nil
}

func (s *cajaService) SesionVisible(ctx context.Context, lector Lector, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if !lector.puedeVer(sesion) {
		return nil, ErrNoEncontrado
	}
	return sesion, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) findSesion(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoEncontrado
	}
	return sesion, err
}

// resolverSesion picks the session a mutation applies to: the explicit id when
// given (it must belong to the caller), otherwise the caller's open session.
func (s *cajaService) resolverSesion(ctx context.Context, usuarioID uuid.UUID, rawID string) (*model.SesionCaja, error) {
	if rawID == "" {
		sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
		if err != nil {
			return nil, err
		}
		if sesion == nil {
			return nil, &caja.PreconditionError{Code: caja.CodeSesionNoAbierta}
		}
		return sesion, nil
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("sesion_caja_id: %w", ErrIDInvalido)
	}
	sesion, err := s.findSesion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sesion.UsuarioID != usuarioID {
		return nil, ErrNoEncontrado
	}
	return sesion, nil
}

func (s *cajaService) snapshot(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, []model.VentaPago, error) {
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, nil, err
	}
	pagos, err := s.ventas.ListPagosPorSesion(ctx, sesionID, "")
	if err != nil {
		return nil, nil, err
	}
	return movs, pagos, nil
}

// reporte recomputes the session report from a fresh snapshot. Only closed
// sessions go through the cache: their rows no longer change, while an open
// session's report could be overwritten with an older snapshot by a read
// racing a mutation.
func (s *cajaService) reporte(ctx context.Context, sesion *model.SesionCaja) (*dto.ReporteCajaResponse, error) {
	cacheable := sesion.Estado == string(caja.EstadoCerrada)
	if cacheable {
		if cached, ok := s.cache.Get(ctx, sesion.ID); ok {
			var resp dto.ReporteCajaResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	movs, pagos, err := s.snapshot(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	bal, err := caja.CalcularSaldo(sesion.ToCaja(), model.MovimientosToCaja(movs), model.PagosToCaja(pagos))
	if err != nil {
		log.Error().Err(err).Str("sesion_caja_id", sesion.ID.String()).Msg("datos de caja inconsistentes")
		return nil, err
	}

	resp := buildReporte(sesion, bal, movs)
	if cacheable {
		if b, err := json.Marshal(resp); err == nil {
			s.cache.Set(ctx, sesion.ID, b)
		}
	}
	return resp, nil
}

func buildReporte(sesion *model.SesionCaja, bal caja.Balance, movs []model.MovimientoCaja) *dto.ReporteCajaResponse {
	r := &dto.ReporteCajaResponse{
		SesionCajaID:     sesion.ID.String(),
		UsuarioID:        sesion.UsuarioID.String(),
		Estado:           sesion.Estado,
		MontoInicial:     sesion.MontoInicial,
		Saldo:            bal.Saldo,
		TotalIngresos:    bal.TotalIngresos,
		TotalRetiros:     bal.TotalRetiros,
		TotalMovimientos: bal.TotalMovimientos(),
		Ventas: dto.MontosPorMetodo{
			Efectivo:      bal.TotalEfectivo,
			Tarjeta:       bal.TotalTarjeta,
			Transferencia: bal.TotalTransferencia,
			Total:         bal.TotalVentas,
		},
		MontoContado: sesion.MontoContado,
		OpenedAt:     sesion.OpenedAt.Format(time.RFC3339),
	}
	if sesion.EmpleadoID != nil {
		e := sesion.EmpleadoID.String()
		r.EmpleadoID = &e
	}
	if sesion.ClosedAt != nil {
		t := sesion.ClosedAt.Format(time.RFC3339)
		r.ClosedAt = &t
	}
	if sesion.MontoFinalEfectivo != nil && sesion.MontoFinalTarjeta != nil && sesion.MontoFinalTransferencia != nil {
		r.MontoFinal = &dto.MontosPorMetodo{
			Efectivo:      *sesion.MontoFinalEfectivo,
			Tarjeta:       *sesion.MontoFinalTarjeta,
			Transferencia: *sesion.MontoFinalTransferencia,
			Total:         sesion.MontoFinalEfectivo.Add(*sesion.MontoFinalTarjeta).Add(*sesion.MontoFinalTransferencia),
		}
	}
	for i := range movs {
		r.Movimientos = append(r.Movimientos, movimientoToResponse(&movs[i]))
	}
	return r
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:           m.ID.String(),
		SesionCajaID: m.SesionCajaID.String(),
		Tipo:         m.Tipo,
		Monto:        m.Monto,
		Descripcion:  m.Descripcion,
		Fecha:        m.CreatedAt.Format(time.RFC3339),
	}
}
