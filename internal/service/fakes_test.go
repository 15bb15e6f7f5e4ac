package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

// mu doubles as the session row lock: writes that need an open session and
// the close hold it, always before fakeVentaRepo.mu.
type fakeCajaRepo struct {
	mu          sync.Mutex
	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []model.MovimientoCaja
	ventas      *fakeVentaRepo
}

// newFakeRepos returns linked fakes: closing reads the venta fake's payments
// and sales check the caja fake's session state.
func newFakeRepos() (*fakeCajaRepo, *fakeVentaRepo) {
	cr := &fakeCajaRepo{sesiones: make(map[uuid.UUID]*model.SesionCaja)}
	vr := &fakeVentaRepo{cajas: cr}
	cr.ventas = vr
	return cr, vr
}

func (r *fakeCajaRepo) abiertaLocked(id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.sesiones[id]
	if !ok || s.Estado != "abierta" {
		return nil, repository.ErrSesionNoAbierta
	}
	return s, nil
}

func (r *fakeCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sesiones[s.ID] = &cp
	return nil
}

func (r *fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeCajaRepo) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Estado == "abierta" {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCajaRepo) CerrarSesion(ctx context.Context, id uuid.UUID, fn repository.CierreFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.abiertaLocked(id)
	if err != nil {
		return err
	}
	movs := r.movimientosLocked(id)
	pagos, _ := r.ventas.ListPagosPorSesion(ctx, id, "")

	cp := *stored
	s, err := fn(&cp, movs, pagos)
	if err != nil {
		return err
	}
	stored.Estado = s.Estado
	stored.ClosedAt = s.ClosedAt
	stored.MontoContado = s.MontoContado
	stored.MontoFinalEfectivo = s.MontoFinalEfectivo
	stored.MontoFinalTarjeta = s.MontoFinalTarjeta
	stored.MontoFinalTransferencia = s.MontoFinalTransferencia
	return nil
}

func (r *fakeCajaRepo) ListSesionesCerradas(_ context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.SesionCaja
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Estado == "cerrada" {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClosedAt.After(*all[j].ClosedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.abiertaLocked(m.SesionCajaID); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.movimientosLocked(sesionID), nil
}

func (r *fakeCajaRepo) movimientosLocked(sesionID uuid.UUID) []model.MovimientoCaja {
	var out []model.MovimientoCaja
	for i := len(r.movimientos) - 1; i >= 0; i-- {
		if r.movimientos[i].SesionCajaID == sesionID {
			out = append(out, r.movimientos[i])
		}
	}
	return out
}

var _ repository.CajaRepository = (*fakeCajaRepo)(nil)

// ── In-memory VentaRepository ────────────────────────────────────────────────

type fakeVentaRepo struct {
	mu     sync.Mutex
	ventas []model.Venta
	cajas  *fakeCajaRepo
}

func (r *fakeVentaRepo) Create(_ context.Context, v *model.Venta) error {
	r.cajas.mu.Lock()
	defer r.cajas.mu.Unlock()
	if _, err := r.cajas.abiertaLocked(v.SesionCajaID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	for i := range v.Pagos {
		if v.Pagos[i].ID == uuid.Nil {
			v.Pagos[i].ID = uuid.New()
		}
		v.Pagos[i].VentaID = v.ID
	}
	r.ventas = append(r.ventas, *v)
	return nil
}

func (r *fakeVentaRepo) ListPorSesion(_ context.Context, sesionID uuid.UUID) ([]model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if v.SesionCajaID == sesionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVentaRepo) ListPagosPorSesion(_ context.Context, sesionID uuid.UUID, metodo string) ([]model.VentaPago, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VentaPago
	for _, v := range r.ventas {
		if v.SesionCajaID != sesionID {
			continue
		}
		for _, p := range v.Pagos {
			if metodo == "" || p.Metodo == metodo {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

var _ repository.VentaRepository = (*fakeVentaRepo)(nil)

// ── Hooked repos ─────────────────────────────────────────────────────────────
// Run a callback once right before the wrapped call, to interleave another
// request at the point where a real one could commit.

type hookVentaRepo struct {
	*fakeVentaRepo
	antesDeListarPagos func()
	antesDeCrear       func()
}

func (r *hookVentaRepo) ListPagosPorSesion(ctx context.Context, sesionID uuid.UUID, metodo string) ([]model.VentaPago, error) {
	if f := r.antesDeListarPagos; f != nil {
		r.antesDeListarPagos = nil
		f()
	}
	return r.fakeVentaRepo.ListPagosPorSesion(ctx, sesionID, metodo)
}

func (r *hookVentaRepo) Create(ctx context.Context, v *model.Venta) error {
	if f := r.antesDeCrear; f != nil {
		r.antesDeCrear = nil
		f()
	}
	return r.fakeVentaRepo.Create(ctx, v)
}

type hookCajaRepo struct {
	*fakeCajaRepo
	antesDeCrearMovimiento func()
}

func (r *hookCajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	if f := r.antesDeCrearMovimiento; f != nil {
		r.antesDeCrearMovimiento = nil
		f()
	}
	return r.fakeCajaRepo.CreateMovimiento(ctx, m)
}
