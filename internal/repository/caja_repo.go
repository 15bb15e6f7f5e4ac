package repository

import (
	"context"
	"errors"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionAbiertaPorUsuario returns (nil, nil) when the user has no open session.
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	// CerrarSesion locks the open session, hands it and its snapshot to fn and
	// persists the row fn returns, all in one transaction. Sales and movements
	// wait on the same lock, so the snapshot is exactly what gets settled.
	// Returns ErrSesionNoAbierta when the session is not abierta.
	CerrarSesion(ctx context.Context, id uuid.UUID, fn CierreFunc) error
	ListSesionesCerradas(ctx context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error)
	// CreateMovimiento returns ErrSesionNoAbierta when the session was closed
	// in the meantime.
	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
}

// CierreFunc computes the closed row from the locked session and its snapshot.
// A non-nil error aborts the close and is returned unchanged.
type CierreFunc func(s *model.SesionCaja, movs []model.MovimientoCaja, pagos []model.VentaPago) (*model.SesionCaja, error)

var (
	// ErrNotFound is returned by repositories when the requested row does not exist.
	ErrNotFound = errors.New("registro no encontrado")
	// ErrSesionNoAbierta is returned by writes that need an open session.
	ErrSesionNoAbierta = errors.New("sesión de caja no abierta")
)

// bloquearAbierta locks the session row if it is still abierta. Closing takes
// UPDATE; sales and movements take SHARE so they do not serialize each other.
func bloquearAbierta(tx *gorm.DB, id uuid.UUID, strength string, dest *model.SesionCaja) error {
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Where("id = ? AND estado = 'abierta'", id).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSesionNoAbierta
	}
	return err
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND estado = 'abierta'", usuarioID).
		Order("opened_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, id uuid.UUID, fn CierreFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var abierta model.SesionCaja
		if err := bloquearAbierta(tx, id, clause.LockingStrengthUpdate, &abierta); err != nil {
			return err
		}
		movs, err := listMovimientos(tx, id)
		if err != nil {
			return err
		}
		pagos, err := listPagos(tx, id, "")
		if err != nil {
			return err
		}

		s, err := fn(&abierta, movs, pagos)
		if err != nil {
			return err
		}
		return tx.Model(&model.SesionCaja{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"estado":                    s.Estado,
				"closed_at":                 s.ClosedAt,
				"monto_contado":             s.MontoContado,
				"monto_final_efectivo":      s.MontoFinalEfectivo,
				"monto_final_tarjeta":       s.MontoFinalTarjeta,
				"monto_final_transferencia": s.MontoFinalTransferencia,
			}).Error
	})
}

func (r *cajaRepo) ListSesionesCerradas(ctx context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("usuario_id = ? AND estado = 'cerrada'", usuarioID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("closed_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var abierta model.SesionCaja
		if err := bloquearAbierta(tx, m.SesionCajaID, clause.LockingStrengthShare, &abierta); err != nil {
			return err
		}
		return tx.Create(m).Error
	})
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	return listMovimientos(r.db.WithContext(ctx), sesionCajaID)
}

func listMovimientos(db *gorm.DB, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := db.Where("sesion_caja_id = ?", sesionCajaID).Order("created_at DESC").Find(&movs).Error
	return movs, err
}
