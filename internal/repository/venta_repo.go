package repository

import (
	"context"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	// Create inserts the venta and its pagos in a single transaction, holding a
	// share lock on the session. Returns ErrSesionNoAbierta when the session
	// is no longer abierta.
	Create(ctx context.Context, v *model.Venta) error
	ListPorSesion(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Venta, error)
	// ListPagosPorSesion returns every payment row of every sale recorded
	// against the session: the transaction projection the register folds.
	ListPagosPorSesion(ctx context.Context, sesionCajaID uuid.UUID, metodo string) ([]model.VentaPago, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var abierta model.SesionCaja
		if err := bloquearAbierta(tx, v.SesionCajaID, clause.LockingStrengthShare, &abierta); err != nil {
			return err
		}
		return tx.Create(v).Error
	})
}

func (r *ventaRepo) ListPorSesion(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Preload("Pagos").
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at DESC").
		Find(&ventas).Error
	return ventas, err
}

// metodo == "" returns all methods.
func (r *ventaRepo) ListPagosPorSesion(ctx context.Context, sesionCajaID uuid.UUID, metodo string) ([]model.VentaPago, error) {
	return listPagos(r.db.WithContext(ctx), sesionCajaID, metodo)
}

func listPagos(db *gorm.DB, sesionCajaID uuid.UUID, metodo string) ([]model.VentaPago, error) {
	var pagos []model.VentaPago
	q := db.Joins("JOIN ventas ON ventas.id = venta_pagos.venta_id").
		Where("ventas.sesion_caja_id = ?", sesionCajaID)
	if metodo != "" {
		q = q.Where("venta_pagos.metodo = ?", metodo)
	}
	err := q.Order("venta_pagos.created_at ASC").Find(&pagos).Error
	return pagos, err
}
