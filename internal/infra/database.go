package infra

import (
	"fmt"

	"cajapos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date. TranslateError is on so unique-index violations surface
// as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates the register tables and applies the
// patches AutoMigrate cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Venta{},
		&model.VentaPago{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own (partial indexes, check constraints). Each statement uses
// IF NOT EXISTS semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open session per owner. Two concurrent Abrir calls that
		// both passed the lookup race here; the loser gets ErrDuplicatedKey.
		{"one open session per usuario", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_una_abierta
    ON sesiones_caja (usuario_id)
    WHERE estado = 'abierta'`},
		{"sesiones_caja estado check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sesiones_caja_estado') THEN
    ALTER TABLE sesiones_caja
      ADD CONSTRAINT chk_sesiones_caja_estado CHECK (estado IN ('abierta', 'cerrada'));
  END IF;
END $$`},
		{"movimientos_caja monto check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimientos_caja_monto') THEN
    ALTER TABLE movimientos_caja
      ADD CONSTRAINT chk_movimientos_caja_monto CHECK (monto > 0);
  END IF;
END $$`},
		// one row per method per sale
		{"venta_pagos unique metodo", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_venta_pagos_venta_metodo
    ON venta_pagos (venta_id, metodo)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
