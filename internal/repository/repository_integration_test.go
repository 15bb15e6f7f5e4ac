//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("cajapos_test"),
		tcPostgres.WithUsername("cajapos"),
		tcPostgres.WithPassword("cajapos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// NewDatabase runs the migrations; running them again must be a no-op.
	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func abierta(usuario uuid.UUID) *model.SesionCaja {
	return &model.SesionCaja{
		UsuarioID:    usuario,
		MontoInicial: decimal.NewFromInt(100),
		Estado:       "abierta",
		OpenedAt:     time.Now().UTC(),
	}
}

func TestCajaRepository_Integration(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()
	usuario := uuid.New()

	t.Run("una sola sesion abierta por usuario", func(t *testing.T) {
		s := abierta(usuario)
		require.NoError(t, repo.CreateSesion(ctx, s))
		assert.NotEqual(t, uuid.Nil, s.ID)

		err := repo.CreateSesion(ctx, abierta(usuario))
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

		// other users are unaffected
		require.NoError(t, repo.CreateSesion(ctx, abierta(uuid.New())))
	})

	actual, err := repo.FindSesionAbiertaPorUsuario(ctx, usuario)
	require.NoError(t, err)
	require.NotNil(t, actual)

	t.Run("movimientos mas recientes primero", func(t *testing.T) {
		for i, d := range []string{"primero", "segundo"} {
			require.NoError(t, repo.CreateMovimiento(ctx, &model.MovimientoCaja{
				SesionCajaID: actual.ID,
				Tipo:         "ingreso",
				Monto:        decimal.NewFromInt(int64(10 * (i + 1))),
				Descripcion:  d,
				CreatedAt:    time.Now().UTC().Add(time.Duration(i) * time.Second),
			}))
		}
		movs, err := repo.ListMovimientos(ctx, actual.ID)
		require.NoError(t, err)
		require.Len(t, movs, 2)
		assert.Equal(t, "segundo", movs[0].Descripcion)
	})

	t.Run("monto no positivo rechazado por la base", func(t *testing.T) {
		err := repo.CreateMovimiento(ctx, &model.MovimientoCaja{
			SesionCajaID: actual.ID, Tipo: "retiro", Monto: decimal.Zero, Descripcion: "x",
		})
		assert.Error(t, err)
	})

	t.Run("cerrar solo una vez", func(t *testing.T) {
		closedAt := time.Now().UTC()
		ef, tj, tr := decimal.NewFromInt(130), decimal.Zero, decimal.Zero
		cerrar := func(s *model.SesionCaja, movs []model.MovimientoCaja, pagos []model.VentaPago) (*model.SesionCaja, error) {
			assert.Len(t, movs, 2)
			assert.Empty(t, pagos)
			s.Estado = "cerrada"
			s.ClosedAt = &closedAt
			s.MontoFinalEfectivo, s.MontoFinalTarjeta, s.MontoFinalTransferencia = &ef, &tj, &tr
			s.MontoContado = &ef
			return s, nil
		}

		// an error from the callback aborts without writing
		rechazo := errors.New("diferencia")
		err := repo.CerrarSesion(ctx, actual.ID, func(*model.SesionCaja, []model.MovimientoCaja, []model.VentaPago) (*model.SesionCaja, error) {
			return nil, rechazo
		})
		assert.ErrorIs(t, err, rechazo)
		sigue, err := repo.FindSesionByID(ctx, actual.ID)
		require.NoError(t, err)
		assert.Equal(t, "abierta", sigue.Estado)

		require.NoError(t, repo.CerrarSesion(ctx, actual.ID, cerrar))
		assert.ErrorIs(t, repo.CerrarSesion(ctx, actual.ID, cerrar), repository.ErrSesionNoAbierta)

		got, err := repo.FindSesionByID(ctx, actual.ID)
		require.NoError(t, err)
		assert.Equal(t, "cerrada", got.Estado)
		assert.True(t, got.MontoFinalEfectivo.Equal(ef))

		none, err := repo.FindSesionAbiertaPorUsuario(ctx, usuario)
		require.NoError(t, err)
		assert.Nil(t, none)

		// a closed session takes no more movements
		err = repo.CreateMovimiento(ctx, &model.MovimientoCaja{
			SesionCajaID: actual.ID, Tipo: "ingreso", Monto: decimal.NewFromInt(5), Descripcion: "tarde",
		})
		assert.ErrorIs(t, err, repository.ErrSesionNoAbierta)

		// the partial index no longer blocks a new session
		require.NoError(t, repo.CreateSesion(ctx, abierta(usuario)))
	})

	t.Run("historial", func(t *testing.T) {
		list, total, err := repo.ListSesionesCerradas(ctx, usuario, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, actual.ID, list[0].ID)
	})

	_, err = repo.FindSesionByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVentaRepository_Integration(t *testing.T) {
	db := setupDB(t)
	cajaRepo := repository.NewCajaRepository(db)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()

	s := abierta(uuid.New())
	require.NoError(t, cajaRepo.CreateSesion(ctx, s))

	v := &model.Venta{
		SesionCajaID: s.ID,
		UsuarioID:    s.UsuarioID,
		Total:        decimal.NewFromInt(100),
		CreatedAt:    time.Now().UTC(),
		Pagos: []model.VentaPago{
			{Metodo: "efectivo", Monto: decimal.NewNullDecimal(decimal.NewFromInt(60))},
			{Metodo: "tarjeta", Monto: decimal.NewNullDecimal(decimal.NewFromInt(40))},
		},
	}
	require.NoError(t, repo.Create(ctx, v))
	assert.NotEqual(t, uuid.Nil, v.ID)

	ventas, err := repo.ListPorSesion(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, ventas, 1)
	assert.Len(t, ventas[0].Pagos, 2)

	todos, err := repo.ListPagosPorSesion(ctx, s.ID, "")
	require.NoError(t, err)
	assert.Len(t, todos, 2)

	efectivo, err := repo.ListPagosPorSesion(ctx, s.ID, "efectivo")
	require.NoError(t, err)
	require.Len(t, efectivo, 1)
	assert.True(t, efectivo[0].Monto.Valid)
	assert.True(t, efectivo[0].Monto.Decimal.Equal(decimal.NewFromInt(60)))

	// one row per method per sale
	dup := &model.Venta{
		SesionCajaID: s.ID, UsuarioID: s.UsuarioID, Total: decimal.NewFromInt(20), CreatedAt: time.Now().UTC(),
		Pagos: []model.VentaPago{
			{Metodo: "efectivo", Monto: decimal.NewNullDecimal(decimal.NewFromInt(10))},
			{Metodo: "efectivo", Monto: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		},
	}
	assert.Error(t, repo.Create(ctx, dup))
	ventas, err = repo.ListPorSesion(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, ventas, 1, "failed sale must roll back entirely")
}

func TestVentaRepository_CierreConcurrente_Integration(t *testing.T) {
	db := setupDB(t)
	cajaRepo := repository.NewCajaRepository(db)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()

	s := abierta(uuid.New())
	require.NoError(t, cajaRepo.CreateSesion(ctx, s))

	venta := func() *model.Venta {
		return &model.Venta{
			SesionCajaID: s.ID, UsuarioID: s.UsuarioID, Total: decimal.NewFromInt(10), CreatedAt: time.Now().UTC(),
			Pagos: []model.VentaPago{{Metodo: "efectivo", Monto: decimal.NewNullDecimal(decimal.NewFromInt(10))}},
		}
	}

	// Sales keep arriving while the close runs. Every sale either lands in the
	// closing snapshot or is rejected; none is stored unsettled.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		aceptadas int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, venta())
			if err == nil {
				mu.Lock()
				aceptadas++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrSesionNoAbierta)
		}()
	}

	var vistas int
	closedAt := time.Now().UTC()
	err := cajaRepo.CerrarSesion(ctx, s.ID, func(sc *model.SesionCaja, _ []model.MovimientoCaja, pagos []model.VentaPago) (*model.SesionCaja, error) {
		vistas = len(pagos)
		cero := decimal.Zero
		sc.Estado, sc.ClosedAt = "cerrada", &closedAt
		sc.MontoFinalEfectivo, sc.MontoFinalTarjeta, sc.MontoFinalTransferencia = &cero, &cero, &cero
		return sc, nil
	})
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, aceptadas, vistas)
	guardadas, err := repo.ListPorSesion(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, guardadas, aceptadas)

	assert.ErrorIs(t, repo.Create(ctx, venta()), repository.ErrSesionNoAbierta)
}
