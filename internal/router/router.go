package router

import (
	"cajapos/internal/cache"
	"cajapos/internal/config"
	"cajapos/internal/handler"
	"cajapos/internal/infra"
	"cajapos/internal/middleware"
	"cajapos/internal/repository"
	"cajapos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Caja   service.CajaService
	Ventas service.VentaService
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB, with the session
// report cache in Redis when rdb is set and in-process otherwise.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, limiter *middleware.IPRateLimiter) *gin.Engine {
	// ── Report cache ─────────────────────────────────────────────────────────
	var (
		reportes cache.ReporteCache
		redisCB  *infra.CircuitBreaker
	)
	if rdb != nil {
		redisCB = infra.NewCircuitBreaker(infra.DefaultCBConfig("redis-reportes"))
		reportes = cache.NewRedis(rdb, cfg.ReporteCacheTTL, redisCB)
		log.Info().Dur("ttl", cfg.ReporteCacheTTL).Msg("reporte cache: redis")
	} else {
		reportes = cache.NewMemoria(cfg.ReporteCacheTTL)
		log.Info().Dur("ttl", cfg.ReporteCacheTTL).Msg("reporte cache: in-process")
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	cajaSvc := service.NewCajaService(cajaRepo, ventaRepo, reportes)
	ventaSvc := service.NewVentaService(ventaRepo, cajaSvc, reportes)

	return Engine(cfg, Services{Caja: cajaSvc, Ventas: ventaSvc}, handler.Health(db, rdb, redisCB), limiter)
}

// Engine builds the middleware chain and routes on top of already wired services.
func Engine(cfg *config.Config, svcs Services, health gin.HandlerFunc, limiter *middleware.IPRateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	if limiter != nil {
		r.Use(limiter.Handler())
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(svcs.Caja)
	ventasH := handler.NewVentasHandler(svcs.Ventas)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", health)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	cualquierRol := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	v1 := r.Group("/v1", jwtMW, cualquierRol)
	{
		v1.POST("/ventas", ventasH.RegistrarVenta)
		v1.POST("/ventas/validar-pagos", ventasH.ValidarPagos)

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/cerrar", cajaH.Cerrar)
			caja.POST("/movimiento", cajaH.RegistrarMovimiento)
			caja.GET("/actual", cajaH.ObtenerActual)
			caja.GET("/historial", cajaH.Historial)
			caja.GET("/:id/reporte", cajaH.ObtenerReporte)
			caja.GET("/:id/movimientos", cajaH.ListarMovimientos)
			caja.GET("/:id/transacciones-efectivo", cajaH.TransaccionesEfectivo)
			caja.GET("/:id/ventas", ventasH.ListarPorSesion)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
