package handler

import (
	"net/http"
	"strconv"

	"cajapos/internal/apierror"
	"cajapos/internal/dto"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.ReporteCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	marcarSesion(c, resp.SesionCajaID)
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion contra el conteo de efectivo
// @Description El conteo debe coincidir con el efectivo calculado (tolerancia 0.01). Si no coincide la sesion sigue abierta.
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Conteo de efectivo"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 409 {object} apierror.MontosError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	marcarSesion(c, resp.SesionCajaID)
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o retiro manual en caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	marcarSesion(c, resp.SesionCajaID)
	c.JSON(http.StatusCreated, resp)
}

// ObtenerActual godoc
// @Summary Sesion abierta del usuario con saldo en vivo
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/actual [get]
func (h *CajaHandler) ObtenerActual(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerActual(c.Request.Context(), usuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Sin sesión activa"))
		return
	}
	marcarSesion(c, resp.SesionCajaID)
	c.JSON(http.StatusOK, resp)
}

// ObtenerReporte godoc
// @Summary Obtiene el reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	lector, ok := lectorActual(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), lector, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary Movimientos manuales de una sesion, del mas reciente al mas antiguo
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {array} dto.MovimientoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/movimientos [get]
func (h *CajaHandler) ListarMovimientos(c *gin.Context) {
	lector, ok := lectorActual(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), lector, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TransaccionesEfectivo godoc
// @Summary Pagos en efectivo de las ventas de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.TransaccionesEfectivoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/transacciones-efectivo [get]
func (h *CajaHandler) TransaccionesEfectivo(c *gin.Context) {
	lector, ok := lectorActual(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.TransaccionesEfectivo(c.Request.Context(), lector, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of the caller's closed cash sessions.
func (h *CajaHandler) Historial(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	resp, err := h.svc.Historial(c.Request.Context(), usuarioID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
