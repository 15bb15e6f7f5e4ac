package handler

import (
	"net/http"

	"cajapos/internal/dto"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Registra una venta contra una sesion abierta. Los pagos pueden dividirse entre efectivo, tarjeta y transferencia (un pago por metodo) y deben sumar el total con tolerancia 0.01.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.MontosError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarVenta(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	marcarSesion(c, resp.SesionCajaID)
	c.JSON(http.StatusCreated, resp)
}

// ValidarPagos godoc
// @Summary      Validar un pago dividido sin registrarlo
// @Description  Con borrador=true se aceptan filas en cero y no se compara contra el total.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ValidarPagosRequest true "Pagos a validar"
// @Success      200  {object} dto.ValidarPagosResponse
// @Failure      422  {object} apierror.MontosError
// @Router       /v1/ventas/validar-pagos [post]
func (h *VentasHandler) ValidarPagos(c *gin.Context) {
	var req dto.ValidarPagosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ValidarPagos(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarPorSesion godoc
// @Summary      Ventas registradas en una sesion de caja
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "ID de sesion"
// @Success      200  {array}  dto.VentaResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/caja/{id}/ventas [get]
func (h *VentasHandler) ListarPorSesion(c *gin.Context) {
	lector, ok := lectorActual(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarPorSesion(c.Request.Context(), lector, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
