package handler

import (
	"errors"
	"net/http"

	"cajapos/internal/apierror"
	"cajapos/internal/caja"
	"cajapos/internal/middleware"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// usuarioActual extracts the caller's id from the JWT claims.
func usuarioActual(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("ID de usuario inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// lectorActual is usuarioActual plus whether the caller's role reads every
// register.
func lectorActual(c *gin.Context) (service.Lector, bool) {
	id, ok := usuarioActual(c)
	if !ok {
		return service.Lector{}, false
	}
	return service.Lector{UsuarioID: id, VeTodas: middleware.GetClaims(c).SupervisaCajas()}, true
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	marcarSesion(c, id.String())
	return id, true
}

// marcarSesion tags the request with the register it touched for the access log.
func marcarSesion(c *gin.Context, sesionID string) {
	if sesionID != "" {
		c.Set(middleware.SesionCajaIDKey, sesionID)
	}
}

// respondError maps service and register errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		ve *caja.ValidationError
		pe *caja.PreconditionError
		re *caja.ReconciliationError
		de *caja.DataIntegrityError
	)
	switch {
	case errors.As(err, &re):
		c.JSON(http.StatusConflict, apierror.NewMontos(re.Code, "El efectivo contado no coincide con el esperado", re.Esperado, re.Contado))
	case errors.As(err, &ve):
		if ve.Esperado != nil && ve.Obtenido != nil {
			c.JSON(http.StatusUnprocessableEntity, apierror.NewMontos(ve.Code, "La suma de los pagos no coincide con el total", *ve.Esperado, *ve.Obtenido))
			return
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(ve.Code, mensajes[ve.Code]))
	case errors.As(err, &pe):
		c.JSON(http.StatusConflict, apierror.WithCode(pe.Code, mensajes[pe.Code]))
	case errors.As(err, &de):
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("code", de.Code).
			Err(err).
			Msg("datos de caja inconsistentes")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(de.Code, "Datos de caja inconsistentes"))
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrIDInvalido):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
	}
}

var mensajes = map[string]string{
	caja.CodeSesionYaAbierta:  "Ya existe una sesión de caja abierta",
	caja.CodeSesionNoAbierta:  "No hay una sesión de caja abierta",
	caja.CodeMontoInicial:     "El monto inicial debe ser mayor a cero",
	caja.CodeMontoInvalido:    "Monto inválido",
	caja.CodeDescripcionVacia: "La descripción es obligatoria",
	caja.CodeTipoInvalido:     "Tipo de movimiento inválido",
	caja.CodeMetodoInvalido:   "Método de pago inválido",
	caja.CodeMetodoDuplicado:  "Método de pago repetido",
	caja.CodeDemasiadosPagos:  "Demasiados pagos para una venta",
	caja.CodeMontoNoCoincide:  "La suma de los pagos no coincide con el total",
	caja.CodeMontoFaltante:    "Falta el monto de un pago",
	caja.CodeMovimientoAjeno:  "El movimiento pertenece a otra sesión",
}
