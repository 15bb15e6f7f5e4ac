package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cajapos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret, userID, rol string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID, "username": "testuser", "rol": rol,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func ginTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.JWTAuth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "rol": claims.Rol})
	})
	r.GET("/supervisor", middleware.RequireRole("supervisor", "administrador"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := ginTestRouter()
	userID := "5b7c1c1e-8d1a-4c39-9f5e-2a0e6f1c9b10"

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"sin token", "", http.StatusUnauthorized},
		{"token valido", signToken(t, testSecret, userID, "cajero", time.Hour), http.StatusOK},
		{"token expirado", signToken(t, testSecret, userID, "cajero", -time.Hour), http.StatusUnauthorized},
		{"firma distinta", signToken(t, "otra-clave", userID, "cajero", time.Hour), http.StatusUnauthorized},
		{"sin user_id", signToken(t, testSecret, "", "cajero", time.Hour), http.StatusUnauthorized},
		{"basura", "no.es.jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, "/protected", tc.token)
			assert.Equal(t, tc.want, w.Code)
		})
	}

	w := get(r, "/protected", signToken(t, testSecret, userID, "cajero", time.Hour))
	assert.Contains(t, w.Body.String(), userID)
}

func TestRequireRole(t *testing.T) {
	r := ginTestRouter()
	id := "5b7c1c1e-8d1a-4c39-9f5e-2a0e6f1c9b10"

	w := get(r, "/supervisor", signToken(t, testSecret, id, "cajero", time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "/supervisor", signToken(t, testSecret, id, "supervisor", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	w := get(r, "/", "")
	generated := w.Header().Get(middleware.RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestRecoveryAndErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/error", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := get(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")

	w = get(r, "/error", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestLogger_CamposDeCaja(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger())
	r.GET("/caja/:id", func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: "u-1", Rol: middleware.RolCajero})
		c.Set(middleware.SesionCajaIDKey, c.Param("id"))
		c.Status(http.StatusConflict)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/caja/s-1", "")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "s-1", line["sesion_caja_id"])
	assert.Equal(t, "u-1", line["usuario_id"])
	assert.Equal(t, float64(http.StatusConflict), line["status"])

	buf.Reset()
	get(r, "/health", "")
	line = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.NotContains(t, line, "sesion_caja_id")
}

func TestSupervisaCajas(t *testing.T) {
	var nadie *middleware.JWTClaims
	assert.False(t, nadie.SupervisaCajas())
	assert.False(t, (&middleware.JWTClaims{Rol: middleware.RolCajero}).SupervisaCajas())
	assert.True(t, (&middleware.JWTClaims{Rol: middleware.RolSupervisor}).SupervisaCajas())
	assert.True(t, (&middleware.JWTClaims{Rol: middleware.RolAdministrador}).SupervisaCajas())
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS("https://caja.example.com"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://caja.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIPRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := middleware.NewIPRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(l.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	// buckets are per IP
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))

	assert.Equal(t, 0, l.Purge(time.Hour))
	assert.Equal(t, 2, l.Purge(-time.Second))
}
