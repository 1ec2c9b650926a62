package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping() error { return p.err }

func TestSystemHandler_Healthz(t *testing.T) {
	h := NewSystemHandler("stockbooks-backend", &fakePinger{})

	router := gin.New()
	router.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestSystemHandler_Readyz(t *testing.T) {
	h := NewSystemHandler("stockbooks-backend", &fakePinger{})

	router := gin.New()
	router.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestSystemHandler_Readyz_DatabaseDown(t *testing.T) {
	h := NewSystemHandler("stockbooks-backend", &fakePinger{err: errors.New("connection refused")})

	router := gin.New()
	router.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("stockbooks-backend", nil)

	router := gin.New()
	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockbooks-backend")
	assert.Contains(t, w.Body.String(), "go1.")
}
