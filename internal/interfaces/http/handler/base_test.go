package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/stockbooks/backend/internal/domain/shared"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func TestGetTenantID_FromHeader(t *testing.T) {
	c, _ := newTestContext()
	tenantID := uuid.New()
	c.Request.Header.Set("X-Tenant-ID", tenantID.String())

	got, err := getTenantID(c)
	assert.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestGetTenantID_FromJWTClaims(t *testing.T) {
	c, _ := newTestContext()
	tenantID := uuid.New()
	c.Set("jwt_tenant_id", tenantID.String())

	got, err := getTenantID(c)
	assert.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestGetTenantID_ClaimsWinOverHeader(t *testing.T) {
	c, _ := newTestContext()
	claimsTenant := uuid.New()
	c.Set("jwt_tenant_id", claimsTenant.String())
	c.Request.Header.Set("X-Tenant-ID", uuid.New().String())

	got, err := getTenantID(c)
	assert.NoError(t, err)
	assert.Equal(t, claimsTenant, got)
}

func TestGetTenantID_Missing(t *testing.T) {
	c, _ := newTestContext()

	_, err := getTenantID(c)
	assert.Error(t, err)
}

func TestGetTenantID_Malformed(t *testing.T) {
	c, _ := newTestContext()
	c.Request.Header.Set("X-Tenant-ID", "not-a-uuid")

	_, err := getTenantID(c)
	assert.Error(t, err)
}

func TestHandleDomainError_KnownCodes(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name     string
		err      error
		status   int
		wireCode string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, "ERR_CONCURRENCY_CONFLICT"},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, "ERR_INVALID_STATE"},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_STOCK"},
		{"over fulfillment", shared.ErrOverFulfillment, http.StatusUnprocessableEntity, "ERR_OVER_FULFILLMENT"},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, "ERR_INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.wireCode)
		})
	}
}

func TestHandleDomainError_UnknownErrorIsOpaque(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleDomainError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
}

func TestSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a"}, 41, 3, 10)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":41`)
	assert.Contains(t, w.Body.String(), `"total_pages":5`)
}
