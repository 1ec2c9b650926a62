package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbooks/backend/internal/interfaces/http/dto"
)

type validationTestRequest struct {
	Name string `json:"name" binding:"required,max=5"`
	Kind string `json:"kind" binding:"required,oneof=percentage amount"`
}

func TestFormatValidationErrors_FieldDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"name":"too long a name","kind":"half"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req validationTestRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	resp := FormatValidationErrors(err, "req-123")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)

	fields := make(map[string]string)
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Contains(t, fields["name"], "at most 5")
	assert.Contains(t, fields["kind"], "percentage amount")
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req validationTestRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	resp := FormatValidationErrors(err, "")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestHandleValidationError_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req validationTestRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	HandleValidationError(c, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
