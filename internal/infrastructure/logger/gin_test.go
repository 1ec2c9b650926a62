package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveLogged(t *testing.T, level zapcore.Level, register func(*gin.Engine), method, target string, header http.Header) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	register(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	engine.ServeHTTP(w, req)
	return w, recorded
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	w, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/stock", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	}, http.MethodGet, "/stock", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/stock", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
}

func TestGinMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/stock", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock", nil))

	entry := requestLog(t, recorded)
	assert.Equal(t, "req-42", entry.ContextMap()["request_id"])
}

func TestGinMiddleware_LogLevelByStatus(t *testing.T) {
	_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	}, http.MethodGet, "/bad", nil)
	assert.Equal(t, zapcore.WarnLevel, requestLog(t, recorded).Level)

	_, recorded = serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	}, http.MethodGet, "/boom", nil)
	assert.Equal(t, zapcore.ErrorLevel, requestLog(t, recorded).Level)
}

func TestGinMiddleware_IncludesQuery(t *testing.T) {
	_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/stock", func(c *gin.Context) { c.Status(http.StatusOK) })
	}, http.MethodGet, "/stock?page=2&search=widget", nil)

	query, _ := requestLog(t, recorded).ContextMap()["query"].(string)
	assert.Contains(t, query, "search=widget")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/panic", entries[0].ContextMap()["path"])
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, _ := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))

	var got *zap.Logger
	engine.GET("/stock", func(c *gin.Context) {
		got = GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stock", nil))
	assert.NotNil(t, got)
}

func TestGetGinLogger_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	got := GetGinLogger(c)
	require.NotNil(t, got)
	assert.NotPanics(t, func() { got.Info("nop") })
}
