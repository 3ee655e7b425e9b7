package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: string(LevelWarn), JSON: true, Output: &buf})

	l.Info("dropped")
	l.Warn("kept", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "value", rec["key"])
}

func TestMiddlewareTagsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := New(Config{Level: string(LevelDebug), JSON: true, Output: &buf})

	engine := gin.New()
	engine.Use(Middleware(l))
	engine.GET("/x", func(c *gin.Context) {
		c.Set("userID", "u1")
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	out := buf.String()
	assert.Contains(t, out, `"request completed"`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Middleware(Nop()))
	engine.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("requestID"))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", w.Body.String())
}
