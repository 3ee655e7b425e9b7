package validator

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /api/v1/auth/login:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [email, password]
              properties:
                email: {type: string}
                password: {type: string}
      responses:
        "200":
          description: ok
`

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadErrors(t *testing.T) {
	_, err := NewOpenAPIValidator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v, err := NewOpenAPIValidator(writeSchema(t, schema))
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(v.Middleware())
	r.POST("/api/v1/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/undocumented", func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post(`{"email":"a@b.test","password":"x"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"email":"a@b.test"}`))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/undocumented", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
