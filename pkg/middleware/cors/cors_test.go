package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bloghive/auth-service/pkg/config"
)

func doRequest(t *testing.T, cfg config.CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(New(cfg))
	r.POST("/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/login", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowedOriginEchoedBack(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://app.bloghive.io/"}}

	w := doRequest(t, cfg, http.MethodPost, "https://app.bloghive.io")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.bloghive.io", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestUnlistedOriginGetsNoAllowHeader(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://app.bloghive.io"}}

	w := doRequest(t, cfg, http.MethodPost, "https://evil.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmptyAllowListPermitsAny(t *testing.T) {
	w := doRequest(t, config.CORSConfig{}, http.MethodPost, "https://anywhere.example.com")
	assert.Equal(t, "https://anywhere.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://app.bloghive.io"}}

	w := doRequest(t, cfg, http.MethodOptions, "https://app.bloghive.io")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}
