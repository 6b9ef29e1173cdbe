package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyah/notifyah/pkg/auth"
)

const testSecret = "test-secret-test-secret-test-secret"

func newAuthEngine(t *testing.T) (*gin.Engine, auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := auth.NewJWTService(testSecret, time.Hour)
	engine := gin.New()
	engine.GET("/protected", NewAuthMiddleware(jwtSvc).Authenticate(), func(c *gin.Context) {
		userID, ok := UserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, strconv.FormatInt(userID, 10))
	})
	return engine, jwtSvc
}

func TestAuthenticateValidToken(t *testing.T) {
	engine, jwtSvc := newAuthEngine(t)

	token, err := jwtSvc.GenerateToken(42, "user")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestAuthenticateMissingHeader(t *testing.T) {
	engine, _ := newAuthEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	engine, jwtSvc := newAuthEngine(t)

	token, err := jwtSvc.GenerateToken(42, "user")
	require.NoError(t, err)

	cases := []string{token, "Basic " + token, "Bearer"}
	for _, header := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	engine, _ := newAuthEngine(t)

	token, err := auth.NewJWTService(testSecret, -time.Minute).GenerateToken(42, "user")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
