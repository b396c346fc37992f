package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"patientsummary/internal/pkg/jwt"
)

func authRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/users/:username")
	group.Use(JWTAuth(secret), RequireSelf())
	group.GET("/files", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64(ContextUserIDKey)})
	})
	return r
}

func TestJWTAuthMissingToken(t *testing.T) {
	r := authRouter([]byte("secret"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest("GET", "/users/alice/files", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTAuthBadToken(t *testing.T) {
	r := authRouter([]byte("secret"))
	req := httptest.NewRequest("GET", "/users/alice/files", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireSelfMismatch(t *testing.T) {
	secret := []byte("secret")
	token, err := jwt.GenerateToken(1, "alice", secret, time.Hour)
	require.NoError(t, err)

	r := authRouter(secret)
	req := httptest.NewRequest("GET", "/users/bob/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequireSelfMatch(t *testing.T) {
	secret := []byte("secret")
	token, err := jwt.GenerateToken(1, "alice", secret, time.Hour)
	require.NoError(t, err)

	r := authRouter(secret)
	req := httptest.NewRequest("GET", "/users/alice/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}
