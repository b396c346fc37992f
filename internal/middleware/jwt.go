package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"patientsummary/internal/pkg/errcode"
	"patientsummary/internal/pkg/jwt"
	"patientsummary/internal/pkg/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

// RequireSelf rejects requests whose token does not belong to the user named
// in the path. Runs after JWTAuth.
func RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		pathUser := c.Param("username")
		tokenUser := c.GetString(ContextUsernameKey)
		if pathUser == "" || tokenUser == "" || pathUser != tokenUser {
			response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "token does not match user")
			c.Abort()
			return
		}
		c.Next()
	}
}
