package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/auth"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey             = "userID"
	UsernameKey           = "username"
	MustChangePasswordKey = "mustChangePassword"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the access token and stores the reviewer identity on the context.
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(MustChangePasswordKey, claims.MustChangePassword)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or "" on public routes.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
