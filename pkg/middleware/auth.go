package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Clement-coder/retrust-marketplace/pkg/jwt"
)

const (
	AddressKey    = "address"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddleware resolves the caller address from a signed identity token.
// How the token is minted (wallet signature verification) is the concern of
// the external auth boundary; here it is only verified.
type AuthMiddleware struct {
	tokens *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireCaller returns a Gin middleware that validates the identity token
// and stores the caller address in the request context.
func (m *AuthMiddleware) RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format",
			})
			return
		}

		claims, err := m.tokens.Validate(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(AddressKey, claims.Address)
		if claims.Username != "" {
			c.Set(UsernameKey, claims.Username)
		}

		c.Next()
	}
}

// GetCallerAddress extracts the verified caller address from Gin context.
func GetCallerAddress(c *gin.Context) string {
	if addr, exists := c.Get(AddressKey); exists {
		return addr.(string)
	}
	return ""
}

// GetCallerUsername extracts the caller username from Gin context.
func GetCallerUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		return username.(string)
	}
	return ""
}
