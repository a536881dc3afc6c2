package middleware

import (
	"net/http"
	"strings"

	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const callerKey = "caller"

// Caller is the authenticated identity for one request, resolved once at the
// request boundary and read explicitly by handlers.
type Caller struct {
	UserID string
}

func extractJwtClaims(c *gin.Context) (jwt.MapClaims, bool) {
	authHeader := c.GetHeader("Authorization")

	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
		c.Abort()
		return nil, false
	}

	authHeader = strings.Trim(authHeader, "\"' ")

	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		authHeader = "Bearer " + authHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format, expected: Bearer <token>"})
		c.Abort()
		return nil, false
	}

	tokenString := parts[1]
	tokenString = strings.Trim(tokenString, "\"' ")

	claims, err := utils.DecodeJWT(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token: " + err.Error()})
		c.Abort()
		return nil, false
	}

	return claims, true
}

// JWTAuth verifies the bearer token issued by the identity provider and
// stores the resulting Caller on the request context.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := extractJwtClaims(c)
		if !ok {
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			// Some identity providers put the subject in "sub".
			userID, _ = claims["sub"].(string)
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token carries no user id"})
			c.Abort()
			return
		}

		c.Set(callerKey, Caller{UserID: userID})
		c.Next()
	}
}

// CallerFrom returns the authenticated caller for the request. The second
// return is false on routes that skipped JWTAuth.
func CallerFrom(c *gin.Context) (Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}

// SetCaller injects a caller directly; used by tests.
func SetCaller(c *gin.Context, caller Caller) {
	c.Set(callerKey, caller)
}
