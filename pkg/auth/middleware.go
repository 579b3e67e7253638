package auth

import (
	"net/http"
	"strings"

	"github.com/example/bakery/pkg/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const claimsKey = "auth.claims"

func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireUser accepts any valid access token.
func RequireUser(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		claims, err := tokens.Parse(raw, KindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin accepts access tokens carrying the admin role.
func RequireAdmin(tokens *TokenIssuer) gin.HandlerFunc {
	requireUser := RequireUser(tokens)
	return func(c *gin.Context) {
		requireUser(c)
		if c.IsAborted() {
			return
		}
		if claims := ClaimsFrom(c); claims == nil || claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		}
	}
}

func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID returns the authenticated subject as an ObjectID.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	claims := ClaimsFrom(c)
	if claims == nil {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
