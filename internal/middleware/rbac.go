package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
	"github.com/noah-isme/sma-transcript-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CanRead admits every staff role.
func CanRead() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleStaff, models.RoleViewer)
}

// CanWrite admits roles allowed to change records.
func CanWrite() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleStaff)
}
