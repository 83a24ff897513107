package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/models"
)

// RequireRole lets the request through only for principals holding one of
// roles. It must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if !p.Authenticated() {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}

		apierrors.Forbidden(c, "")
		c.Abort()
	}
}

// RequireStaff admits ADMIN and SUPERADMIN principals.
func RequireStaff() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
}
