package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
)

const contextKeyIDParam = "id_param"

// RequireIDParam parses the :id path parameter and rejects malformed IDs
// before the handler runs.
func RequireIDParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "Invalid ID")
			c.Abort()
			return
		}

		c.Set(contextKeyIDParam, id)
		c.Next()
	}
}

// GetIDParam returns the ID parsed by RequireIDParam.
func GetIDParam(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(contextKeyIDParam)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
