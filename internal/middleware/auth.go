package middleware

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/access"
	"github.com/yukikurage/taskscope/internal/constants"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
)

// UserLoader resolves an active account by ID.
type UserLoader interface {
	GetUser(id uint64) (*models.User, error)
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(tokenString, tokenType string) (*services.TokenClaims, error)
}

// RequireAuth authenticates the request with a bearer access token or, when
// no Authorization header is sent, with the session cookie. The account is
// reloaded so deactivated users lose access immediately.
func RequireAuth(users UserLoader, tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticate(c, tokens)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := users.GetUser(userID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				apierrors.InternalError(c, "Failed to load user")
				c.Abort()
				return
			}
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyRole, user.Role)
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens TokenParser) (uint64, bool) {
	if header := c.GetHeader(constants.HeaderAuthorization); header != "" {
		if tokens == nil || !strings.HasPrefix(header, constants.BearerPrefix) {
			return 0, false
		}
		claims, err := tokens.Parse(strings.TrimPrefix(header, constants.BearerPrefix), services.TokenTypeAccess)
		if err != nil {
			return 0, false
		}
		id, err := claims.UserID()
		if err != nil {
			return 0, false
		}
		return id, true
	}

	session := sessions.Default(c)
	return toUint64(session.Get(constants.ContextKeyUserID))
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetPrincipal retrieves the authenticated principal from context. The zero
// Principal is returned for anonymous requests and is denied everything.
func GetPrincipal(c *gin.Context) access.Principal {
	id, ok := GetUserID(c)
	if !ok {
		return access.Principal{}
	}
	role, _ := c.Get(constants.ContextKeyRole)
	r, _ := role.(models.Role)
	return access.Principal{ID: id, Role: r}
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
