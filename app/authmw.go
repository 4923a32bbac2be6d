package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"equiplend/lending"
	"equiplend/models"
	"equiplend/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const AppSessionCookie = "app_session"

const identityKey = "identity"

// IdentityResolver 访问网关：凭证 → 身份
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, credential string) (models.Identity, error)
}

type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type SessionReader interface {
	Get(ctx context.Context, id string) (*session.AppSession, error)
	Delete(ctx context.Context, id string) error
}

// Gate resolves bearer tokens through the Redis session store and the user table,
// so role changes apply on the next request.
type Gate struct {
	sessions SessionReader
	users    UserFinder
}

func NewGate(sessions SessionReader, users UserFinder) *Gate {
	return &Gate{sessions: sessions, users: users}
}

func (g *Gate) ResolveIdentity(ctx context.Context, credential string) (models.Identity, error) {
	if credential == "" {
		return models.Identity{}, lending.ErrUnauthorized
	}
	as, err := g.sessions.Get(ctx, credential)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return models.Identity{}, lending.ErrUnauthorized
		}
		return models.Identity{}, err
	}
	u, err := g.users.FindUserByID(ctx, as.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, err
		}
		// 用户已不存在：会话作废
		_ = g.sessions.Delete(ctx, credential)
		return models.Identity{}, lending.ErrUnauthorized
	}
	role, ok := models.ParseRole(string(u.Role))
	if !ok {
		return models.Identity{}, lending.ErrForbidden
	}
	return models.Identity{UserID: u.ID, Role: role}, nil
}

// Credential reads "Authorization: Bearer <token>", falling back to the session cookie.
func Credential(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func AuthRequired(gate IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gate.ResolveIdentity(c.Request.Context(), Credential(c))
		if err != nil {
			switch lending.Code(err) {
			case lending.CodeUnauthorized:
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "code": lending.CodeUnauthorized})
			case lending.CodeForbidden:
				c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "code": lending.CodeForbidden})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, H{"error": "internal error"})
			}
			return
		}
		// 把身份放进上下文，后续 handler 可用
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller's role passes can.
func RequireRole(can func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "code": lending.CodeUnauthorized})
			return
		}
		if !can(id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "code": lending.CodeForbidden})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc { return RequireRole(models.Role.CanAdminister) }

// IdentityFrom returns the identity set by AuthRequired, or Anonymous.
func IdentityFrom(c *gin.Context) models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}
	}
	id, _ := v.(models.Identity)
	return id
}
