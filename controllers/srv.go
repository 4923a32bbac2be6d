// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"equiplend/app"
	"equiplend/catalog"
	"equiplend/config"
	"equiplend/db"
	"equiplend/lending"
	"equiplend/logger"
	"equiplend/models"
	"equiplend/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Directory 是用户与邀请的持久化
type Directory interface {
	CreateUser(ctx context.Context, u *models.User) error
	CreateUserWithInvite(ctx context.Context, token string, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchUserLogin(ctx context.Context, userID string) error
	CreateInvite(ctx context.Context, email, token string, role models.Role, expiresAt time.Time, createdBy string) (*models.Invite, error)
}

type Sessions interface {
	TTL() time.Duration
	Create(ctx context.Context, id, userID string) error
	Get(ctx context.Context, id string) (*session.AppSession, error)
	Delete(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type Srv struct {
	Engine   *lending.Engine
	Catalog  *catalog.Service
	Users    Directory
	Sessions Sessions
	Log      *logger.Logger
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Engine:   a.Engine,
		Catalog:  a.Catalog,
		Users:    a.Repo,
		Sessions: a.AppSessions(),
		Log:      a.Log,
		Cfg:      a.Config,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：创建会话 + 记录登录
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string) (string, error) {
	if err := s.Users.TouchUserLogin(ctx, userID); err != nil {
		s.Log.Warn("touch login failed", "user_id", userID, "err", err) // 不阻塞
	}
	id := uuid.NewString()
	if err := s.Sessions.Create(ctx, id, userID); err != nil {
		return "", err
	}
	s.setAppCookie(w, id, s.Sessions.TTL())
	return id, nil
}

func statusFor(code lending.ErrCode) int {
	switch code {
	case lending.CodeUnauthorized:
		return http.StatusUnauthorized
	case lending.CodeForbidden:
		return http.StatusForbidden
	case lending.CodeNotFound:
		return http.StatusNotFound
	case lending.CodeItemUnavailable, lending.CodeAlreadyProcessed, lending.CodeReturnNotApplicable,
		lending.CodeInvalidTransition, lending.CodeItemInUse:
		return http.StatusConflict
	case lending.CodeInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error","code"}; infrastructure errors are logged and hidden.
func (s *Srv) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrEmailTaken):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "EMAIL_TAKEN"})
		return
	case errors.Is(err, db.ErrInviteUnusable):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "INVITE_UNUSABLE"})
		return
	}
	if !lending.IsDomain(err) {
		s.Log.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
		return
	}
	code := lending.Code(err)
	c.JSON(statusFor(code), app.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg, "code": lending.CodeInvalidInput})
}

// idParam 取路径 uuid；非法 id 视为不存在
func idParam(c *gin.Context, name string, notFound error) (string, error) {
	return parseID(c.Param(name), notFound)
}

func parseID(raw string, notFound error) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", notFound
	}
	return id.String(), nil
}
