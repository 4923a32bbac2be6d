package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"equiplend/app"
	"equiplend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InviteController struct{ *Srv }

// 用新的 *Srv 作为依赖入口
func NewInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /api/admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Role    string `json:"role"`
		Expires int    `json:"expiresDays"` // 默认 INVITE_TTL
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	role := models.RoleStaff
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			badRequest(c, "unknown role")
			return
		}
		role = r
	}
	ttl := ic.Cfg.InviteTTL
	if in.Expires > 0 {
		ttl = time.Duration(in.Expires) * 24 * time.Hour
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	// 一次性 token
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Users.CreateInvite(ctx, in.Email, token, role, time.Now().Add(ttl), app.IdentityFrom(c).UserID)
	if err != nil {
		ic.fail(c, err)
		return
	}

	// 前端注册页带 inviteToken
	link := strings.TrimRight(ic.Cfg.WebOrigin, "/") + "/signup?inviteToken=" + token
	ic.Log.Info("invite issued", "email", inv.Email, "role", role, "link", link)

	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"link":   link,
		"invite": inv,
	})
}
