package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"equiplend/app"
	"equiplend/lending"
	"equiplend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

type signupReq struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role"`
	InviteToken string `json:"inviteToken"`
}

// POST /api/signup
func (ac *AuthController) Signup(c *gin.Context) {
	var in signupReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(in.Password) < minPasswordLen {
		badRequest(c, "password must be at least 8 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		ac.fail(c, err)
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	ctx := c.Request.Context()

	if in.InviteToken != "" {
		// 有邀请：角色以邀请为准
		err = ac.Users.CreateUserWithInvite(ctx, in.InviteToken, u)
	} else {
		role := models.RoleStudent
		if in.Role != "" {
			r, ok := models.ParseRole(in.Role)
			if !ok {
				badRequest(c, "unknown role")
				return
			}
			role = r
		}
		if role.CanAdminister() {
			c.JSON(http.StatusForbidden, app.H{"error": "admin accounts require an invite", "code": lending.CodeForbidden})
			return
		}
		u.Role = role
		err = ac.Users.CreateUser(ctx, u)
	}
	if err != nil {
		ac.fail(c, err)
		return
	}
	ac.Log.Info("user signed up", "user_id", u.ID, "role", u.Role)
	c.JSON(http.StatusCreated, app.H{"user": u})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/login
func (ac *AuthController) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	u, err := ac.Users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, app.H{"error": "invalid email or password", "code": lending.CodeUnauthorized})
			return
		}
		ac.fail(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid email or password", "code": lending.CodeUnauthorized})
		return
	}
	token, err := ac.issueSession(ctx, c.Writer, u.ID)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"token":     token,
		"expiresIn": int(ac.Sessions.TTL().Seconds()),
		"user":      u,
	})
}

// POST /api/logout  (?all=1 撤销该用户全部会话)
func (ac *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	var err error
	if c.Query("all") == "1" {
		err = ac.Sessions.RevokeAllForUser(ctx, app.IdentityFrom(c).UserID)
	} else {
		err = ac.Sessions.Delete(ctx, app.Credential(c))
	}
	if err != nil {
		ac.fail(c, err)
		return
	}
	ac.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	id := app.IdentityFrom(c)
	u, err := ac.Users.FindUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ac.fail(c, lending.ErrUnauthorized)
			return
		}
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"userID": u.ID,
		"user":   u,
		"role":   id.Role,
	})
}
