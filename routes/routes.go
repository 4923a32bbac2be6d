package routes

import (
	"net/http"

	"equiplend/app"
	"equiplend/controllers"
	"equiplend/metrics"
	"equiplend/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	Register(r, controllers.GetSrv(a), a.Gate, a.Metrics)
}

// Register binds every handler; gate turns bearer tokens into identities.
func Register(r *gin.Engine, s *controllers.Srv, gate app.IdentityResolver, m *metrics.Metrics) {
	// 控制器
	authCtl := controllers.NewAuthController(s)
	equipCtl := controllers.NewEquipmentController(s)
	reqCtl := controllers.NewRequestController(s)
	histCtl := controllers.NewHistoryController(s)
	inviteCtl := controllers.NewInviteController(s)

	// 复用的中间件
	authMW := app.AuthRequired(gate)
	adminMW := app.AdminOnly()
	borrowerMW := app.RequireRole(models.Role.CanCreateRequest)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")

	// ------------------------------
	// 账号（公开 + 受保护）
	// ------------------------------
	api.POST("/signup", authCtl.Signup)
	api.POST("/login", authCtl.Login)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authCtl.Signup)
		auth.POST("/login", authCtl.Login)
	}
	api.POST("/logout", authMW, authCtl.Logout)
	api.GET("/whoami", authMW, authCtl.WhoAmI)

	// ------------------------------
	// 器材目录：浏览公开，修改仅管理员
	// ------------------------------
	equip := api.Group("/equipment")
	{
		equip.GET("", equipCtl.List)
		equip.GET("/:id", equipCtl.Get)
		equip.POST("", authMW, adminMW, equipCtl.Create)
		equip.PUT("/:id", authMW, adminMW, equipCtl.Update)
		equip.DELETE("/:id", authMW, adminMW, equipCtl.Delete)
	}

	// ------------------------------
	// 借用申请
	// ------------------------------
	reqs := api.Group("/requests", authMW)
	{
		reqs.POST("", borrowerMW, reqCtl.Create)
		reqs.GET("", reqCtl.List)
		reqs.GET("/mine", reqCtl.Mine)
		reqs.GET("/:id/history", histCtl.List)

		reqs.POST("/:id/approve", adminMW, reqCtl.Approve)
		reqs.POST("/:id/reject", adminMW, reqCtl.Reject)
		reqs.POST("/:id/return", adminMW, reqCtl.Return)
	}

	// ------------------------------
	// 邀请（仅管理员）
	// ------------------------------
	admin := api.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
	}
}
