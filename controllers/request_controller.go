package controllers

import (
	"context"
	"net/http"

	"equiplend/app"
	"equiplend/lending"
	"equiplend/models"

	"github.com/gin-gonic/gin"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

// POST /api/requests
func (rc *RequestController) Create(c *gin.Context) {
	var in struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	itemID, err := parseID(in.ItemID, lending.ErrItemNotFound)
	if err != nil {
		rc.fail(c, err)
		return
	}
	req, err := rc.Engine.Submit(c.Request.Context(), app.IdentityFrom(c), itemID)
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GET /api/requests：管理员看全部，其他人看自己的
func (rc *RequestController) List(c *gin.Context) {
	who := app.IdentityFrom(c)
	if who.Role.CanAdminister() {
		rows, err := rc.Engine.ListAll(c.Request.Context(), who)
		if err != nil {
			rc.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{"requests": rows})
		return
	}
	rc.Mine(c)
}

// GET /api/requests/mine
func (rc *RequestController) Mine(c *gin.Context) {
	rows, err := rc.Engine.ListForUser(c.Request.Context(), app.IdentityFrom(c))
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": rows})
}

func (rc *RequestController) Approve(c *gin.Context) { rc.transition(c, rc.Engine.Approve) }

func (rc *RequestController) Reject(c *gin.Context) { rc.transition(c, rc.Engine.Reject) }

func (rc *RequestController) Return(c *gin.Context) { rc.transition(c, rc.Engine.Return) }

type transitionFunc func(ctx context.Context, who models.Identity, requestID string) (*models.LoanRequest, error)

func (rc *RequestController) transition(c *gin.Context, fn transitionFunc) {
	id, err := idParam(c, "id", lending.ErrRequestNotFound)
	if err != nil {
		rc.fail(c, err)
		return
	}
	req, err := fn(c.Request.Context(), app.IdentityFrom(c), id)
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
