package controllers

import (
	"net/http"

	"equiplend/app"
	"equiplend/lending"

	"github.com/gin-gonic/gin"
)

type HistoryController struct{ *Srv }

func NewHistoryController(s *Srv) *HistoryController { return &HistoryController{Srv: s} }

// GET /api/requests/:id/history
func (hc *HistoryController) List(c *gin.Context) {
	id, err := idParam(c, "id", lending.ErrRequestNotFound)
	if err != nil {
		hc.fail(c, err)
		return
	}
	evs, err := hc.Engine.History(c.Request.Context(), app.IdentityFrom(c), id)
	if err != nil {
		hc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"request_id": id,
		"events":     evs,
	})
}
