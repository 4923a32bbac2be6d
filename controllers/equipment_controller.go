// controllers/equipment_controller.go
package controllers

import (
	"net/http"

	"equiplend/app"
	"equiplend/catalog"
	"equiplend/lending"

	"github.com/gin-gonic/gin"
)

type EquipmentController struct{ *Srv }

func NewEquipmentController(s *Srv) *EquipmentController { return &EquipmentController{Srv: s} }

// 列表（公开）
func (ec *EquipmentController) List(c *gin.Context) {
	items, err := ec.Catalog.List(c.Request.Context())
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

func (ec *EquipmentController) Get(c *gin.Context) {
	id, err := idParam(c, "id", lending.ErrItemNotFound)
	if err != nil {
		ec.fail(c, err)
		return
	}
	it, err := ec.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// 管理员新建器材
func (ec *EquipmentController) Create(c *gin.Context) {
	var in struct {
		Name          string `json:"name" binding:"required"`
		Category      string `json:"category"`
		Condition     string `json:"cond"`
		TotalQuantity *int   `json:"total_quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	it, err := ec.Catalog.Create(c.Request.Context(), app.IdentityFrom(c), in.Name, in.Category, in.Condition, *in.TotalQuantity)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// 部分更新；改 total_quantity 时 available 按同样差值调整
func (ec *EquipmentController) Update(c *gin.Context) {
	id, err := idParam(c, "id", lending.ErrItemNotFound)
	if err != nil {
		ec.fail(c, err)
		return
	}
	var in struct {
		Name          *string `json:"name"`
		Category      *string `json:"category"`
		Condition     *string `json:"cond"`
		TotalQuantity *int    `json:"total_quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	it, err := ec.Catalog.Update(c.Request.Context(), app.IdentityFrom(c), id, catalog.Patch{
		Name:          in.Name,
		Category:      in.Category,
		Condition:     in.Condition,
		TotalQuantity: in.TotalQuantity,
	})
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (ec *EquipmentController) Delete(c *gin.Context) {
	id, err := idParam(c, "id", lending.ErrItemNotFound)
	if err != nil {
		ec.fail(c, err)
		return
	}
	if err := ec.Catalog.Delete(c.Request.Context(), app.IdentityFrom(c), id); err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
