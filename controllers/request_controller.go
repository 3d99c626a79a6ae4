package controllers

import (
	"errors"
	"net/http"
	"strings"

	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/lending"

	"github.com/gin-gonic/gin"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

// writeLendingError maps lending errors to status codes; anything else is a
// store failure and carries its message.
func writeLendingError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, lending.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, lending.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, lending.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, lending.ErrInvalidOperation), errors.Is(err, lending.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, lending.ErrConflict):
		code = http.StatusConflict
	}
	c.JSON(code, app.H{"error": err.Error()})
}

func (rc *RequestController) Create(c *gin.Context) {
	var in struct {
		ResourceID string `json:"resource_id"`
	}
	_ = c.ShouldBindJSON(&in)
	if strings.TrimSpace(in.ResourceID) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "Missing resource_id"})
		return
	}

	req, err := rc.Lending.CreateRequest(c.Request.Context(), app.CallerEmail(c), in.ResourceID)
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"ok": true, "request": req})
}

// Act 处理 approve / reject（物主）与 return（借用人）
func (rc *RequestController) Act(c *gin.Context) {
	id, action := c.Param("id"), c.Param("action")
	caller := app.CallerEmail(c)

	if action == "return" {
		rcpt, err := rc.Lending.ReturnRequest(c.Request.Context(), caller, id)
		if err != nil {
			writeLendingError(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{
			"ok":              true,
			"days":            rcpt.Days,
			"total_due":       rcpt.TotalDue,
			"payment_methods": rcpt.PaymentMethods,
		})
		return
	}

	if err := rc.Lending.TransitionRequest(c.Request.Context(), caller, id, lending.Action(action)); err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (rc *RequestController) Mine(c *gin.Context) {
	out, err := rc.Lending.ListForBorrower(c.Request.Context(), app.CallerEmail(c))
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": out})
}

func (rc *RequestController) Incoming(c *gin.Context) {
	out, err := rc.Lending.ListForOwner(c.Request.Context(), app.CallerEmail(c))
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": out})
}

// 角标：待处理数量，不做缓存
func (rc *RequestController) IncomingCount(c *gin.Context) {
	n, err := rc.Lending.CountPendingForOwner(c.Request.Context(), app.CallerEmail(c))
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": n})
}
