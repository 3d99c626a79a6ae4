package controllers

import (
	"errors"
	"net/http"
	"strings"

	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// 注册：四项必填，邮箱小写
func (ac *AuthController) Register(c *gin.Context) {
	var in registerReq
	_ = c.ShouldBindJSON(&in)
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if name == "" || email == "" || phone == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()
	if _, err := ac.Store.FindUserByEmail(ctx, email); err == nil {
		c.JSON(http.StatusConflict, app.H{"error": "Email already registered"})
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u := &models.User{Name: name, Email: email, Phone: phone, PasswordHash: hash}
	if err := ac.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusConflict, app.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	ac.Log.InfoContext(ctx, "user registered", "email", email)
	c.JSON(http.StatusCreated, app.H{"ok": true})
}

func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&in)
	ctx := c.Request.Context()

	u, err := ac.Store.FindUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "Invalid email or password"})
		return
	}

	if err := ac.issueSession(ctx, c.Writer, u); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "name": u.Name})
}

func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		if err := ac.AppSess.Delete(c.Request.Context(), ck.Value); err != nil {
			ac.Log.WarnContext(c.Request.Context(), "delete session", "err", err)
		}
	}
	ac.setAppCookie(c.Writer, "", -1)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// Me 需挂在 OptionalAuth 之后
func (ac *AuthController) Me(c *gin.Context) {
	uid := app.CallerID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, app.H{"authenticated": false})
		return
	}
	u, err := ac.Store.FindUserByID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, app.H{"authenticated": true, "email": u.Email, "name": u.Name})
}
