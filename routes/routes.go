package routes

import (
	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/controllers"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Deps 路由所需的控制器依赖与中间件
type Deps struct {
	Srv          *controllers.Srv
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Seen         gin.HandlerFunc
	UploadFolder string
	StaticFolder string
}

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	Mount(r, Deps{
		Srv:          s,
		Auth:         app.AuthRequired(a.AppSessions(), a.Store),
		OptionalAuth: app.OptionalAuth(a.AppSessions(), a.Store),
		Seen:         app.TouchLastSeen(a.Store, a.RDB, a.Config.SeenEvery, a.Log),
		UploadFolder: a.Config.UploadFolder,
		StaticFolder: a.Config.StaticFolder,
	})
}

func Mount(r *gin.Engine, d Deps) {
	s := d.Srv
	authCtl := controllers.NewAuthController(s)
	resCtl := controllers.NewResourceController(s)
	reqCtl := controllers.NewRequestController(s)
	pkCtl := controllers.NewPasskeyController(s)

	// 健康检查
	r.GET("/healthz", s.Healthz)

	api := r.Group("/api")
	{
		api.GET("/health", controllers.Health)

		// 公开：注册/登录/登出
		api.POST("/register", authCtl.Register)
		api.POST("/login", authCtl.Login)
		api.POST("/logout", authCtl.Logout)
		api.GET("/me", d.OptionalAuth, authCtl.Me)

		// 公开列表，登录后排除自己的物品
		api.GET("/resources", d.OptionalAuth, d.Seen, resCtl.List)
	}

	authed := api.Group("", d.Auth, d.Seen)
	{
		authed.POST("/resources", resCtl.Create)
		authed.POST("/resources/seed", resCtl.Seed)
		authed.POST("/resources/clear", resCtl.Clear)
		authed.GET("/my-resources", resCtl.Mine)

		authed.POST("/requests", reqCtl.Create)
		authed.POST("/requests/:id/:action", reqCtl.Act) // approve | reject | return
		authed.GET("/my-requests", reqCtl.Mine)
		authed.GET("/incoming-requests", reqCtl.Incoming)
		authed.GET("/incoming-requests/count", reqCtl.IncomingCount)

		// 已登录用户添加新凭据（绑定手机等）
		authed.POST("/credentials/add/begin", pkCtl.BeginAddCredential)
		authed.POST("/credentials/add/finish", pkCtl.FinishAddCredential)
	}

	// ------------------------------
	// WebAuthn 登录（公开）
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		wa.POST("/login/begin", pkCtl.BeginLogin)
		wa.POST("/login/finish", pkCtl.FinishLogin)
	}

	r.Static("/uploads", d.UploadFolder)
	r.NoRoute(spaFallback(d.StaticFolder))
}

// spaFallback 非 /api 路径：文件存在则直接返回，否则回落到 index.html
func spaFallback(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/api" || strings.HasPrefix(p, "/api/") || c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, app.H{"error": "Not found"})
			return
		}
		if rel := filepath.Clean("/" + p); rel != "/" {
			full := filepath.Join(root, filepath.FromSlash(rel))
			if fi, err := os.Stat(full); err == nil && !fi.IsDir() {
				c.File(full)
				return
			}
		}
		index := filepath.Join(root, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, app.H{"error": "Not found"})
			return
		}
		c.File(index)
	}
}
