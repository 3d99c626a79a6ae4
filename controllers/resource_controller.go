package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/models"

	"github.com/gin-gonic/gin"
)

var allowedImageExt = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

type ResourceController struct{ *Srv }

func NewResourceController(s *Srv) *ResourceController { return &ResourceController{Srv: s} }

// allowedImage reports whether name has one of the accepted image extensions.
func allowedImage(name string) bool {
	i := strings.LastIndex(name, ".")
	return i >= 0 && allowedImageExt[strings.ToLower(name[i+1:])]
}

// safeFileName keeps the base name and strips anything outside [A-Za-z0-9_.-].
func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// 公开列表：登录后不显示自己的物品（需挂在 OptionalAuth 之后）
func (rc *ResourceController) List(c *gin.Context) {
	out, err := rc.Store.ListResources(c.Request.Context(), db.ResourceFilter{ExcludeOwner: app.CallerEmail(c)})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if out == nil {
		out = []models.Resource{}
	}
	c.JSON(http.StatusOK, app.H{"resources": out})
}

func (rc *ResourceController) Mine(c *gin.Context) {
	out, err := rc.Store.ListResources(c.Request.Context(), db.ResourceFilter{OwnerEmail: app.CallerEmail(c)})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if out == nil {
		out = []models.Resource{}
	}
	c.JSON(http.StatusOK, app.H{"resources": out})
}

// 发布物品（multipart，可选图片）
func (rc *ResourceController) Create(c *gin.Context) {
	res := &models.Resource{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Category:    strings.TrimSpace(c.PostForm("category")),
		Price:       strings.TrimSpace(c.PostForm("price")),
		OwnerEmail:  app.CallerEmail(c),
	}
	if res.Title == "" || res.Description == "" || res.Category == "" || res.Price == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "Missing required fields"})
		return
	}

	// 不支持的图片格式直接忽略
	if fh, err := c.FormFile("image"); err == nil && allowedImage(fh.Filename) {
		name := safeFileName(fh.Filename)
		if name != "" && allowedImage(name) {
			if err := os.MkdirAll(rc.UploadFolder, 0o755); err != nil {
				c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
				return
			}
			if err := c.SaveUploadedFile(fh, filepath.Join(rc.UploadFolder, name)); err != nil {
				c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
				return
			}
			res.Image = &name
		}
	}

	if err := rc.Store.CreateResource(c.Request.Context(), res); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app.H{"resource": res})
}

// 给当前用户塞一条示例物品
func (rc *ResourceController) Seed(c *gin.Context) {
	res := &models.Resource{
		Title:       "Sample Notebook",
		Description: "A5 ruled notebook for test purposes",
		Category:    "stationery",
		Price:       "1.00",
		OwnerEmail:  app.CallerEmail(c),
	}
	if err := rc.Store.CreateResource(c.Request.Context(), res); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app.H{"resource": res})
}

// 清空自己的物品及相关申请；三步删除互不回滚
func (rc *ResourceController) Clear(c *gin.Context) {
	out, err := rc.Lending.ClearResources(c.Request.Context(), app.CallerEmail(c))
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "deleted": out})
}
