package app

import (
	"Gin_postgres_redis_lend_tool/models"
	"Gin_postgres_redis_lend_tool/session"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	AppSessionCookie = "app_session"

	CtxUserID = "userID"
	CtxEmail  = "email"
)

// SessionReader resolves a session cookie value.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.AppSession, error)
}

type userLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// resolve returns the user behind the request's session cookie, or nil.
func resolve(c *gin.Context, sessions SessionReader, users userLookup) *models.User {
	ck, err := c.Request.Cookie(AppSessionCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	as, err := sessions.Get(c.Request.Context(), ck.Value)
	if err != nil {
		return nil
	}
	// 确认用户仍存在
	u, err := users.FindUserByID(c.Request.Context(), as.UserID)
	if err != nil {
		return nil
	}
	return u
}

func AuthRequired(sessions SessionReader, users userLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := resolve(c, sessions, users)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "Authentication required"})
			return
		}
		c.Set(CtxUserID, u.ID)
		c.Set(CtxEmail, u.Email)
		c.Next()
	}
}

// OptionalAuth sets the caller when a valid session exists and never aborts.
func OptionalAuth(sessions SessionReader, users userLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := resolve(c, sessions, users); u != nil {
			c.Set(CtxUserID, u.ID)
			c.Set(CtxEmail, u.Email)
		}
		c.Next()
	}
}

// CallerEmail is the authenticated email, or "" for anonymous requests.
func CallerEmail(c *gin.Context) string { return c.GetString(CtxEmail) }

func CallerID(c *gin.Context) string { return c.GetString(CtxUserID) }
