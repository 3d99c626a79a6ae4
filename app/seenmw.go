package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type seenToucher interface {
	TouchUserSeen(ctx context.Context, email string) error
}

// setNXer is the slice of *redis.Client the throttle uses.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// TouchLastSeen records users.last_seen_at at most once per throttle window.
// It must run after AuthRequired or OptionalAuth.
func TouchLastSeen(users seenToucher, rdb setNXer, throttle time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := CallerEmail(c)
		if email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "user:lastseen:" + email
		if ok, err := rdb.SetNX(ctx, key, "1", throttle).Result(); err != nil {
			log.WarnContext(ctx, "last-seen throttle", "err", err)
		} else if ok {
			// 忽略错误，不阻塞请求
			if err := users.TouchUserSeen(ctx, email); err != nil {
				log.WarnContext(ctx, "touch last seen", "email", email, "err", err)
			}
		}
		c.Next()
	}
}
