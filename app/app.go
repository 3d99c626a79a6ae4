package app

import (
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/db/mongostore"
	"Gin_postgres_redis_lend_tool/events"
	"Gin_postgres_redis_lend_tool/lending"
	"Gin_postgres_redis_lend_tool/obs"
	"Gin_postgres_redis_lend_tool/session"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// 简化别名，便于 handlers 调用
type H = gin.H

const ServiceName = "lend-tool"

// ceremonyTTL bounds a passkey begin/finish round trip.
const ceremonyTTL = 5 * time.Minute

// App 聚合各依赖
type App struct {
	Router    *gin.Engine
	Store     db.Store
	RDB       *redis.Client
	WA        *webauthn.WebAuthn
	Config    Config
	Log       *slog.Logger
	Lending   *lending.Service
	Publisher events.Publisher

	appSess    *session.AppSessionStore
	ceremonies *session.CeremonyStore
	closers    []func(context.Context) error
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.CeremonyStore    { return a.ceremonies }

// OpenStore connects the backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg Config) (db.Store, error) {
	switch cfg.StoreDriver {
	case StoreMongo:
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return ms, nil
	default:
		gdb, err := db.ConnectDB(cfg.StoreDriver, cfg.SQLDSN(), false)
		if err != nil {
			return nil, err
		}
		return db.NewRepo(gdb), nil
	}
}

// New wires every dependency. On error, whatever was opened is closed.
func New(ctx context.Context, cfg Config) (_ *App, err error) {
	log := NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	// --- Tracing ---
	shutdownTracer, err := obs.InitTracer(ctx, ServiceName, cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracer)

	// --- Store ---
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store (%s): %w", cfg.StoreDriver, err)
	}
	a.Store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0})
	a.RDB = rdb
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Lend Tool Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}
	a.WA = wa

	// --- Events ---
	var pub events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.LendingExchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		pub = p
	}
	a.Publisher = pub
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })

	a.Lending = lending.NewService(store, lending.WithPublisher(pub), lending.WithLogger(log))
	a.appSess = session.NewAppSessionStore(rdb, cfg.SessionTTL)
	a.ceremonies = session.NewCeremonyStore(rdb, ceremonyTTL)

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.CORSOrigins)
	a.Router = r

	log.Info("app ready", "store", cfg.StoreDriver, "events", cfg.RabbitURL != "", "tracing", cfg.OTLPEndpoint != "")
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
