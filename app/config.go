package app

import (
	"Gin_postgres_redis_lend_tool/db"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const StoreMongo = "mongo"

// Config 从 .env / 环境变量读取
type Config struct {
	Port        string `envconfig:"PORT" default:"3001"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"lend_tool"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"lend_tool.db"`

	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://127.0.0.1:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"lend_tool"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	WebOrigin   string        `envconfig:"WEB_ORIGIN" default:"http://localhost:5173"`
	CORSOrigins []string      `envconfig:"CORS_ORIGINS"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SeenEvery   time.Duration `envconfig:"LAST_SEEN_THROTTLE" default:"5m"`

	RPID      string   `envconfig:"RP_ID" default:"localhost"`
	RPOrigins []string `envconfig:"RP_ORIGINS"`

	UploadFolder string `envconfig:"UPLOAD_FOLDER" default:"static/uploads"`
	StaticFolder string `envconfig:"STATIC_FOLDER" default:"dist"`

	RabbitURL       string `envconfig:"RABBIT_URL"`
	LendingExchange string `envconfig:"LENDING_EXCHANGE" default:"lending.exchange"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Env          string `envconfig:"ENV" default:"dev"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.CORSOrigins = trimAll(c.CORSOrigins)
	c.RPOrigins = trimAll(c.RPOrigins)
	if len(c.CORSOrigins) == 0 && c.WebOrigin != "" {
		c.CORSOrigins = []string{c.WebOrigin}
	}
	if len(c.RPOrigins) == 0 && c.WebOrigin != "" {
		c.RPOrigins = []string{c.WebOrigin}
	}
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case db.DriverPostgres, db.DriverSQLite, StoreMongo:
	default:
		return fmt.Errorf("STORE_DRIVER: unsupported value %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// SQLDSN is the gorm DSN for the relational drivers.
func (c Config) SQLDSN() string {
	if c.StoreDriver == db.DriverSQLite {
		return c.SQLitePath
	}
	return db.PostgresDSN(c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
