package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		ENV      string
		Timezone string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
		Output    string
	}

	// DB is the database behind the /tables resource server.
	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	// Local is the offline mirror used when the table server is unreachable.
	Local struct {
		Path string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
	}

	Tables struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		TTL time.Duration
	}

	Auth struct {
		BcryptCost int
	}
}

// New loads configuration from the environment, with an optional config.yaml
// in the working directory or ./config providing the same keys in lower case.
func New() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	// a missing file is fine, env and defaults still apply
	_ = v.ReadInConfig()

	setDefaults(v)

	cfg := &Config{}

	cfg.App.ENV = v.GetString("APP_ENV")
	cfg.App.Timezone = v.GetString("APP_TIMEZONE")

	// Logger
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	cfg.Log.Component = v.GetString("LOG_COMPONENT")
	cfg.Log.Source = isTruthy(v.GetString("LOG_SOURCE"))
	cfg.Log.Output = v.GetString("LOG_OUTPUT")

	// Database
	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.DSN = strings.TrimSpace(v.GetString("DB_DSN"))
	if cfg.DB.DSN == "" && cfg.DB.Driver == "mysql" {
		cfg.DB.DSN = strings.TrimSpace(v.GetString("MYSQL_DSN"))
	}
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(cfg)
	}

	cfg.Local.Path = v.GetString("LOCAL_DB_PATH")

	// Redis
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// gRPC
	cfg.GRPC.Host = v.GetString("GRPC_HOST")
	cfg.GRPC.Port = v.GetString("GRPC_PORT")

	// Table resource server
	cfg.HTTP.Host = v.GetString("HTTP_HOST")
	cfg.HTTP.Port = v.GetString("HTTP_PORT")
	cfg.HTTP.AllowedOrigins = splitList(v.GetString("HTTP_ALLOWED_ORIGINS"))

	cfg.Tables.BaseURL = strings.TrimRight(v.GetString("TABLES_BASE_URL"), "/")
	cfg.Tables.Timeout = v.GetDuration("TABLES_TIMEOUT")

	cfg.Session.TTL = v.GetDuration("SESSION_TTL")
	cfg.Auth.BcryptCost = v.GetInt("BCRYPT_COST")

	return cfg
}

// Location resolves App.Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_TIMEZONE", "Asia/Tokyo")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_COMPONENT", "kyonomi")
	v.SetDefault("LOG_OUTPUT", "stdout")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "root")
	v.SetDefault("DB_NAME", "kyonomi")

	v.SetDefault("LOCAL_DB_PATH", "kyonomi-local.db")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GRPC_HOST", "127.0.0.1")
	v.SetDefault("GRPC_PORT", "50051")

	v.SetDefault("HTTP_HOST", "127.0.0.1")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("HTTP_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("TABLES_BASE_URL", "http://127.0.0.1:8080")
	v.SetDefault("TABLES_TIMEOUT", 5*time.Second)

	v.SetDefault("SESSION_TTL", 30*24*time.Hour)
	v.SetDefault("BCRYPT_COST", 10)
}

func buildDSN(cfg *Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
		)
	case "sqlite":
		return cfg.DB.Name + ".db"
	default:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
