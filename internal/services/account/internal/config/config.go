package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/riya-gandhi/authentication-api/internal/pkg/env"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	PhotoBackendDisk = "disk"
	PhotoBackendS3   = "s3"
)

type Config struct {
	HTTP    httpConfig    `envPrefix:"HTTP_"`
	Session sessionConfig `envPrefix:"SESSION_"`
	Redis   redisConfig   `envPrefix:"REDIS_"`
	OAuth   oauthConfig   `envPrefix:"OAUTH_"`
	Photo   photoConfig   `envPrefix:"PHOTO_"`
	Log     logConfig     `envPrefix:"LOG_"`
	Admin   adminConfig   `envPrefix:"ADMIN_"`
}

type httpConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR"      envDefault:":3000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type sessionConfig struct {
	Secret       string        `env:"SECRET,notEmpty"`
	Issuer       string        `env:"ISSUER"        envDefault:"authentication-api"`
	Backend      string        `env:"BACKEND"       envDefault:"memory"`
	TTL          time.Duration `env:"TTL"           envDefault:"24h"`
	CookieName   string        `env:"COOKIE_NAME"   envDefault:"sid"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	MaxSessions  int64         `env:"MAX_SESSIONS"  envDefault:"100000"`
}

type redisConfig struct {
	Host      string `env:"HOST"       envDefault:"localhost"`
	Port      string `env:"PORT"       envDefault:"6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"session:"`
}

type oauthConfig struct {
	Google googleConfig `envPrefix:"GOOGLE_"`
}

type googleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:3000/auth/google/callback"`
}

// Enabled reports whether Google sign in is configured
func (g googleConfig) Enabled() bool {
	return g.ClientID != ""
}

type photoConfig struct {
	Backend   string   `env:"BACKEND"    envDefault:"disk"`
	Root      string   `env:"ROOT"       envDefault:"uploads"`
	MaxBytes  int64    `env:"MAX_BYTES"  envDefault:"5242880"`
	MaxWidth  int      `env:"MAX_WIDTH"  envDefault:"4096"`
	MaxHeight int      `env:"MAX_HEIGHT" envDefault:"4096"`
	S3        s3Config `envPrefix:"S3_"`
}

type s3Config struct {
	Bucket        string `env:"BUCKET"`
	Prefix        string `env:"PREFIX"          envDefault:"photos"`
	Region        string `env:"REGION"          envDefault:"us-east-1"`
	Endpoint      string `env:"ENDPOINT"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	UsePathStyle  bool   `env:"USE_PATH_STYLE"  envDefault:"false"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

type logConfig struct {
	Format string     `env:"FORMAT" envDefault:"text"`
	Level  slog.Level `env:"LEVEL"  envDefault:"INFO"`
}

type adminConfig struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// Enabled reports whether an administrator account should be seeded
func (a adminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// FromEnv reads the configuration from the process environment
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	switch c.Photo.Backend {
	case PhotoBackendDisk:
	case PhotoBackendS3:
		if c.Photo.S3.Bucket == "" || c.Photo.S3.PublicBaseURL == "" {
			return fmt.Errorf("s3 photo backend needs PHOTO_S3_BUCKET and PHOTO_S3_PUBLIC_BASE_URL")
		}
	default:
		return fmt.Errorf("unknown photo backend %q", c.Photo.Backend)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}
