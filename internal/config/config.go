package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	OpenAI     OpenAIConfig
	Usage      UsageConfig
	Admin      AdminConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MigrationsPath string
	// WriteTimeout must outlast a generation call; it defaults to the
	// OpenAI timeout plus a margin.
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional: an empty URL disables the audit event stream.
type NATSConfig struct {
	URL string
	// AuditRetention bounds how long unconsumed audit events stay in the stream.
	AuditRetention time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type EncryptionConfig struct {
	Key string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// UsageConfig holds the monthly quota defaults applied to accounts that have
// never been metered, plus the per-minute generation burst limit.
type UsageConfig struct {
	ResumeLimit             int
	CoverLimit              int
	MaxGenerationsPerMinute int
}

type AdminConfig struct {
	Emails []string
}

// IsAdmin reports whether email is on the admin allow-list (case-insensitive).
func (c AdminConfig) IsAdmin(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.Emails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	AuthMaxRequests int
	AuthWindowSec   int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           k.String("server.host"),
			Port:           k.Int("server.port"),
			MigrationsPath: k.String("migrations.path"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  k.String("openai.api.key"),
			BaseURL: k.String("openai.base.url"),
			Model:   k.String("openai.model"),
		},
		Usage: UsageConfig{
			ResumeLimit:             k.Int("usage.resume.limit"),
			CoverLimit:              k.Int("usage.cover.limit"),
			MaxGenerationsPerMinute: k.Int("usage.max.generations.per.minute"),
		},
		Admin: AdminConfig{
			Emails: splitList(k.String("admin.emails")),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			AuthMaxRequests: k.Int("ratelimit.auth.max.requests"),
			AuthWindowSec:   k.Int("ratelimit.auth.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MigrationsPath == "" {
		cfg.Server.MigrationsPath = "migrations"
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "resumeai"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "resumeai"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Usage.ResumeLimit == 0 {
		cfg.Usage.ResumeLimit = 10
	}
	if cfg.Usage.CoverLimit == 0 {
		cfg.Usage.CoverLimit = 10
	}
	if cfg.RateLimit.AuthMaxRequests == 0 {
		cfg.RateLimit.AuthMaxRequests = 10
	}
	if cfg.RateLimit.AuthWindowSec == 0 {
		cfg.RateLimit.AuthWindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	timeoutStr := k.String("openai.timeout")
	if timeoutStr == "" {
		timeoutStr = "60s"
	}
	cfg.OpenAI.Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing openai timeout: %w", err)
	}

	retention := k.String("nats.audit.retention")
	if retention == "" {
		retention = "720h"
	}
	cfg.NATS.AuditRetention, err = time.ParseDuration(retention)
	if err != nil {
		return nil, fmt.Errorf("parsing nats audit retention: %w", err)
	}

	if wt := k.String("server.write.timeout"); wt != "" {
		cfg.Server.WriteTimeout, err = time.ParseDuration(wt)
		if err != nil {
			return nil, fmt.Errorf("parsing server write timeout: %w", err)
		}
	} else {
		cfg.Server.WriteTimeout = cfg.OpenAI.Timeout + 15*time.Second
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
