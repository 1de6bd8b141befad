package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	SecretKey string `env:"SECRET_KEY, required"`
	BaseURL   string `env:"BASE_URL,  default=http://localhost:8080"`

	DB        DBConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Mail      MailConfig
	Avatar    AvatarConfig
	RateLimit RateLimitConfig

	PostsPerPage int `env:"POSTS_PER_PAGE, default=5"`
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER,    default=sqlite"`
	URL    string `env:"DATABASE_URL, default=file:blog.db?_foreign_keys=on&_busy_timeout=5000"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=blog"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `env:"SESSION_TTL,     default=12h"`
	RememberTTL   time.Duration `env:"REMEMBER_TTL,    default=8760h"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL, default=30m"`
	CookieSecure  bool          `env:"COOKIE_SECURE,   default=false"`
	BcryptCost    int           `env:"BCRYPT_COST,     default=12"`
}

type MailConfig struct {
	Driver         string `env:"MAIL_DRIVER,      default=log"`
	From           string `env:"MAIL_FROM,        default=noreply@localhost"`
	FromName       string `env:"MAIL_FROM_NAME,   default=Blog"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
}

type AvatarConfig struct {
	Store       string `env:"AVATAR_STORE, default=local"`
	Dir         string `env:"AVATAR_DIR,   default=static/profile_pics"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION,    default=us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,   default=1"`
	Burst int     `env:"RATE_LIMIT_BURST, default=10"`
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For. When
	// empty the client IP is the peer address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// TrustedProxyNets parses TRUSTED_PROXIES.
func (r RateLimitConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(r.TrustedProxies))
	for _, cidr := range r.TrustedProxies {
		_, n, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would only fail later at runtime.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case "sqlite", "postgres", "mongo":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite, postgres or mongo, got %q", c.DB.Driver))
	}
	switch c.Mail.Driver {
	case "log":
	case "sendgrid":
		if c.Mail.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required when MAIL_DRIVER=sendgrid"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be log or sendgrid, got %q", c.Mail.Driver))
	}
	switch c.Avatar.Store {
	case "local":
	case "s3":
		if c.Avatar.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when AVATAR_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("AVATAR_STORE must be local or s3, got %q", c.Avatar.Store))
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.RememberTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL, REMEMBER_TTL and RESET_TOKEN_TTL must be positive"))
	}
	if _, err := c.RateLimit.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}
	if c.PostsPerPage <= 0 {
		errs = append(errs, errors.New("POSTS_PER_PAGE must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }
