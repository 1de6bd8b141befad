package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quillhub/blog/internal/api"
	"github.com/quillhub/blog/internal/api/handler"
	"github.com/quillhub/blog/internal/core/ports"
	"github.com/quillhub/blog/internal/core/service"
	redisstore "github.com/quillhub/blog/internal/infrastructure/db/redis"
	"github.com/quillhub/blog/internal/infrastructure/imaging"
	"github.com/quillhub/blog/internal/infrastructure/mail"
	"github.com/quillhub/blog/internal/infrastructure/storage"
	"github.com/quillhub/blog/internal/infrastructure/token"
	"github.com/quillhub/blog/internal/pkg/config"
)

const (
	shutdownTimeout = 10 * time.Second

	loginFailureLimit  = 10
	loginFailureWindow = 15 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	proxies, err := cfg.RateLimit.TrustedProxyNets()
	if err != nil {
		return err
	}

	tokens, err := token.NewResetTokens(cfg.SecretKey)
	if err != nil {
		return err
	}

	avatars, avatarDir, err := openAvatarStore(ctx, cfg)
	if err != nil {
		return err
	}

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	accounts := service.NewAccountService(st.users, hasher, avatars, imaging.NewThumbnailer(imaging.DefaultSize), log)
	auth := service.NewAuthService(
		st.users,
		redisstore.NewSessionStore(rdb, cfg.Auth.RememberTTL),
		redisstore.NewLoginThrottle(rdb, loginFailureLimit, loginFailureWindow),
		hasher,
		service.AuthConfig{SessionTTL: cfg.Auth.SessionTTL, RememberTTL: cfg.Auth.RememberTTL},
		log,
	)
	resets := service.NewResetService(accounts, auth, tokens, newMailer(cfg, log),
		service.ResetConfig{BaseURL: cfg.BaseURL, TTL: cfg.Auth.ResetTokenTTL}, log)
	posts := service.NewPostService(st.posts, st.users, cfg.PostsPerPage, log)

	e := api.NewRouter(api.Deps{
		Accounts:       accounts,
		Auth:           auth,
		Posts:          posts,
		Resets:         resets,
		Avatars:        avatars,
		AvatarDir:      avatarDir,
		MaxAvatarBytes: handler.DefaultMaxAvatarBytes,
		Checks: map[string]handler.CheckFunc{
			"database": st.ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Cookie:    handler.CookieConfig{Secure: cfg.Auth.CookieSecure || cfg.Env == "production"},
		RateLimit: api.RateLimitConfig{
			RPS:            cfg.RateLimit.RPS,
			Burst:          cfg.RateLimit.Burst,
			TrustedProxies: proxies,
		},
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openAvatarStore returns the configured backend and, for local storage, the
// directory the router serves.
func openAvatarStore(ctx context.Context, cfg *config.Config) (ports.AvatarStore, string, error) {
	if cfg.Avatar.Store == "s3" {
		s3store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.Avatar.S3Bucket,
			Region:    cfg.Avatar.S3Region,
			Endpoint:  cfg.Avatar.S3Endpoint,
			AccessKey: cfg.Avatar.S3AccessKey,
			SecretKey: cfg.Avatar.S3SecretKey,
			PublicURL: cfg.Avatar.S3PublicURL,
			Prefix:    "profile_pics/",
		})
		if err != nil {
			return nil, "", fmt.Errorf("avatar store: %w", err)
		}
		return s3store, "", nil
	}

	local, err := storage.NewLocalStore(cfg.Avatar.Dir, api.AvatarPath)
	if err != nil {
		return nil, "", fmt.Errorf("avatar store: %w", err)
	}
	return local, local.Dir(), nil
}

func newMailer(cfg *config.Config, log zerolog.Logger) ports.Mailer {
	if cfg.Mail.Driver != "sendgrid" {
		return mail.NewLogMailer(log)
	}
	return mail.New(mail.Config{
		APIKey:   cfg.Mail.SendGridAPIKey,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	}, log)
}
