package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// DefaultResetTTL is how long an emailed reset link stays valid.
const DefaultResetTTL = 1800 * time.Second

// CredentialStore is the part of the account service the reset flow needs.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, user *domain.User, password string) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

// ResetConfig controls the reset flow.
type ResetConfig struct {
	BaseURL string // absolute origin used in emailed links, e.g. https://blog.example.com
	TTL     time.Duration
}

// ResetService issues, mails and redeems stateless password-reset tokens.
// Tokens are not stored, so a single token cannot be revoked before it
// expires; rotating the signing secret invalidates all of them at once.
type ResetService struct {
	accounts CredentialStore
	revoker  SessionRevoker
	tokens   ports.ResetTokenCodec
	mailer   ports.Mailer
	cfg      ResetConfig
	log      zerolog.Logger
}

func NewResetService(
	accounts CredentialStore,
	revoker SessionRevoker,
	tokens ports.ResetTokenCodec,
	mailer ports.Mailer,
	cfg ResetConfig,
	log zerolog.Logger,
) *ResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultResetTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ResetService{
		accounts: accounts,
		revoker:  revoker,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
	}
}

// IssueToken signs a token for user. ttl <= 0 uses the configured default.
func (s *ResetService) IssueToken(user *domain.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	token, err := s.tokens.Issue(user.ID, ttl)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}
	return token, nil
}

// VerifyToken returns the user a token was issued for. Every kind of failure,
// including a user that no longer exists, is reported as domain.ErrInvalidToken.
func (s *ResetService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("verify reset token: %w", err)
	}
	return user, nil
}

// RequestReset sends a reset link to the owner of the address. Unknown
// addresses are ignored so the response does not reveal which accounts exist.
func (s *ResetService) RequestReset(ctx context.Context, in ports.RequestResetInput) error {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return err
	}

	user, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Info().Msg("password reset requested for unknown address")
			return nil
		}
		return fmt.Errorf("request reset: %w", err)
	}

	token, err := s.IssueToken(user, 0)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, s.resetMessage(user, token)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset email sent")
	return nil
}

// ResetPassword redeems token, ends every session of the user and stores the
// new password. Sessions are revoked first so a revocation failure leaves the
// old password in place.
func (s *ResetService) ResetPassword(ctx context.Context, token string, in ports.ResetPasswordInput) (*domain.User, error) {
	user, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	if s.revoker != nil {
		if err := s.revoker.RevokeAll(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	if err := s.accounts.UpdatePassword(ctx, user, in.Password); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return user, nil
}

// ResetURL is the absolute link embedded in the email.
func (s *ResetService) ResetURL(token string) string {
	return s.cfg.BaseURL + "/reset_password/" + token
}

func (s *ResetService) resetMessage(user *domain.User, token string) ports.Message {
	link := s.ResetURL(token)
	text := fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.
`, link)
	escaped := html.EscapeString(link)
	htmlBody := fmt.Sprintf(`<p>To reset your password, visit the following link:</p>
<p><a href="%s">%s</a></p>
<p>If you did not make this request then simply ignore this email and no changes will be made.</p>`, escaped, escaped)

	return ports.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "Password Reset Request",
		Text:    text,
		HTML:    htmlBody,
	}
}
