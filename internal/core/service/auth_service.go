package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultRememberTTL = 365 * 24 * time.Hour
)

// AuthConfig controls session lifetimes.
type AuthConfig struct {
	SessionTTL  time.Duration // browser-session logins
	RememberTTL time.Duration // "remember me" logins
}

// AuthService implements login, logout and identity resolution.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	throttle ports.LoginThrottle
	hasher   PasswordHasher
	cfg      AuthConfig
	log      zerolog.Logger
	now      func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthService wires the authenticator. throttle may be nil.
func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionStore,
	throttle ports.LoginThrottle,
	hasher PasswordHasher,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = defaultRememberTTL
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		throttle: throttle,
		hasher:   hasher,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies credentials and opens a session. An unknown email, a wrong
// password and a throttled address all yield domain.ErrInvalidCredentials, and
// an unknown email still pays for one hash comparison.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, *domain.User, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}

	if s.throttled(ctx, in.Email) {
		s.log.Warn().Msg("login rejected: too many failed attempts")
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("login: %w", err)
		}
		_ = s.hasher.Compare(s.dummy(), in.Password)
		s.recordFailure(ctx, in.Email)
		return nil, nil, domain.ErrInvalidCredentials
	}

	if s.hasher.Compare(user.PasswordHash, in.Password) != nil {
		s.recordFailure(ctx, in.Email)
		return nil, nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, in.Email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}

	ttl := s.cfg.SessionTTL
	if in.Remember {
		ttl = s.cfg.RememberTTL
	}

	id, err := newSessionID()
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	session := &domain.Session{
		ID:        id,
		UserID:    user.ID,
		Remember:  in.Remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.sessions.Create(ctx, session, ttl); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Bool("remember", in.Remember).Msg("user logged in")
	return session, user, nil
}

// Logout removes the session. Unknown or empty ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser resolves a session id to its user. Anonymous, unknown and
// expired sessions return nil, nil; store failures return an error and callers
// must treat the request as anonymous.
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.sessions.Delete(ctx, sessionID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}
	return user, nil
}

// RevokeAll ends every session of userID.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (s *AuthService) throttled(ctx context.Context, key string) bool {
	if s.throttle == nil {
		return false
	}
	blocked, err := s.throttle.Blocked(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed")
		return false
	}
	return blocked
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
}

// dummy returns a hash of a throwaway password at the configured cost, used
// to equalise timing for unknown accounts. A failed attempt is retried on the
// next call.
func (s *AuthService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash("not-a-real-password")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to prepare dummy hash")
		return ""
	}
	s.dummyHash = hash
	return hash
}

// newSessionID returns 32 random bytes, base64url encoded.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
