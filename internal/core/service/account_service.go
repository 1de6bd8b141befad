package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

const (
	msgUsernameTaken = "That username is taken. Please choose a different one."
	msgEmailTaken    = "That email is taken. Please choose a different one."
	msgConflict      = "The account was changed by another request. Please try again."
	msgBadImage      = "File does not have an approved extension: jpg, png"
)

// allowedAvatarExt maps accepted upload extensions to the decoded format they
// must contain.
var allowedAvatarExt = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
}

// AccountService implements registration and profile maintenance.
type AccountService struct {
	users   ports.UserRepository
	hasher  PasswordHasher
	avatars ports.AvatarStore
	thumbs  ports.Thumbnailer
	log     zerolog.Logger
	now     func() time.Time
}

func NewAccountService(
	users ports.UserRepository,
	hasher PasswordHasher,
	avatars ports.AvatarStore,
	thumbs ports.Thumbnailer,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		users:   users,
		hasher:  hasher,
		avatars: avatars,
		thumbs:  thumbs,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register validates input, checks username and email independently (both
// collisions are reported together) and stores a new user.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := validateInput(in); err != nil {
		return nil, err
	}

	verr, err := s.checkAvailable(ctx, in.Username, in.Email, "")
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		AvatarFile:   domain.DefaultAvatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, conflictError(err, "register")
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// FindByEmail matches the normalised address exactly.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *AccountService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

func (s *AccountService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateProfile changes username, email and optionally the avatar of user.
// Uniqueness is checked against other users only. A new avatar is stored
// before the row is updated and removed again if the update fails; the
// previous avatar is removed only after the update succeeded.
func (s *AccountService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	if user == nil {
		return nil, domain.ErrForbidden
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := validateInput(in); err != nil {
		return nil, err
	}

	verr, err := s.checkAvailable(ctx, in.Username, in.Email, user.ID)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	updated := *user
	updated.Username = in.Username
	updated.Email = in.Email
	updated.UpdatedAt = s.now()

	var newAvatar string
	if in.Avatar != nil {
		newAvatar, err = s.storeAvatar(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		updated.AvatarFile = newAvatar
	}

	saved, err := s.users.UpdateProfile(ctx, &updated)
	if err != nil {
		if newAvatar != "" {
			if delErr := s.avatars.Delete(ctx, newAvatar); delErr != nil {
				s.log.Warn().Err(delErr).Str("avatar", newAvatar).Msg("failed to remove orphaned avatar")
			}
		}
		return nil, conflictError(err, "update profile")
	}

	if newAvatar != "" && user.HasCustomAvatar() && user.AvatarFile != newAvatar {
		if err := s.avatars.Delete(ctx, user.AvatarFile); err != nil {
			s.log.Warn().Err(err).Str("avatar", user.AvatarFile).Msg("failed to remove previous avatar")
		}
	}

	s.log.Info().Str("user_id", saved.ID).Bool("avatar_changed", newAvatar != "").Msg("profile updated")
	return saved, nil
}

// UpdatePassword re-hashes and overwrites the password of user. Existing
// sessions are left alone; callers that need revocation do it themselves.
func (s *AccountService) UpdatePassword(ctx context.Context, user *domain.User, password string) error {
	if user == nil {
		return domain.ErrForbidden
	}
	if strings.TrimSpace(password) == "" {
		return domain.NewValidationError().Add("password", "This field is required.", nil)
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError().Add("password", fmt.Sprintf("Field cannot be longer than %d bytes.", maxPasswordBytes), nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	return nil
}

// checkAvailable looks up username and email independently. selfID, when
// set, is the user being edited and never counts as a collision.
func (s *AccountService) checkAvailable(ctx context.Context, username, email, selfID string) (*domain.ValidationError, error) {
	verr := domain.NewValidationError()

	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != selfID:
		verr.Add("username", msgUsernameTaken, domain.ErrDuplicateUsername)
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("check username: %w", err)
	}

	existing, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		verr.Add("email", msgEmailTaken, domain.ErrDuplicateEmail)
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	return verr, nil
}

func (s *AccountService) storeAvatar(ctx context.Context, upload *ports.AvatarUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	wantFormat, ok := allowedAvatarExt[ext]
	if !ok || upload.Content == nil {
		return "", domain.NewValidationError().Add("picture", msgBadImage, domain.ErrUnsupportedImage)
	}

	data, format, err := s.thumbs.Thumbnail(upload.Content)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedImage) {
			return "", domain.NewValidationError().Add("picture", msgBadImage, domain.ErrUnsupportedImage)
		}
		return "", fmt.Errorf("thumbnail avatar: %w", err)
	}
	if format != wantFormat {
		return "", domain.NewValidationError().Add("picture", msgBadImage, domain.ErrUnsupportedImage)
	}

	name, err := randomFileName(ext)
	if err != nil {
		return "", err
	}
	if err := s.avatars.Save(ctx, name, data, "image/"+format); err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	return name, nil
}

// randomFileName returns 16 hex characters followed by ext.
func randomFileName(ext string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	return hex.EncodeToString(b) + ext, nil
}

// conflictError converts a uniqueness violation reported by the store at
// commit time into the same field-level error the pre-check would produce.
func conflictError(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return domain.NewValidationError().Add("username", msgUsernameTaken, domain.ErrDuplicateUsername)
	case errors.Is(err, domain.ErrDuplicateEmail):
		return domain.NewValidationError().Add("email", msgEmailTaken, domain.ErrDuplicateEmail)
	case errors.Is(err, domain.ErrStorageConflict):
		return domain.NewValidationError().Add(domain.FormField, msgConflict, domain.ErrStorageConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
