package ports

import (
	"context"
	"io"
	"time"
)

// ResetTokenCodec signs and verifies stateless password-reset tokens.
type ResetTokenCodec interface {
	Issue(userID string, ttl time.Duration) (string, error)
	// Parse returns the embedded user id, or domain.ErrInvalidToken for any
	// signature, format, purpose or expiry failure.
	Parse(token string) (string, error)
}

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email synchronously.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// AvatarStore keeps processed avatar images under server-chosen names.
type AvatarStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// Thumbnailer decodes an uploaded image, shrinks it to the configured bound
// and re-encodes it. format is "jpeg" or "png"; anything else is rejected with
// domain.ErrUnsupportedImage.
type Thumbnailer interface {
	Thumbnail(r io.Reader) (data []byte, format string, err error)
}
