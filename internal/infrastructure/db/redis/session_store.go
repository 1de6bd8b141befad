package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillhub/blog/internal/core/domain"
)

// SessionStore implements ports.SessionStore.
// Key format: session:<id> holds the record and expires with the session;
// user_sessions:<user_id> is the set of session ids used for revocation.
type SessionStore struct {
	client *redis.Client
	maxTTL time.Duration
}

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	Remember  bool      `json:"remember"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionStore wraps client. maxTTL bounds the lifetime of the per-user
// index and must be at least the longest session ttl.
func NewSessionStore(client *redis.Client, maxTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, maxTTL: maxTTL}
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(sessionRecord{
		UserID:    sess.UserID,
		Remember:  sess.Remember,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	indexTTL := s.maxTTL
	if ttl > indexTTL {
		indexTTL = ttl
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, userSessionsKey(sess.UserID), sess.ID)
		pipe.Expire(ctx, userSessionsKey(sess.UserID), indexTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:        id,
		UserID:    rec.UserID,
		Remember:  rec.Remember,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	rec, err := s.load(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, userSessionsKey(rec.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *SessionStore) load(ctx context.Context, id string) (*sessionRecord, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func sessionKey(id string) string          { return "session:" + id }
func userSessionsKey(userID string) string { return "user_sessions:" + userID }
