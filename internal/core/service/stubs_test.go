package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

// stubUserRepo enforces uniqueness inside Create under its mutex, the same
// way the database constraints do.
type stubUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	seq       int
	updateErr error // if set, UpdateProfile returns this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Username == u.Username {
			return nil, domain.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.seq++
	clone := *u
	clone.ID = fmt.Sprintf("u%03d", r.seq)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			clone := *u
			out[id] = &clone
		}
	}
	return out, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Email == email })
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) findBy(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.byID[u.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for id, other := range r.byID {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return nil, domain.ErrDuplicateUsername
		}
		if other.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	stored.Username = u.Username
	stored.Email = u.Email
	stored.AvatarFile = u.AvatarFile
	stored.UpdatedAt = u.UpdatedAt
	clone := *stored
	return &clone, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, userID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

type stubPostRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Post
	seq  int
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{byID: make(map[string]*domain.Post)}
}

func (r *stubPostRepo) Create(_ context.Context, p *domain.Post) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := *p
	clone.ID = fmt.Sprintf("p%04d", r.seq)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubPostRepo) FindByID(_ context.Context, id string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubPostRepo) Update(_ context.Context, p *domain.Post) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	stored.Title = p.Title
	stored.Content = p.Content
	clone := *stored
	return &clone, nil
}

func (r *stubPostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.byID, id)
	return nil
}

// List applies the same ordering the real stores use.
func (r *stubPostRepo) List(_ context.Context, f ports.ListPostsFilter) ([]*domain.Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Post
	for _, p := range r.byID {
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		clone := *p
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip >= len(matched) {
		return []*domain.Post{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

// ---------------------------------------------------------------------------
// Sessions and throttle
// ---------------------------------------------------------------------------

type stubSessionStore struct {
	mu       sync.Mutex
	sessions  map[string]*domain.Session
	getErr    error
	revokeErr error // if set, DeleteAllForUser returns this error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessionStore) Create(_ context.Context, sess *domain.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sess
	s.sessions[sess.ID] = &clone
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *sess
	return &clone, nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *stubSessionStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return s.revokeErr
	}
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *stubSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type stubThrottle struct {
	mu       sync.Mutex
	limit    int
	failures map[string]int
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{limit: limit, failures: make(map[string]int)}
}

func (t *stubThrottle) Blocked(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures[key] >= t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[key]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, key)
	return nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type recordingMailer struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubAvatarStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newStubAvatarStore() *stubAvatarStore {
	return &stubAvatarStore{saved: make(map[string][]byte)}
}

func (s *stubAvatarStore) Save(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[name] = data
	return nil
}

func (s *stubAvatarStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, name)
	s.deleted = append(s.deleted, name)
	return nil
}

func (s *stubAvatarStore) URL(name string) string { return "/static/profile_pics/" + name }

// stubThumbnailer reports the format sniffed from the first bytes of the
// upload and returns the content unchanged.
type stubThumbnailer struct{}

func (stubThumbnailer) Thumbnail(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return data, "png", nil
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return data, "jpeg", nil
	}
	return nil, "", domain.ErrUnsupportedImage
}

// stubTokens keeps issued tokens in memory and expires them against clock.
type stubTokens struct {
	mu     sync.Mutex
	clock  *fakeClock
	issued map[string]stubToken
	seq    int
}

type stubToken struct {
	userID  string
	expires time.Time
}

func newStubTokens(clock *fakeClock) *stubTokens {
	return &stubTokens{clock: clock, issued: make(map[string]stubToken)}
}

func (t *stubTokens) Issue(userID string, ttl time.Duration) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	tok := fmt.Sprintf("tok-%d", t.seq)
	t.issued[tok] = stubToken{userID: userID, expires: t.clock.Now().Add(ttl)}
	return tok, nil
}

func (t *stubTokens) Parse(token string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.issued[token]
	if !ok || !t.clock.Now().Before(st.expires) {
		return "", domain.ErrInvalidToken
	}
	return st.userID, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration // added after every read
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testHasher() PasswordHasher { return NewBcryptHasher(bcrypt.MinCost) }

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// mustRegister creates a user through AccountService, failing the test on error.
func mustRegister(t testingT, svc *AccountService, username, email, password string) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), ports.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\nrest-of-image")
	jpegHeader = []byte("\xff\xd8\xff\xe0rest-of-image")
)
