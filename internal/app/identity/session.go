package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom/internal/app/user"
)

const (
	sessionKeyPrefix = "auth:session:"
	redisOpTimeout   = 500 * time.Millisecond
)

// Session is a live, revocable authenticated session. It is created on
// successful sign-up or sign-in and destroyed on sign-out.
type Session struct {
	// ID is the session id, carried as the jti of Token.
	ID        string        `json:"-"`
	Identity  user.Identity `json:"identity"`
	Token     string        `json:"-"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// SessionStore is the allow-list of live session ids.
type SessionStore interface {
	Store(ctx context.Context, sessionID, identityID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the session resolved for the current request, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

// NewMemorySessionStore keeps sessions in process memory. Single node only.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (s *memorySessionStore) Store(_ context.Context, sessionID, _ string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.items {
		if now.After(exp) {
			delete(s.items, id)
		}
	}
	s.items[sessionID] = now.Add(ttl)
	return nil
}

func (s *memorySessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.items[sessionID]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.items, sessionID)
		return false, nil
	}
	return true, nil
}

func (s *memorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

// redisKV is the subset of the go-redis client used by the session store.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKV
	prefix string
}

// NewRedisSessionStore keeps sessions in Redis so every server process sees sign-outs.
func NewRedisSessionStore(client redis.UniversalClient) SessionStore {
	return newRedisSessionStore(client)
}

func newRedisSessionStore(client redisKV) *redisSessionStore {
	return &redisSessionStore{
		client: client,
		prefix: sessionKeyPrefix,
	}
}

func (s *redisSessionStore) Store(ctx context.Context, sessionID, identityID string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+sessionID, identityID, ttl).Err()
}

func (s *redisSessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}
