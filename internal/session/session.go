// Package session holds the logged-in user's state between commands.
//
// A Session is created on login or registration, re-saved after every
// mutation of the user, and deleted on logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
)

// ErrNoSession is returned by Load for unknown or expired tokens.
var ErrNoSession = errors.New("session not found")

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	User      db.User   `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// New starts a session for u with a fresh random token.
func New(u db.User, now time.Time) *Session {
	s := &Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now,
	}
	s.SetUser(u)
	return s
}

// SetUser replaces the cached user snapshot. The credential is never kept.
func (s *Session) SetUser(u db.User) {
	u.PasswordHash = ""
	s.User = u
	s.UserID = u.ID
}

type Store interface {
	Load(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, token string) error
}

// RedisStore keeps sessions as JSON under session:<token> with a sliding TTL.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewRedisStore(c *cache.RedisCache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	key := r.cache.KeyForSession(token)
	raw, err := r.cache.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	_ = r.cache.Expire(ctx, key, r.ttl)
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.cache.Set(ctx, r.cache.KeyForSession(s.Token), b, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.cache.Del(ctx, r.cache.KeyForSession(token))
}
