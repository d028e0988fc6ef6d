package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dugoutlabs/auth-go"
)

// RedisStore persists credentials in Redis, for deployments where the
// session shell runs server-side and state must survive process restarts.
// The token and user live under two keys; the token is written first and
// both are deleted in a single DEL, so a reader never sees the pair out of
// sync.
type RedisStore struct {
	rdb      *redis.Client
	tokenKey string
	userKey  string
	ttl      time.Duration
}

// RedisOption configures the RedisStore.
type RedisOption func(*RedisStore)

// WithKeys overrides the two Redis keys. Defaults: auth.DefaultTokenKey and
// auth.DefaultUserKey.
func WithKeys(tokenKey, userKey string) RedisOption {
	return func(s *RedisStore) {
		s.tokenKey = tokenKey
		s.userKey = userKey
	}
}

// WithTTL sets an expiry on both keys. Zero means no expiry.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// NewRedisStore creates a Redis-backed store on an existing client.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:      rdb,
		tokenKey: auth.DefaultTokenKey,
		userKey:  auth.DefaultUserKey,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewRedisStoreURL connects to the Redis at url, pings to verify
// connectivity, and returns a store on the new client.
func NewRedisStoreURL(url string, opts ...RedisOption) (*RedisStore, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("credstore: parsing redis URL: %w", err)
	}

	rdb := redis.NewClient(ropts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("credstore: pinging redis: %w", err)
	}

	return NewRedisStore(rdb, opts...), nil
}

// Save stores the token and the serialized user, token first, in one
// pipeline round trip.
func (s *RedisStore) Save(ctx context.Context, token string, user auth.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("credstore: encoding user: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.tokenKey, token, s.ttl)
	pipe.Set(ctx, s.userKey, data, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("credstore: saving record: %w", err)
	}
	return nil
}

// Load returns the stored pair. Either key missing, or an unreadable user
// record, reads as empty.
func (s *RedisStore) Load(ctx context.Context) (string, auth.User, bool) {
	vals, err := s.rdb.MGet(ctx, s.tokenKey, s.userKey).Result()
	if err != nil || len(vals) != 2 {
		return "", auth.User{}, false
	}

	token, ok := vals[0].(string)
	if !ok || token == "" {
		return "", auth.User{}, false
	}
	raw, ok := vals[1].(string)
	if !ok || raw == "" {
		return "", auth.User{}, false
	}

	var user auth.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return "", auth.User{}, false
	}
	return token, user, true
}

// Clear deletes both keys in one DEL. Idempotent.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.tokenKey, s.userKey).Err(); err != nil {
		return fmt.Errorf("credstore: clearing record: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error { return s.rdb.Close() }
