package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Close() error
}

// RedisConfig configures [NewRedisStore].
type RedisConfig struct {
	// Addr is the server address. Empty means localhost:6379.
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Empty means "mindmap".
	Prefix string
	// TTL expires diagrams after a period without saves. Zero keeps them.
	TTL time.Duration
}

// RedisStore keeps diagrams in Redis, one string key per diagram plus a
// set indexing the IDs.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, mmerrors.Wrap(mmerrors.ErrCodeNetwork, err, "connect to redis at %s", cfg.Addr)
	}
	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client RedisClient, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "mindmap"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":diagram:" + id }
func (s *RedisStore) index() string        { return s.prefix + ":diagrams" }

func (s *RedisStore) Save(ctx context.Context, id string, doc outline.Document) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	data, err := json.Marshal(newRecord(id, doc))
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := s.client.SAdd(ctx, s.index(), id).Err(); err != nil {
		return fmt.Errorf("redis index: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, id string) (record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return record{}, notFound(id)
	}
	if err != nil {
		return record{}, fmt.Errorf("redis get: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "parse diagram %q", id)
	}
	return rec, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (outline.Document, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return outline.Document{}, err
	}
	rec, err := s.get(ctx, id)
	if err != nil {
		return outline.Document{}, err
	}
	return rec.Document, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if err := s.client.SRem(ctx, s.index(), id).Err(); err != nil {
		return fmt.Errorf("redis index: %w", err)
	}
	return nil
}

// List reads every indexed diagram. IDs whose key expired are dropped from
// the index.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	ids, err := s.client.SMembers(ctx, s.index()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis members: %w", err)
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		rec, err := s.get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.client.SRem(ctx, s.index(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec.entry())
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
