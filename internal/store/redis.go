package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKeyPrefix namespaces rule keys.
const DefaultRedisKeyPrefix = "rule:"

// RedisStore keeps each rule as a JSON document under prefix+name. Save uses
// SETNX so concurrent creates of one name cannot both succeed.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed store. The client is owned by the
// caller; Close does not close it.
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, r *Rule) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(r.Name), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	if !ok {
		return ErrDuplicateName
	}
	return nil
}

// FindByName implements Store.
func (s *RedisStore) FindByName(ctx context.Context, name string) (*Rule, error) {
	data, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}

	var r Rule
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule: %w", err)
	}
	return &r, nil
}

// FindByNames implements Store.
func (s *RedisStore) FindByNames(ctx context.Context, names []string) ([]*Rule, error) {
	if len(names) == 0 {
		return []*Rule{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(name)
	}

	found, err := s.mget(ctx, keys)
	if err != nil {
		return nil, err
	}
	return orderByNames(names, found), nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]*Rule, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	list := []*Rule{}
	if len(keys) == 0 {
		return list, nil
	}

	found, err := s.mget(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, r := range found {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// mget loads the documents at keys, keyed by rule name. Missing keys and
// undecodable documents are skipped.
func (s *RedisStore) mget(ctx context.Context, keys []string) (map[string]*Rule, error) {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	found := make(map[string]*Rule, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var r Rule
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			s.logger.Warn("skipping undecodable rule",
				zap.String("key", keys[i]),
				zap.Error(err),
			)
			continue
		}
		found[strings.TrimPrefix(keys[i], s.prefix)] = &r
	}
	return found, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, s.key(name)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store. The Redis client is closed by its owner.
func (s *RedisStore) Close() error {
	return nil
}
