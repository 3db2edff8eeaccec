package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"immo-scraper/models"
	"immo-scraper/utils"
)

// RedisStore keeps each row in a hash under {prefix}row:{id}. The list
// {prefix}rows holds the ids in stored order and the set {prefix}ids the
// same ids for membership checks.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and waits until it answers PING.
func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string, retry *utils.RetryConfig) (*RedisStore, error) {
	client := redis.NewClient(opts)
	err := retry.Do(ctx, "redis-ping", func() error { return client.Ping(ctx).Err() })
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) listKey() string { return s.prefix + "rows" }
func (s *RedisStore) setKey() string { return s.prefix + "ids" }
func (s *RedisStore) rowKey(id string) string { return s.prefix + "row:" + id }

func (s *RedisStore) ReadRows(ctx context.Context) ([]models.Row, error) {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.rowKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: read rows: %w", err)
	}

	rows := make([]models.Row, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, models.Row(fields))
	}
	return rows, nil
}

// WriteRows drops every stored row and writes rows in one transaction.
func (s *RedisStore) WriteRows(ctx context.Context, rows []models.Row) error {
	old, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis: read ids: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range old {
			pipe.Del(ctx, s.rowKey(id))
		}
		pipe.Del(ctx, s.listKey(), s.setKey())
		s.queueRows(ctx, pipe, rows)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: write rows: %w", err)
	}
	return nil
}

// AppendRows adds rows whose id is not stored yet.
func (s *RedisStore) AppendRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	known := make([]*redis.BoolCmd, len(rows))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range rows {
			known[i] = pipe.SIsMember(ctx, s.setKey(), r["id"])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: check ids: %w", err)
	}

	fresh := make([]models.Row, 0, len(rows))
	for i, r := range rows {
		if !known[i].Val() {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueRows(ctx, pipe, fresh)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: append rows: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) queueRows(ctx context.Context, pipe redis.Pipeliner, rows []models.Row) {
	for _, r := range rows {
		id := r["id"]
		fields := make(map[string]interface{}, len(r))
		for k, v := range r {
			fields[k] = v
		}
		pipe.HSet(ctx, s.rowKey(id), fields)
		pipe.RPush(ctx, s.listKey(), id)
		pipe.SAdd(ctx, s.setKey(), id)
	}
}
