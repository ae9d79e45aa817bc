package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
)

const (
	projectKeyPrefix   = "rc:project:"      // Project record: rc:project:{id}
	projectSetKey      = "rc:projects"      // Set of stored project ids
	deadlineZSetKey    = "rc:deadlines"     // Wait deadlines, score = unix millis
	eventChannelPrefix = "rc:events:"       // Pub/Sub channel per project: rc:events:{id}
	projectTTL         = 7 * 24 * time.Hour // Safety TTL, refreshed on every write

	maxConflictRetries = 5
)

var (
	_ engine.Store    = (*RedisStore)(nil)
	_ engine.Notifier = (*RedisStore)(nil)
)

// RedisStore keeps each project as one JSON value. Updates run under WATCH so
// concurrent writers to the same project never interleave.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Create stores a new project; it fails with ErrProjectExists if the id is taken.
func (s *RedisStore) Create(ctx context.Context, p *domain.Project) error {
	p.Version = 1
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	ok, err := s.client.SetNX(ctx, projectKey(p.ID), data, projectTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if !ok {
		return domain.ErrProjectExists
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, projectSetKey, p.ID)
	indexDeadline(ctx, pipe, p)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index project: %w", err)
	}

	s.publish(ctx, p.ID)
	return nil
}

// Get retrieves a project by its ID
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	data, err := s.client.Get(ctx, projectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.forget(ctx, id)
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeProject(data)
}

// Update applies fn under optimistic locking. A WATCH conflict re-reads the
// record and calls fn again.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error) {
	key := projectKey(id)
	var updated *domain.Project

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get project: %w", err)
		}
		p, err := decodeProject(data)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}

		p.Version++
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal project: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, projectTTL)
			indexDeadline(ctx, pipe, p)
			return nil
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	err := backoff.Retry(func() error {
		err := s.client.Watch(ctx, txf, key)
		if err == nil || errors.Is(err, redis.TxFailedErr) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxConflictRetries), ctx))
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			s.forget(ctx, id)
		}
		if errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("failed to update project %s: too many conflicts: %w", id, err)
		}
		return nil, err
	}

	s.publish(ctx, id)
	return updated, nil
}

// Delete removes the project and its index entries.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, projectKey(id))
		pipe.SRem(ctx, projectSetKey, id)
		pipe.ZRem(ctx, deadlineZSetKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.publish(ctx, id)
	if del.Val() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// ListActive returns every stored project id.
func (s *RedisStore) ListActive(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, projectSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return ids, nil
}

// DueDeadlines returns ids whose deadline is at or before now, oldest first.
func (s *RedisStore) DueDeadlines(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, deadlineZSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read deadlines: %w", err)
	}
	return ids, nil
}

// Subscribe delivers a value after each committed change to the project.
func (s *RedisStore) Subscribe(ctx context.Context, id string) (<-chan struct{}, error) {
	pubsub := s.client.Subscribe(ctx, eventChannel(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// forget drops index entries left behind by a record that expired.
func (s *RedisStore) forget(ctx context.Context, id string) {
	pipe := s.client.Pipeline()
	pipe.SRem(ctx, projectSetKey, id)
	pipe.ZRem(ctx, deadlineZSetKey, id)
	_, _ = pipe.Exec(ctx)
}

func (s *RedisStore) publish(ctx context.Context, id string) {
	// Subscribers re-read the project; the payload is only the id.
	s.client.Publish(ctx, eventChannel(id), id)
}

func indexDeadline(ctx context.Context, pipe redis.Pipeliner, p *domain.Project) {
	if p.WaitDeadline == nil {
		pipe.ZRem(ctx, deadlineZSetKey, p.ID)
		return
	}
	pipe.ZAdd(ctx, deadlineZSetKey, redis.Z{
		Score:  float64(p.WaitDeadline.UnixMilli()),
		Member: p.ID,
	})
}

func decodeProject(data []byte) (*domain.Project, error) {
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &p, nil
}

// Helper methods for key generation
func projectKey(id string) string {
	return fmt.Sprintf("%s%s", projectKeyPrefix, id)
}

func eventChannel(id string) string {
	return fmt.Sprintf("%s%s", eventChannelPrefix, id)
}
