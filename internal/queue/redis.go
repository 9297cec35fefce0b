// Package queue provides assessment queue implementations. The queue is a
// collaborator boundary: shelfwatch enqueues review tasks, a separate review
// system consumes them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
	"shelfwatch/internal/service"
)

// RedisQueue pushes review tasks onto a Redis list as JSON. Delivery is
// at-least-once: a retried batch may enqueue the same task twice and
// consumers must dedupe by task record URL + scan ID.
type RedisQueue struct {
	client *redis.Client
	key    string
	retry  service.RetryOptions
}

// RedisConfig configures the Redis connection and queue key.
type RedisConfig struct {
	Addr     string
	Password string
	Key      string
	DB       int
}

// NewRedisQueue creates a Redis-backed assessment queue and verifies the
// connection.
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrQueueUnavailable, err)
	}

	key := cfg.Key
	if key == "" {
		key = "shelfwatch:assessment"
	}

	return &RedisQueue{
		client: client,
		key:    key,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Enqueue pushes a task onto the queue, retrying transient Redis failures.
// Missing IDs and timestamps are filled in before serialization.
func (q *RedisQueue) Enqueue(ctx context.Context, task *model.ReviewTask) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", common.ErrInvalidRecord)
	}

	stampTask(task)

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode review task: %w", err)
	}

	return common.WithRetry(ctx, func() error {
		if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
			return fmt.Errorf("%w: %v", common.ErrQueueUnavailable, err)
		}
		return nil
	}, q.retry)
}

// Len returns the number of pending tasks, for operator visibility.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrQueueUnavailable, err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func stampTask(task *model.ReviewTask) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
}
