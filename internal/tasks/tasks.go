// Package tasks defines background jobs run by the worker over the Redis-backed asynq queue.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"atomvideo/internal/mail"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TypeSendEmail = "email:send"

	QueueDefault = "default"
	QueueLow     = "low"

	maxEmailRetries = 8
)

// TaskEnqueuer is implemented by *asynq.Client and can be faked in tests.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RedisConnOpt points asynq at the Redis described by opts, keeping TLS for rediss:// URLs.
func RedisConnOpt(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Network:   opts.Network,
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

// NewSendEmailTask wraps a rendered message in an email:send task.
func NewSendEmailTask(msg *mail.Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendEmail, payload, asynq.MaxRetry(maxEmailRetries)), nil
}

// Dispatcher enqueues outgoing email for the worker.
type Dispatcher struct {
	client TaskEnqueuer
}

// NewDispatcher returns a Dispatcher over client.
func NewDispatcher(client TaskEnqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch enqueues msg. Bulk notices go to the low-priority queue.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *mail.Message) error {
	task, err := NewSendEmailTask(msg)
	if err != nil {
		return fmt.Errorf("build email task: %w", err)
	}
	queue := QueueDefault
	if msg.Kind == mail.KindNewVideo {
		queue = QueueLow
	}
	if _, err := d.client.Enqueue(task, asynq.Queue(queue)); err != nil {
		return fmt.Errorf("enqueue email task: %w", err)
	}
	return nil
}

// RetryDelay backs off exponentially from 30s, capped at one hour.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := 30 * time.Second
	const maxDelay = time.Hour
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
