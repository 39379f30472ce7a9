package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"production_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	emailMaxRetry = 5
	emailTimeout  = time.Minute
	// emailDedupWindow keeps the task id reserved after completion so a
	// replayed broadcast cannot send the same notification twice.
	emailDedupWindow = 24 * time.Hour
)

// EmailQueue defers notification emails to the worker.
type EmailQueue interface {
	EnqueueNotificationEmail(ctx context.Context, payload NotificationEmailPayload) error
}

// Client enqueues tasks for the scheduler binary.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("scheduler client: redis url not configured")
	}
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, fmt.Errorf("scheduler client: %w", err)
	}
	return &Client{client: asynq.NewClient(opt), queue: queueName(cfg)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotificationEmail queues one email. A payload tied to a
// notification is enqueued at most once per notification.
func (c *Client) EnqueueNotificationEmail(ctx context.Context, payload NotificationEmailPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewNotificationEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, emailTaskOptions(c.queue, payload)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func emailTaskOptions(queue string, payload NotificationEmailPayload) []asynq.Option {
	opts := []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(emailMaxRetry),
		asynq.Timeout(emailTimeout),
	}
	if payload.NotificationID != "" {
		opts = append(opts,
			asynq.TaskID(TaskNotificationEmail+":"+payload.NotificationID),
			asynq.Retention(emailDedupWindow),
		)
	}
	return opts
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

// redisClientOpt converts a redis:// or rediss:// URL into asynq options.
func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	tlsConfig := opt.TLSConfig
	switch {
	case tlsConfig != nil && tlsInsecure:
		tlsConfig = tlsConfig.Clone()
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for self-signed dev brokers
	case tlsConfig == nil && tlsInsecure:
		tlsConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev brokers
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
