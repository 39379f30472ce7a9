package scheduler

import (
	"context"
	"errors"
	"fmt"

	"production_backend/internal/email"
	"production_backend/platform/config"
	"production_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// Worker runs queued tasks in the scheduler binary.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender email.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender email.Sender, log *logger.Logger) (*Worker, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("scheduler worker: redis url not configured")
	}
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, fmt.Errorf("scheduler worker: %w", err)
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := &Worker{
		mux:    asynq.NewServeMux(),
		sender: sender,
		log:    log,
	}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{queueName(cfg): 1},
		ErrorHandler: asynq.ErrorHandlerFunc(w.reportFailure),
	})
	w.mux.HandleFunc(TaskNotificationEmail, w.handleNotificationEmail)
	return w, nil
}

// reportFailure logs the final attempt of a task; earlier attempts are retried quietly.
func (w *Worker) reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
		return
	}
	w.log.Error("scheduler task abandoned", "task", task.Type(), "attempts", retried+1, "error", err)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNotificationEmail(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationEmailPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.ToEmail == "" {
		return nil
	}

	err = w.sender.SendNotificationEmail(ctx, payload.ToEmail, payload.ToName, email.Notification{
		Subject:  payload.Subject,
		Heading:  payload.Heading,
		Body:     payload.Body,
		CTALabel: payload.CTALabel,
		CTAURL:   payload.CTAURL,
	})
	if err != nil {
		w.log.DeliveryFailed("email", payload.ToEmail, TaskNotificationEmail, err)
		return err
	}
	return nil
}
