package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tranzac/internal/domain"
	"tranzac/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CMSSyncWorker pushes estimate workflow statuses back to the CMS
// asynchronously, so a slow or flaky CMS never blocks the accept/reject
// request path. Tasks go through a Redis list when available, an
// in-memory channel otherwise; failed pushes retry with exponential
// backoff and land on a dead-letter list when exhausted.
type CMSSyncWorker struct {
	cms         domain.CMSClient
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan models.SyncTask
	queueKey    string
	deadKey     string
	logger      *zerolog.Logger
}

func NewCMSSyncWorker(cms domain.CMSClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *CMSSyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &CMSSyncWorker{
		cms:         cms,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan models.SyncTask, models.WorkerQueueSize),
		queueKey:    "cms_sync:queue",
		deadKey:     "cms_sync:deadletter",
		logger:      logger,
	}
}

// EnqueueStatusSync schedules one workflow-status push.
func (w *CMSSyncWorker) EnqueueStatusSync(ctx context.Context, rentalRequestID, workflowStatus string) error {
	if rentalRequestID == "" || workflowStatus == "" {
		return errors.New("rental request id and workflow status are required")
	}

	task := models.SyncTask{
		ID:              uuid.NewString(),
		RentalRequestID: rentalRequestID,
		WorkflowStatus:  workflowStatus,
		CreatedAt:       time.Now(),
	}
	w.enqueue(ctx, task)
	return nil
}

func (w *CMSSyncWorker) enqueue(ctx context.Context, task models.SyncTask) {
	// Redis first for durability across restarts.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err == nil {
			return
		} else {
			w.logger.Warn().Err(err).Msg("cms_sync: redis push failed, using memory queue")
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Error().Str("task_id", task.ID).Msg("cms_sync: queue full, task dropped")
	}
}

// Start runs the consume loop until ctx is done.
func (w *CMSSyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("cms_sync: started")
	defer w.logger.Info().Msg("cms_sync: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if task, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, task)
			continue
		}

		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, task)
		case <-time.After(time.Second):
		}
	}
}

func (w *CMSSyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case task := <-w.queue:
		return task, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *CMSSyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.queueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("cms_sync: redis BRPOP error")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("cms_sync: decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *CMSSyncWorker) processTask(ctx context.Context, task models.SyncTask) {
	err := w.cms.UpdateWorkflowStatus(ctx, task.RentalRequestID, task.WorkflowStatus)
	if err == nil {
		w.logger.Debug().
			Str("rental_request_id", task.RentalRequestID).
			Str("workflow_status", task.WorkflowStatus).
			Msg("cms_sync: status pushed")
		return
	}

	w.retryOrFail(ctx, task, err)
}

func (w *CMSSyncWorker) retryOrFail(ctx context.Context, task models.SyncTask, cause error) {
	task.RetryCount++
	task.LastError = cause.Error()

	if w.retryPolicy.Exhausted(task.RetryCount) {
		w.logger.Error().Err(cause).
			Str("rental_request_id", task.RentalRequestID).
			Int("retries", task.RetryCount).
			Msg("cms_sync: giving up")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(cause).
		Str("rental_request_id", task.RentalRequestID).
		Dur("retry_in", delay).
		Msg("cms_sync: push failed, will retry")

	time.AfterFunc(delay, func() {
		w.enqueue(context.WithoutCancel(ctx), task)
	})
}

func (w *CMSSyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.queueKey, data).Err()
}

func (w *CMSSyncWorker) pushDeadLetter(ctx context.Context, task models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("cms_sync: deadletter push failed")
	}
}

// QueueKey exposes the Redis list name, used by health checks.
func (w *CMSSyncWorker) QueueKey() string { return w.queueKey }
