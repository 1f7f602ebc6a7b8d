package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"hubbook/internal/models"

	"github.com/rs/zerolog"
)

// Engine is the part of the availability service the worker drives.
type Engine interface {
	PreGenerate(ctx context.Context, hubID int64, startDate, endDate string) error
}

// ProvisionTask is one pre-generation request for a hub date range.
type ProvisionTask struct {
	HubID     int64
	StartDate string
	EndDate   string
	CreatedAt time.Time
}

// ProvisionWorker materializes capacity records off the request path. The
// HTTP preGenerate action is fire-and-forget: it enqueues here and returns.
// Pre-generation is additive-only, so retrying a half-finished range is safe.
type ProvisionWorker struct {
	engine      Engine
	retryPolicy RetryPolicy
	taskTimeout time.Duration
	queue       chan ProvisionTask
	logger      *zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewProvisionWorker(engine Engine, retry RetryPolicy, logger *zerolog.Logger) *ProvisionWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}

	return &ProvisionWorker{
		engine:      engine,
		retryPolicy: retry,
		taskTimeout: time.Minute,
		queue:       make(chan ProvisionTask, models.ProvisionQueueSize),
		logger:      logger,
		stopped:     make(chan struct{}),
	}
}

// Start launches the worker loop.
func (w *ProvisionWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop drains nothing: queued tasks not yet picked up are dropped, which is
// acceptable because provisioning is idempotent maintenance work.
func (w *ProvisionWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
	})
	w.wg.Wait()
}

// EnqueueProvision schedules a pre-generation run. It never blocks: a full
// queue is reported to the caller instead.
func (w *ProvisionWorker) EnqueueProvision(ctx context.Context, hubID int64, startDate, endDate string) error {
	select {
	case <-w.stopped:
		return errors.New("provision worker is stopped")
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	task := ProvisionTask{HubID: hubID, StartDate: startDate, EndDate: endDate, CreatedAt: time.Now()}
	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("provision queue is full")
	}
}

func (w *ProvisionWorker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopped:
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

func (w *ProvisionWorker) process(task ProvisionTask) {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.taskTimeout)
		err := w.engine.PreGenerate(ctx, task.HubID, task.StartDate, task.EndDate)
		cancel()
		if err == nil {
			w.logger.Info().
				Int64("hub_id", task.HubID).
				Str("start", task.StartDate).
				Str("end", task.EndDate).
				Msg("pre-generation completed")
			return
		}

		if attempt > w.retryPolicy.MaxRetries {
			w.logger.Error().Err(err).
				Int64("hub_id", task.HubID).
				Str("start", task.StartDate).
				Str("end", task.EndDate).
				Msg("pre-generation failed, giving up")
			return
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).
			Int64("hub_id", task.HubID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("pre-generation failed, retrying")

		select {
		case <-w.stopped:
			return
		case <-time.After(delay):
		}
	}
}
