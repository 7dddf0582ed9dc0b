package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
)

const generationActor = "system:generation-worker"

// Transitioner is the slice of the request service the worker needs. Going
// through the service keeps resident notifications and cache invalidation on
// the worker path too.
type Transitioner interface {
	MarkReadyForPickup(ctx context.Context, id int64, actor, generatedURL string) (*entity.DocumentRequest, error)
}

// GenerationWorker picks up requests in processing status, renders their
// documents through the external generator and fires the ready-for-pickup
// transition with the generation evidence attached. Render failures leave the
// request in processing; the next poll retries it.
type GenerationWorker struct {
	requestRepo  port.RequestRepository
	generator    port.DocumentGenerator
	transitioner Transitioner
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// GenerationWorkerOption configures the worker
type GenerationWorkerOption func(*GenerationWorker)

// WithPollInterval overrides the poll interval
func WithPollInterval(interval time.Duration) GenerationWorkerOption {
	return func(w *GenerationWorker) {
		w.pollInterval = interval
	}
}

// WithBatchSize overrides how many requests one poll handles
func WithBatchSize(size int) GenerationWorkerOption {
	return func(w *GenerationWorker) {
		w.batchSize = size
	}
}

// NewGenerationWorker creates a new generation worker
func NewGenerationWorker(
	requestRepo port.RequestRepository,
	generator port.DocumentGenerator,
	transitioner Transitioner,
	logger *zap.Logger,
	opts ...GenerationWorkerOption,
) *GenerationWorker {
	w := &GenerationWorker{
		requestRepo:  requestRepo,
		generator:    generator,
		transitioner: transitioner,
		logger:       logger,
		pollInterval: 30 * time.Second,
		batchSize:    20,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling loop
func (w *GenerationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("generation worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("GenerationWorker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))

	go w.pollLoop()

	return nil
}

// Stop cancels the loop and waits for the in-flight poll to finish
func (w *GenerationWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("GenerationWorker stopped")
}

// Name returns the worker name for identification
func (w *GenerationWorker) Name() string {
	return "GenerationWorker"
}

func (w *GenerationWorker) pollLoop() {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	w.pollOnce()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

// pollOnce renders every processing request in the current batch
func (w *GenerationWorker) pollOnce() {
	requests, err := w.requestRepo.List(w.ctx, port.RequestFilter{
		Status: entity.StatusProcessing,
		Limit:  w.batchSize,
	})
	if err != nil {
		w.logger.Error("Failed to list processing requests", zap.Error(err))
		return
	}

	if len(requests) == 0 {
		return
	}

	w.logger.Debug("Generating documents", zap.Int("count", len(requests)))

	for _, req := range requests {
		if w.ctx.Err() != nil {
			return
		}
		w.generate(req)
	}
}

func (w *GenerationWorker) generate(req *entity.DocumentRequest) {
	ctx, cancel := context.WithTimeout(w.ctx, 2*time.Minute)
	defer cancel()

	url, err := w.generator.Render(ctx, req, nil)
	if err != nil {
		w.logger.Warn("Document render failed, will retry on next poll",
			zap.Int64("request_id", req.ID),
			zap.String("tracking_number", req.TrackingNumber),
			zap.Error(err))
		return
	}

	if _, err := w.transitioner.MarkReadyForPickup(ctx, req.ID, generationActor, url); err != nil {
		// A concurrent transition or a guard denial means someone else handled
		// this request; log and move on.
		w.logger.Warn("Could not mark request ready",
			zap.Int64("request_id", req.ID),
			zap.Error(err))
		return
	}

	w.logger.Info("Document generated",
		zap.Int64("request_id", req.ID),
		zap.String("tracking_number", req.TrackingNumber),
		zap.String("document_url", url))
}
