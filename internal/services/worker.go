package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
)

var ErrWorkerStopped = errors.New("worker stopped")

// BatchJob is one document in a batch run. ID is its position in the batch.
type BatchJob struct {
	ID  int
	Doc *models.UploadedDocument
}

type BatchResult struct {
	Job     BatchJob
	Result  *ParseResult
	Err     error
	Elapsed time.Duration
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Drain()
	EnqueueJob(job BatchJob) error
	Results() <-chan BatchResult
}

type worker struct {
	parser      ParserService
	jobQueue    chan BatchJob
	results     chan BatchResult
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	closeOnce   sync.Once
	logger      *zap.Logger
}

func NewWorker(parser ParserService, concurrency int, logger *zap.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &worker{
		parser:      parser,
		jobQueue:    make(chan BatchJob, 100),
		results:     make(chan BatchResult, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		logger:      logger,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.logger.Info("🚀 starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
}

// Stop abandons queued jobs and waits for in-flight ones.
func (w *worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.closeResults()
	w.logger.Info("✅ worker stopped")
}

// Drain closes the queue, lets workers finish every queued job and then
// closes Results. No job may be enqueued after Drain.
func (w *worker) Drain() {
	close(w.jobQueue)
	w.wg.Wait()
	w.closeResults()
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(job BatchJob) error {
	select {
	case <-w.stopChan:
		return ErrWorkerStopped
	default:
	}

	select {
	case w.jobQueue <- job:
		w.logger.Debug("📥 job enqueued", zap.Int("job", job.ID), zap.String("file", job.Doc.FileName))
		return nil
	case <-w.stopChan:
		return ErrWorkerStopped
	}
}

func (w *worker) Results() <-chan BatchResult {
	return w.results
}

func (w *worker) closeResults() {
	w.closeOnce.Do(func() { close(w.results) })
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}

			start := time.Now()
			res, err := w.parser.Parse(ctx, job.Doc)
			out := BatchResult{Job: job, Result: res, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				w.logger.Warn("❌ job failed", zap.Int("worker", workerID), zap.Int("job", job.ID), zap.Error(err))
			} else {
				w.logger.Debug("✅ job completed", zap.Int("worker", workerID), zap.Int("job", job.ID))
			}

			select {
			case w.results <- out:
			case <-w.stopChan:
				return
			}
		}
	}
}

// RunBatch parses docs with a pool of concurrency workers and returns the
// results in input order.
func RunBatch(ctx context.Context, parser ParserService, docs []*models.UploadedDocument, concurrency int, logger *zap.Logger) []BatchResult {
	w := NewWorker(parser, concurrency, logger)
	w.Start(ctx)

	go func() {
		for i, doc := range docs {
			if err := w.EnqueueJob(BatchJob{ID: i, Doc: doc}); err != nil {
				break
			}
		}
		w.Drain()
	}()

	out := make([]BatchResult, len(docs))
	for res := range w.Results() {
		out[res.Job.ID] = res
	}
	return out
}
