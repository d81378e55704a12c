package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ScanQueue runs scans on a fixed pool of workers.
type ScanQueue struct {
	scanner  Scanner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// quit wakes senders blocked on a full buffer so Shutdown can take mu.
	quit     chan struct{}
	quitOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ScanQueue)

func WithWorkers(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ScanQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler is called from worker goroutines and must be safe for concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(q *ScanQueue) {
		q.onResult = fn
	}
}

func NewScanQueue(scanner Scanner, logger *slog.Logger, opts ...Option) *ScanQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ScanQueue{
		scanner:  scanner,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		onResult: func(Result) {},
		ch:       make(chan Job, 256),
		quit:     make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ScanQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.onResult(q.process(workerID, job))
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ScanQueue) process(workerID int, job Job) Result {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	res, err := q.scanner.ScanQueued(ctx, job.UserID, job.Image, job.ContentType)
	out := Result{Job: job, Scan: res, Err: err, Duration: time.Since(start)}
	out.Job.Image = nil

	if err != nil {
		q.logger.Error("scan failed", "worker_id", workerID, "source", job.Source, "error", err)
	} else {
		q.logger.Info("scanned receipt", "worker_id", workerID, "source", job.Source, "duration_ms", out.Duration.Milliseconds())
	}
	return out
}

// Enqueue blocks while the buffer is full until a worker frees a slot or ctx ends.
func (q *ScanQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "source", job.Source)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued scan", "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "source", job.Source)
	select {
	case q.ch <- job:
		return nil
	case <-q.quit:
		q.logger.Warn("cannot enqueue: queue is shutting down", "source", job.Source)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to finish, or for ctx to end.
// It may be called again to keep waiting after an interrupted attempt.
func (q *ScanQueue) Shutdown(ctx context.Context) error {
	q.quitOnce.Do(func() { close(q.quit) })

	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
		return nil
	}
}

var _ Queue = (*ScanQueue)(nil)
