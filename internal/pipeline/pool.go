package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Job is one video queued for processing.
type Job struct {
	VideoPath string
}

// QueueStats reports the current state of the processing queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the video processing worker pool.
type WorkerPoolOptions struct {
	Workers   int
	QueueSize int
	Log       zerolog.Logger
}

// WorkerPool runs pipeline jobs from a bounded queue. Each worker executes
// one run at a time; chunks within a run are still transcribed sequentially.
type WorkerPool struct {
	jobs     chan Job
	pipeline *Pipeline
	opts     WorkerPoolOptions
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// stopMu serializes Enqueue against Stop so a submit can never race
	// the channel close.
	stopMu  sync.Mutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a worker pool that feeds jobs into p.
func NewWorkerPool(p *Pipeline, opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:     make(chan Job, opts.QueueSize),
		pipeline: p,
		opts:     opts,
		log:      opts.Log.With().Str("component", "pool").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("worker pool started")
}

// Stop signals workers to drain the queue and waits for completion.
func (wp *WorkerPool) Stop() {
	wp.stopMu.Lock()
	if wp.stopped {
		wp.stopMu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.stopMu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("worker pool stopped")
}

// Shutdown cancels in-flight runs at their next suspension point, then
// drains as Stop does.
func (wp *WorkerPool) Shutdown() {
	wp.cancel()
	wp.Stop()
}

// Enqueue adds a job to the queue. Returns false if the queue is full or
// the pool has been stopped.
func (wp *WorkerPool) Enqueue(j Job) bool {
	wp.stopMu.Lock()
	defer wp.stopMu.Unlock()
	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		if _, err := wp.pipeline.Run(wp.ctx, job.VideoPath); err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).Str("video", job.VideoPath).Msg("pipeline run failed")
		} else {
			wp.completed.Add(1)
		}
	}
}
