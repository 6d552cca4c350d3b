package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/htmlpath/internal/chunker"
	"github.com/dgallion1/htmlpath/internal/config"
	"github.com/dgallion1/htmlpath/internal/source"
	"github.com/dgallion1/htmlpath/internal/stats"
)

var (
	// ErrQueueFull is returned by Submit when no worker can take the job.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("pipeline is stopped")
)

// Orchestrator manages the document anchoring pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	store    AnchorStore
	latency  *stats.Latency
	log      *slog.Logger
	cfg      config.Config
	chunkCfg chunker.Config
	srcOpts  source.Options

	cleanupEvery time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	stopOnce     sync.Once

	// mu guards stopped and orders Submit against closing the queue.
	mu      sync.RWMutex
	stopped bool
}

// NewOrchestrator creates the pipeline. store may be nil, in which case
// anchors are only kept on the job. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, store AnchorStore, latency *stats.Latency, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		store:   store,
		latency: latency,
		log:     log,
		cfg:     cfg,
		chunkCfg: chunker.Config{
			ChunkSize: cfg.AnchorChunkSize,
			MinChunk:  cfg.AnchorChunkSize / 10,
		},
		srcOpts: source.Options{
			PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
			SanitizeMarkdown:     cfg.SanitizeMarkdown,
		},
		cleanupEvery: 5 * time.Minute,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.latency, o.log, o.chunkCfg, o.srcOpts, o.cfg.MaxConcurrentResolve)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop shuts down the pipeline and waits for workers to exit. Jobs still
// queued are marked failed so pollers do not wait on them forever.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		o.mu.Lock()
		o.stopped = true
		close(o.queue)
		o.mu.Unlock()
		o.wg.Wait()

		dropped := 0
		for job := range o.queue {
			job.AddError("pipeline stopped before the job started")
			job.SetStatus(StatusFailed, "queued")
			dropped++
		}
		if dropped > 0 {
			o.log.Warn("dropped queued jobs on shutdown", "jobs", dropped)
		}
	})
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError(ErrQueueFull.Error())
		job.SetStatus(StatusFailed, "queue_full")
		return ErrQueueFull
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Latency returns the resolve latency tracker shared by all workers.
func (o *Orchestrator) Latency() *stats.Latency {
	return o.latency
}
