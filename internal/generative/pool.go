package generative

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Submit once the pool is shutting down
var ErrPoolStopped = errors.New("generation pool is shutting down")

// Task is one unit of work run by a pool worker
type Task func(ctx context.Context) error

type job struct {
	ctx    context.Context
	name   string
	task   Task
	result chan error
}

// Pool bounds how many model calls run at once
type Pool struct {
	workers  int
	jobQueue chan *job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPool creates a pool; call Start before Submit
func NewPool(workers int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers:  workers,
		jobQueue: make(chan *job, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() {
	p.logger.Info("Starting generation worker pool",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.jobQueue)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels running tasks and waits for the workers to exit
func (p *Pool) Stop() {
	p.logger.Info("Stopping generation worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Generation worker pool stopped")
}

// Submit queues task and waits for it to finish
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	j := &job{ctx: ctx, name: name, task: task, result: make(chan error, 1)}

	select {
	case p.jobQueue <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Generation worker started", zap.Int("worker_id", id))

	for {
		select {
		case j := <-p.jobQueue:
			p.process(id, j)
		case <-p.ctx.Done():
			p.logger.Debug("Generation worker stopping", zap.Int("worker_id", id))
			return
		}
	}
}

func (p *Pool) process(workerID int, j *job) {
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}

	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if p.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, p.timeout)
		defer cancelTimeout()
	}

	start := time.Now()
	err := j.task(ctx)
	j.result <- err

	if err != nil {
		p.logger.Debug("Worker completed job with error",
			zap.Int("worker_id", workerID),
			zap.String("job", j.name),
			zap.Error(err))
	} else {
		p.logger.Debug("Worker completed job successfully",
			zap.Int("worker_id", workerID),
			zap.String("job", j.name),
			zap.Duration("duration", time.Since(start)))
	}
}

// PooledGenerator runs every call of the wrapped generator on a Pool
type PooledGenerator struct {
	pool *Pool
	next Generator
}

// NewPooledGenerator wraps next
func NewPooledGenerator(pool *Pool, next Generator) *PooledGenerator {
	return &PooledGenerator{pool: pool, next: next}
}

// GenerateIcon runs the icon call on a pool worker
func (g *PooledGenerator) GenerateIcon(ctx context.Context, req IconRequest) (IconResult, error) {
	var result IconResult
	err := g.pool.Submit(ctx, "icon", func(ctx context.Context) error {
		var err error
		result, err = g.next.GenerateIcon(ctx, req)
		return err
	})
	if err != nil {
		return IconResult{}, err
	}
	return result, nil
}

// GenerateHeatmap runs the heatmap call on a pool worker
func (g *PooledGenerator) GenerateHeatmap(ctx context.Context, req HeatmapRequest) (HeatmapResult, error) {
	var result HeatmapResult
	err := g.pool.Submit(ctx, "heatmap", func(ctx context.Context) error {
		var err error
		result, err = g.next.GenerateHeatmap(ctx, req)
		return err
	})
	if err != nil {
		return HeatmapResult{}, err
	}
	return result, nil
}
