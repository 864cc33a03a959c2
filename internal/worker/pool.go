package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iconidentify/xdl/internal/domain"
)

// ErrPoolClosed is returned when submitting to a pool that is draining.
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of work run by a pool worker.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	workers int
	tasks   chan Task
	logger  *slog.Logger
	onError func(error)

	mu     sync.Mutex
	closed bool

	wg  sync.WaitGroup
	ctx context.Context
}

// Config holds worker pool configuration.
type Config struct {
	Workers int
	// OnError receives failures escaping a task (recovered panics).
	OnError func(error)
}

// NewPool creates a new worker pool. Tasks receive ctx.
func NewPool(ctx context.Context, cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}

	return &Pool{
		workers: cfg.Workers,
		tasks:   make(chan Task, cfg.Workers),
		logger:  logger,
		onError: cfg.OnError,
		ctx:     ctx,
	}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Debug("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task, blocking while all workers are busy and the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Wait stops accepting tasks and blocks until every queued task has finished.
func (p *Pool) Wait() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("worker pool drained")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("worker started")

	for task := range p.tasks {
		p.run(logger, task)
	}

	logger.Debug("worker stopping")
}

func (p *Pool) run(logger *slog.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			err := &domain.ThreadError{Err: fmt.Errorf("%v", r)}
			logger.Error("task panicked", "error", err)
			p.onError(err)
		}
	}()

	task(p.ctx)
}
