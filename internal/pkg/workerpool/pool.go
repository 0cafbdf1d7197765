package workerpool

import (
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("worker pool is closed")

// Config sizes the pool.
type Config struct {
	// InitialWorkers is the number of goroutines executing tasks.
	InitialWorkers int
	// QueueSize bounds how many submitters may block waiting for a free
	// worker before Submit starts failing.
	QueueSize int
}

// DefaultConfig returns a pool sized for background upload work.
func DefaultConfig() *Config {
	return &Config{
		InitialWorkers: 4,
		QueueSize:      100,
	}
}

// Pool runs submitted tasks on a bounded set of workers, backed by ants.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger
}

// New creates a started pool.
func New(cfg *Config, log *zap.Logger) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.InitialWorkers <= 0 {
		return nil, fmt.Errorf("workerpool: initial workers must be > 0, got %d", cfg.InitialWorkers)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("workerpool: queue size must be >= 0, got %d", cfg.QueueSize)
	}

	opts := []ants.Option{
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(v interface{}) {
			if log != nil {
				log.Error("worker task panicked", zap.Any("panic", v))
			}
		}),
	}

	p, err := ants.NewPool(cfg.InitialWorkers, opts...)
	if err != nil {
		return nil, fmt.Errorf("workerpool: create pool: %w", err)
	}

	if log != nil {
		log.Info("worker pool started",
			zap.Int("workers", cfg.InitialWorkers),
			zap.Int("queue_size", cfg.QueueSize),
		)
	}

	return &Pool{pool: p, logger: log}, nil
}

// Submit schedules task for execution. It blocks while the queue is full and
// fails once the pool is released or the queue limit is exceeded.
func (p *Pool) Submit(task func()) error {
	err := p.pool.Submit(task)
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("workerpool: submit: %w", err)
	}
	return nil
}

// Running returns the number of workers currently executing tasks.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Shutdown stops the pool. Tasks already running are allowed to finish.
func (p *Pool) Shutdown() {
	p.pool.Release()
	if p.logger != nil {
		p.logger.Info("worker pool stopped")
	}
}
