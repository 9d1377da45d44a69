package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type names a well-known pool.
type Type string

const (
	// DefaultPool runs general purpose tasks.
	DefaultPool Type = "default"
	// HealthCheckPool runs storage health checks.
	HealthCheckPool Type = "health-check"
	// BackgroundPool runs housekeeping work.
	BackgroundPool Type = "background"
)

// Config defines the configuration for a worker pool.
type Config struct {
	// Capacity is the maximum number of concurrent workers.
	Capacity int
	// ExpiryDuration is how long an idle worker lives.
	ExpiryDuration time.Duration
	PreAlloc       bool
	// Nonblocking makes Submit fail with ErrPoolOverload instead of waiting.
	Nonblocking bool
	// MaxBlockingTasks bounds waiting submitters when Nonblocking is false.
	// Zero means unbounded.
	MaxBlockingTasks int
	PanicHandler     func(interface{})
}

// DefaultPoolConfig returns the configuration of DefaultPool.
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       1000,
		ExpiryDuration: 10 * time.Second,
	}
}

// HealthCheckPoolConfig returns the configuration of HealthCheckPool.
func HealthCheckPoolConfig() *Config {
	return &Config{
		Capacity:         100,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      true,
		MaxBlockingTasks: 10,
	}
}

// BackgroundPoolConfig returns the configuration of BackgroundPool.
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         50,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 100,
	}
}

// Pool is a named ants pool with task counters.
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    counters
	closed   atomic.Bool
	closedMu sync.Mutex
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
	waitNs    atomic.Int64
}

// Stats is a snapshot of a pool's counters.
type Stats struct {
	SubmittedTasks  int64
	CompletedTasks  int64
	FailedTasks     int64
	RejectedTasks   int64
	PanicRecovered  int64
	TotalWaitTimeNs int64
}

// NewPool creates a worker pool. A nil config means DefaultPoolConfig.
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	p := &Pool{name: name, typ: typ, config: config}

	ap, err := ants.NewPool(config.Capacity, antsOptions(name, config)...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool %q: %w", name, err)
	}
	p.pool = ap

	logger.Debugw("worker pool created",
		"name", name,
		"type", string(typ),
		"capacity", config.Capacity,
	)
	return p, nil
}

func antsOptions(name string, config *Config) []ants.Option {
	opts := []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
	}

	handler := config.PanicHandler
	if handler == nil {
		handler = func(p interface{}) {
			logger.Errorw("worker panic recovered", "pool", name, "panic", p)
		}
	}
	return append(opts, ants.WithPanicHandler(handler))
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Type returns the pool type.
func (p *Pool) Type() Type { return p.typ }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running returns the number of busy workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Free returns the number of idle worker slots.
func (p *Pool) Free() int { return p.pool.Free() }

// Waiting returns the number of blocked submitters.
func (p *Pool) Waiting() int { return p.pool.Waiting() }

// Submit schedules task on the pool.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	queued := time.Now()
	err := p.pool.Submit(func() {
		p.stats.waitNs.Add(int64(time.Since(queued)))
		p.stats.submitted.Add(1)

		defer func() {
			if r := recover(); r != nil {
				p.stats.panics.Add(1)
				p.stats.failed.Add(1)
				// the ants panic handler logs it
				panic(r)
			}
			p.stats.completed.Add(1)
		}()

		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		p.stats.failed.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext schedules task unless ctx is already done. A task still
// queued when ctx is cancelled is skipped.
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

// Release closes the pool.
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}
	p.closed.Store(true)
	p.pool.Release()
	logger.Debugw("worker pool released", "name", p.name)
}

// ReleaseTimeout closes the pool and waits up to timeout for running tasks.
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}
	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Tune changes the pool capacity.
func (p *Pool) Tune(size int) {
	p.pool.Tune(size)
	p.config.Capacity = size
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks:  p.stats.submitted.Load(),
		CompletedTasks:  p.stats.completed.Load(),
		FailedTasks:     p.stats.failed.Load(),
		RejectedTasks:   p.stats.rejected.Load(),
		PanicRecovered:  p.stats.panics.Load(),
		TotalWaitTimeNs: p.stats.waitNs.Load(),
	}
}
