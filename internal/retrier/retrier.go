// Package retrier executes named tasks with bounded exponential-backoff
// retry. It is deliberately agnostic to what a task does: it operates purely
// on run identity and task invocation, and reports each run's terminal state
// exactly once.
package retrier

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
	"github.com/C41M50N/readr-convex-hackathon/internal/telemetry"
)

// Config fixes the retry policy for every run.
type Config struct {
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// BackoffBase is the multiplicative growth factor per attempt.
	BackoffBase float64
	// MaxFailures bounds the number of failed attempts before the run is
	// abandoned.
	MaxFailures int
	// PoolSize bounds concurrent attempt execution.
	PoolSize int
}

func (c *Config) applyDefaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.BackoffBase <= 1 {
		c.BackoffBase = 2.5
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 16
	}
}

type run struct {
	id       string
	name     string
	task     content.TaskFunc
	opts     content.RunOptions
	ctx      context.Context
	cancel   context.CancelFunc
	attempts int

	mu     sync.Mutex
	result content.RunResult
	done   bool
}

// Retrier is a process-wide retry service backed by a bounded goroutine
// pool. Backoff waits happen on timers outside the pool, so a run sleeping
// between attempts never occupies a worker.
type Retrier struct {
	cfg    Config
	pool   *ants.Pool
	idGen  content.IDGenerator
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

var _ content.Retrier = (*Retrier)(nil)

// New builds a Retrier. A nil logger disables logging.
func New(cfg Config, idGen content.IDGenerator, logger *zap.Logger) (*Retrier, error) {
	cfg.applyDefaults()
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Retrier{
		cfg:    cfg,
		pool:   pool,
		idGen:  idGen,
		logger: logger,
		runs:   make(map[string]*run),
	}, nil
}

// Close releases pool workers. In-flight attempts run to completion.
func (r *Retrier) Close() {
	r.pool.Release()
}

// Run schedules the task for execution with retries and returns its run ID
// immediately.
func (r *Retrier) Run(ctx context.Context, name string, task content.TaskFunc, opts content.RunOptions) (string, error) {
	if task == nil {
		return "", fmt.Errorf("task is required")
	}
	id, err := r.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rn := &run{
		id:     id,
		name:   name,
		task:   task,
		opts:   opts,
		ctx:    runCtx,
		cancel: cancel,
		result: content.RunResult{State: content.RunRunning},
	}
	r.mu.Lock()
	r.runs[id] = rn
	r.mu.Unlock()

	if err := r.submit(rn); err != nil {
		cancel()
		r.mu.Lock()
		delete(r.runs, id)
		r.mu.Unlock()
		return "", err
	}
	return id, nil
}

// Cancel stops a run before its next attempt starts. It reports whether
// cancellation took effect before the run completed. An attempt already
// executing observes a canceled context but external side effects are not
// rolled back.
func (r *Retrier) Cancel(runID string) bool {
	r.mu.RLock()
	rn, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	rn.mu.Lock()
	done := rn.done
	rn.mu.Unlock()
	if done {
		return false
	}
	rn.cancel()
	if r.completeIfRunning(rn, content.RunResult{State: content.RunCanceled}) {
		return true
	}
	// A backoff timer goroutine may observe the canceled context first and
	// record the terminal state on our behalf.
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.result.State == content.RunCanceled
}

// Status reports the run's current result. The second return is false for
// unknown run IDs.
func (r *Retrier) Status(runID string) (content.RunResult, bool) {
	r.mu.RLock()
	rn, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return content.RunResult{}, false
	}
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.result, true
}

func (r *Retrier) submit(rn *run) error {
	if err := r.pool.Submit(func() { r.attempt(rn) }); err != nil {
		return fmt.Errorf("submit task %q: %w", rn.name, err)
	}
	return nil
}

func (r *Retrier) attempt(rn *run) {
	if rn.ctx.Err() != nil {
		r.completeIfRunning(rn, content.RunResult{State: content.RunCanceled})
		return
	}

	rn.attempts++
	err := rn.task(rn.ctx)
	telemetry.ObserveRunAttempt(rn.name, err == nil)
	if err == nil {
		r.complete(rn, content.RunResult{State: content.RunSucceeded})
		return
	}

	if rn.ctx.Err() != nil {
		r.completeIfRunning(rn, content.RunResult{State: content.RunCanceled})
		return
	}
	if rn.attempts >= r.cfg.MaxFailures {
		r.logger.Warn("task exhausted retries",
			zap.String("run_id", rn.id),
			zap.String("task", rn.name),
			zap.Int("attempts", rn.attempts),
			zap.Error(err))
		r.complete(rn, content.RunResult{State: content.RunFailed, Err: err})
		return
	}

	delay := r.backoff(rn.attempts)
	r.logger.Debug("task attempt failed, backing off",
		zap.String("run_id", rn.id),
		zap.String("task", rn.name),
		zap.Int("attempt", rn.attempts),
		zap.Duration("delay", delay),
		zap.Error(err))

	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-rn.ctx.Done():
			r.completeIfRunning(rn, content.RunResult{State: content.RunCanceled})
		case <-timer.C:
			if submitErr := r.submit(rn); submitErr != nil {
				r.complete(rn, content.RunResult{State: content.RunFailed, Err: submitErr})
			}
		}
	}()
}

// backoff returns initialBackoff * base^(attempt-1): the delay after the
// first failure is the initial backoff itself.
func (r *Retrier) backoff(failures int) time.Duration {
	scale := math.Pow(r.cfg.BackoffBase, float64(failures-1))
	return time.Duration(float64(r.cfg.InitialBackoff) * scale)
}

func (r *Retrier) complete(rn *run, result content.RunResult) {
	r.completeIfRunning(rn, result)
}

// completeIfRunning transitions the run to a terminal result at most once
// and fires the completion callback. Reports whether this call won.
func (r *Retrier) completeIfRunning(rn *run, result content.RunResult) bool {
	rn.mu.Lock()
	if rn.done {
		rn.mu.Unlock()
		return false
	}
	rn.done = true
	rn.result = result
	rn.mu.Unlock()

	rn.cancel()
	telemetry.ObserveRunResult(rn.name, string(result.State))
	if rn.opts.OnComplete != nil {
		rn.opts.OnComplete(rn.id, result)
	}
	return true
}
