// Package scheduler runs periodic housekeeping tasks on a small worker pool.
// A failed run is retried a bounded number of times; the next tick starts
// over with a fresh budget.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotRunning = errors.New("scheduler is not running")
	ErrQueueFull  = errors.New("scheduler queue is full")
)

// Task is one kind of housekeeping work
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Config sizes the worker pool and the retry budget of a run
type Config struct {
	Workers    int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	QueueSize  int
}

func DefaultConfig() Config {
	return Config{
		Workers:    1,
		Timeout:    5 * time.Minute,
		Retries:    3,
		RetryDelay: time.Minute,
		QueueSize:  16,
	}
}

type run struct {
	id        uuid.UUID
	task      Task
	attempt   int
	notBefore time.Time
}

type periodic struct {
	task  Task
	every time.Duration
}

// Scheduler owns the worker pool and the periodic triggers
type Scheduler struct {
	cfg    Config
	logger *zap.Logger
	queue  chan run

	mu       sync.Mutex
	running  bool
	periodic []periodic
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg Config, logger *zap.Logger) *Scheduler {
	d := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = d.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = d.QueueSize
	}
	return &Scheduler{cfg: cfg, logger: logger, queue: make(chan run, cfg.QueueSize)}
}

// Every runs task at a fixed interval once the scheduler is started.
// A non-positive interval leaves the task disabled.
func (s *Scheduler) Every(task Task, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("periodic task disabled", zap.String("task", task.Name()))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodic = append(s.periodic, periodic{task: task, every: interval})
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	for range s.cfg.Workers {
		s.spawn(func() { s.work(ctx) })
	}
	for _, p := range s.periodic {
		s.spawn(func() { s.tick(ctx, p) })
	}

	s.logger.Info("scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Int("periodic_tasks", len(s.periodic)),
		zap.Duration("timeout", s.cfg.Timeout),
	)
	return nil
}

// Stop cancels in-flight runs and waits for the goroutines, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger queues one run of task without blocking
func (s *Scheduler) Trigger(task Task) error {
	return s.enqueue(run{id: uuid.New(), task: task})
}

func (s *Scheduler) enqueue(r run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	select {
	case s.queue <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Scheduler) tick(ctx context.Context, p periodic) {
	t := time.NewTicker(p.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		switch err := s.Trigger(p.task); {
		case errors.Is(err, ErrQueueFull):
			s.logger.Warn("skipping periodic run, queue is full", zap.String("task", p.task.Name()))
		case err != nil && ctx.Err() == nil:
			s.logger.Error("queue periodic run", zap.String("task", p.task.Name()), zap.Error(err))
		}
	}
}

func (s *Scheduler) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-s.queue:
			if !sleepUntil(ctx, r.notBefore) {
				return
			}
			s.execute(ctx, r)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, r run) {
	log := s.logger.With(
		zap.String("task", r.task.Name()),
		zap.Stringer("run_id", r.id),
		zap.Int("attempt", r.attempt+1),
	)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	err := r.task.Run(runCtx)
	cancel()
	if err == nil {
		log.Debug("task finished")
		return
	}

	log.Error("task failed", zap.Error(err))
	if r.attempt >= s.cfg.Retries || ctx.Err() != nil {
		return
	}
	r.attempt++
	r.notBefore = time.Now().Add(s.cfg.RetryDelay)
	if err := s.enqueue(r); err != nil {
		log.Warn("dropping retry", zap.Error(err))
	}
}

// sleepUntil waits for t and reports false when ctx ends first
func sleepUntil(ctx context.Context, t time.Time) bool {
	wait := time.Until(t)
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
