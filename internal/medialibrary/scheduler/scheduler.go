package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// State is the scheduler's externally visible state.
type State int

const (
	Idle State = iota
	Discovering
	Paused
)

func (s State) String() string {
	switch s {
	case Discovering:
		return "discovering"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

var stateNames = []string{Idle.String(), Discovering.String(), Paused.String()}

// TaskFunc is a unit of background work. It calls checkpoint between files
// and stops when checkpoint returns an error.
type TaskFunc func(ctx context.Context, checkpoint func(context.Context) error) error

// Task is a queued unit of work. Key identifies the folder it covers and is
// used for coalescing; Group is the entry point it belongs to and is used
// for cancellation.
type Task struct {
	Key   string
	Group string
	Run   TaskFunc
}

type running struct {
	task   Task
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs tasks one at a time on a single worker goroutine.
type Scheduler struct {
	logger interfaces.Logger

	mu       sync.Mutex
	queue    []Task
	held     map[string]int
	current  *running
	paused   bool
	resumed  chan struct{}
	idle     chan struct{}
	isIdle   bool
	wake     chan struct{}
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	interval time.Duration
	reload   func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReload calls fn every interval while the scheduler runs.
func WithReload(interval time.Duration, fn func()) Option {
	return func(s *Scheduler) {
		s.interval = interval
		s.reload = fn
	}
}

// New creates a scheduler. Call Start to run queued tasks.
func New(logger interfaces.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		held:    make(map[string]int),
		resumed: make(chan struct{}),
		idle:    make(chan struct{}),
		isIdle:  true,
		wake:    make(chan struct{}, 1),
	}
	close(s.resumed)
	close(s.idle)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the worker.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
	s.publishStateLocked()
	s.logger.Info("Scheduler started")
}

// Stop cancels the running task and waits for the worker to exit. Queued
// tasks are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.queue = nil
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.signalIdleLocked()
	s.publishStateLocked()
	s.mu.Unlock()
	s.logger.Info("Scheduler stopped")
}

// Schedule queues a task. It returns false when a task with the same key is
// already queued or running.
func (s *Scheduler) Schedule(task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held[task.Group] > 0 {
		s.logger.Debug("Task dropped, group on hold",
			interfaces.String("key", task.Key),
			interfaces.String("group", task.Group))
		return false
	}
	if s.current != nil && s.current.task.Key == task.Key {
		return s.coalesced(task)
	}
	for _, queued := range s.queue {
		if queued.Key == task.Key {
			return s.coalesced(task)
		}
	}

	s.queue = append(s.queue, task)
	s.markBusyLocked()
	s.publishStateLocked()
	s.signal()
	return true
}

func (s *Scheduler) coalesced(task Task) bool {
	metrics.SchedulerTasksCoalesced.Inc()
	s.logger.Debug("Task coalesced", interfaces.String("key", task.Key))
	return false
}

// Cancel drops the queued tasks of group, cancels its running task and waits
// for that task to return.
func (s *Scheduler) Cancel(group string) {
	s.Hold(group)()
}

// Hold cancels group like Cancel and then rejects its tasks until release is
// called.
func (s *Scheduler) Hold(group string) (release func()) {
	s.mu.Lock()
	s.held[group]++
	kept := s.queue[:0]
	for _, t := range s.queue {
		if t.Group != group {
			kept = append(kept, t)
		}
	}
	s.queue = kept

	var done chan struct{}
	if s.current != nil && s.current.task.Group == group {
		s.current.cancel()
		done = s.current.done
	}
	s.signalIdleLocked()
	s.publishStateLocked()
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.held[group]--; s.held[group] <= 0 {
				delete(s.held, group)
			}
		})
	}
}

// Pause holds the worker at the next checkpoint. Queued tasks are not started
// until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.resumed = make(chan struct{})
	s.publishStateLocked()
	s.logger.Info("Background operations paused")
}

// Resume releases a paused worker.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	close(s.resumed)
	s.publishStateLocked()
	s.signal()
	s.logger.Info("Background operations resumed")
}

// Checkpoint blocks while paused. It returns an error once ctx is done.
func (s *Scheduler) Checkpoint(ctx context.Context) error {
	for {
		s.mu.Lock()
		paused, resumed := s.paused, s.resumed
		s.mu.Unlock()

		if !paused {
			return ctx.Err()
		}
		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// IsWorking reports whether a task is running or waiting to run.
func (s *Scheduler) IsWorking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil || len(s.queue) > 0
}

// WaitIdle blocks until no task is running or queued.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.interval > 0 && s.reload != nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if task := s.next(ctx); task != nil {
			s.execute(task)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-tick:
			s.reload()
		}
	}
}

func (s *Scheduler) next(ctx context.Context) *running {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || len(s.queue) == 0 || ctx.Err() != nil {
		return nil
	}

	task := s.queue[0]
	s.queue = s.queue[1:]
	taskCtx, cancel := context.WithCancel(ctx)
	s.current = &running{task: task, ctx: taskCtx, cancel: cancel, done: make(chan struct{})}
	s.publishStateLocked()
	return s.current
}

func (s *Scheduler) execute(r *running) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Task panicked",
				interfaces.String("key", r.task.Key),
				interfaces.Error(fmt.Errorf("%v", rec)))
		}
		r.cancel()

		s.mu.Lock()
		s.current = nil
		close(r.done)
		s.signalIdleLocked()
		s.publishStateLocked()
		s.mu.Unlock()
	}()

	err := r.task.Run(r.ctx, s.Checkpoint)
	if err != nil {
		s.logger.Info("Task stopped",
			interfaces.String("key", r.task.Key),
			interfaces.Error(err))
		return
	}
	s.logger.Debug("Task finished",
		interfaces.String("key", r.task.Key),
		interfaces.Duration("duration", time.Since(start)))
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) stateLocked() State {
	switch {
	case s.paused && (s.current != nil || len(s.queue) > 0):
		return Paused
	case s.current != nil:
		return Discovering
	default:
		return Idle
	}
}

func (s *Scheduler) markBusyLocked() {
	if s.isIdle {
		s.idle = make(chan struct{})
		s.isIdle = false
	}
}

func (s *Scheduler) signalIdleLocked() {
	if !s.isIdle && s.current == nil && len(s.queue) == 0 {
		close(s.idle)
		s.isIdle = true
	}
}

func (s *Scheduler) publishStateLocked() {
	metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	metrics.SetSchedulerState(s.stateLocked().String(), stateNames...)
}
