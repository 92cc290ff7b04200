package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SchedulerState is the state of a watch session
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StatePending
	StateRunning
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("SchedulerState(%d)", int(s))
	}
}

// RunFunc is the work a Scheduler triggers
type RunFunc func(ctx context.Context) error

// Scheduler coalesces bursts of change notifications into single runs.
//
// A notification while idle or pending (re)arms the quiet-window timer. When
// the timer expires the run starts. Notifications that arrive while a run is
// in flight mark the session dirty, and the timer is re-armed once the run
// completes, so two runs never overlap and no change is lost.
type Scheduler struct {
	quiet time.Duration
	run   RunFunc

	fires    chan uint64
	stop     chan struct{}
	loopDone chan struct{}

	mu      sync.Mutex
	state   SchedulerState
	timer   *time.Timer
	gen     uint64
	dirty   bool
	started bool
	closed  bool
	runs    int
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler that invokes run after quiet has elapsed
// since the last notification. Runs only start once Start has been called.
func NewScheduler(quiet time.Duration, run RunFunc) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	return &Scheduler{
		quiet:    quiet,
		run:      run,
		fires:    make(chan uint64),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start begins dispatching runs with ctx. Once ctx is done no new run starts.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return
	}
	s.started = true
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case gen := <-s.fires:
			s.fire(ctx, gen)
		}
	}
}

// Notify reports a change
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.state == StateRunning {
		s.dirty = true
		return
	}
	s.arm()
}

// arm resets the quiet-window timer. Must be called with mu held.
func (s *Scheduler) arm() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.state = StatePending
	s.timer = time.AfterFunc(s.quiet, func() {
		select {
		case s.fires <- gen:
		case <-s.stop:
		}
	})
}

func (s *Scheduler) fire(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale timer lost a race with a later Notify or Close.
	if s.closed || gen != s.gen || s.state != StatePending {
		return
	}
	if ctx.Err() != nil {
		s.state = StateIdle
		return
	}

	s.state = StateRunning
	s.runs++
	s.wg.Add(1)
	go s.execute(ctx)
}

func (s *Scheduler) execute(ctx context.Context) {
	defer s.wg.Done()

	if err := s.safeRun(ctx); err != nil {
		if ctx.Err() != nil {
			LogDebug("Sync run stopped: %v", err)
		} else {
			LogError("Sync run failed: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty && !s.closed && ctx.Err() == nil {
		s.dirty = false
		s.arm()
		return
	}
	s.dirty = false
	s.state = StateIdle
}

// safeRun keeps a panicking run from taking down the watch loop
func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sync run: %v", r)
		}
	}()
	return s.run(ctx)
}

// State returns the current state
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Runs returns how many runs have been started
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Close cancels any pending timer and waits for an in-flight run to finish
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.stop)
	started := s.started
	s.mu.Unlock()

	if started {
		<-s.loopDone
	}
	s.wg.Wait()
}
