package scheduler

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TaskFn is a scheduled unit of work.
type TaskFn func()

// TaskInfo is the admin view of a ticker.
type TaskInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     int64         `json:"runs"`
	Panics   int64         `json:"panics"`
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFn
	done     chan struct{}
	runs     atomic.Int64
	panics   atomic.Int64
}

func (t *task) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Scheduler drives room ticks and housekeeping. Every ticker runs on its own
// goroutine; a panicking run is logged and counted and the ticker keeps going.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string]*task
	shutdown chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

// New returns an empty scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tasks:    make(map[string]*task),
		shutdown: make(chan struct{}),
		logger:   logger,
	}
}

// AddTicker runs fn every interval under name, replacing any task already
// registered with that name.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	t := &task{name: name, interval: interval, fn: fn, done: make(chan struct{})}

	s.mu.Lock()
	if old, ok := s.tasks[name]; ok {
		close(old.done)
	}
	s.tasks[name] = t
	s.mu.Unlock()

	go s.loop(t)
	s.logger.Debug("task scheduled", zap.String("task", name), zap.Duration("interval", interval))
}

func (s *Scheduler) loop(t *task) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-tk.C:
			// A tick can be ready at the same time as done.
			if t.stopped() {
				return
			}
			s.runOnce(t)
		case <-t.done:
			return
		case <-s.shutdown:
			return
		}
	}
}

func (s *Scheduler) runOnce(t *task) {
	t.runs.Add(1)
	defer func() {
		if r := recover(); r != nil {
			t.panics.Add(1)
			s.logger.Error("task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	t.fn()
}

// Remove stops the named task. Calling it from inside that task is allowed.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.done)
		delete(s.tasks, name)
	}
}

// Has reports whether name is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Stop ends every task. It is idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.shutdown) })
}

// Tasks lists the registered tasks by name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, TaskInfo{
			Name:     t.name,
			Interval: t.interval,
			Runs:     t.runs.Load(),
			Panics:   t.panics.Load(),
		})
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b TaskInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}
