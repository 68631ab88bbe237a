// Package scheduler runs named tasks on cron schedules in a fixed timezone.
//
// Every firing runs in its own goroutine with a fresh run id. Failures and
// panics are logged here and never disable the schedule. There is no overlap
// guard: a slow run does not delay or skip the next firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"kahoot-course-creator/internal/logging"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

var ErrUnknownTask = errors.New("scheduler: unknown task")

type entry struct {
	id       cron.EntryID
	spec     string
	schedule cron.Schedule
	task     Task
}

type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *slog.Logger

	// inflight tracks runs started with RunAsync; cron tracks its own.
	inflight sync.WaitGroup

	mu    sync.Mutex
	base  context.Context
	tasks map[string]*entry
}

func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := logging.CronLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		loc:    loc,
		logger: logger,
		base:   context.Background(),
		tasks:  map[string]*entry{},
	}
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// ParseSchedule parses a standard five-field spec (or @descriptor) pinned to loc.
// A spec that already carries CRON_TZ= or TZ= keeps its own zone.
func ParseSchedule(spec string, loc *time.Location) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("scheduler: empty schedule")
	}
	if loc != nil && !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=" + loc.String() + " " + spec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	return sched, nil
}

// Add registers task under name to fire on spec.
func (s *Scheduler) Add(name, spec string, task Task) error {
	if name == "" || task == nil {
		return errors.New("scheduler: task needs a name and a func")
	}
	sched, err := ParseSchedule(spec, s.loc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[name]; dup {
		return fmt.Errorf("scheduler: task %q already registered", name)
	}

	e := &entry{spec: spec, schedule: sched, task: task}
	e.id = s.cron.Schedule(sched, cron.FuncJob(func() {
		s.run(s.baseContext(), name, task)
	}))
	s.tasks[name] = e

	s.logger.Info("scheduled task registered", "task", name, "spec", spec, "timezone", s.loc.String())
	return nil
}

// Start begins firing tasks in the background. Runs do not inherit ctx's
// cancellation; they only see its values.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = context.WithoutCancel(ctx)

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()

	s.cron.Start()
	for _, name := range names {
		if next, err := s.NextRun(name); err == nil {
			s.logger.Info("next scheduled run", "task", name, "at", next.Format(time.RFC3339))
		}
	}
}

// Stop prevents further firings and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.inflight.Wait()
}

// Next returns the first fire time of name strictly after t.
func (s *Scheduler) Next(name string, t time.Time) (time.Time, error) {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return e.schedule.Next(t), nil
}

// NextRun is Next relative to the current time.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	return s.Next(name, time.Now().In(s.loc))
}

// RunNow runs name synchronously through the same wrapper as a scheduled firing.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(ctx, name, e.task)
}

// RunAsync starts name in the background through the same wrapper as a
// scheduled firing. Stop waits for it. The run does not inherit ctx's
// cancellation.
func (s *Scheduler) RunAsync(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(context.WithoutCancel(ctx), name, e.task)
	}()
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *Scheduler) run(ctx context.Context, name string, task Task) (err error) {
	id := uuid.NewString()
	ctx = WithRunID(ctx, id)
	log := s.logger.With("task", name, "run_id", id)

	start := time.Now()
	log.Info("running scheduled task")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: task %s panicked: %v", name, r)
			log.Error("scheduled task panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			log.Error("scheduled task failed", "err", err, "duration", time.Since(start))
			return
		}
		log.Info("scheduled task finished", "duration", time.Since(start))
	}()

	return task(ctx)
}
