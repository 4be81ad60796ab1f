// Package scheduler implements the C5 scheduler: one cron entry per crawler,
// each ticking at its own interval, with misfire coalescing (a tick that
// fires while the previous run is still in flight is skipped, not queued)
// and run_now/pause/resume/remove/list management on top.
//
// This generalizes the teacher's single daily cron.New + AddFunc job
// (historically startCronWorker in cmd/worker/main.go) from one fixed schedule to N
// independently managed schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the unit of work a scheduled job runs. It receives a context
// scoped to the single tick.
type JobFunc func(ctx context.Context)

// JobStatus is a snapshot of one registered job's state, returned by List.
type JobStatus struct {
	Name            string
	IntervalMinutes int
	Paused          bool
	Running         bool
	NextRun         time.Time
	PrevRun         time.Time
}

type job struct {
	name            string
	intervalMinutes int
	fn              JobFunc
	entryID         cron.EntryID
	paused          int32 // atomic bool
	running         int32 // atomic bool, enforces max_instances=1 across scheduled ticks and RunNow
	prevRun         atomic.Value
}

// Scheduler owns one *cron.Cron instance and a job per crawler. It is safe
// for concurrent use.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New builds a Scheduler ticking in loc (time.UTC if nil). Every job is
// chained through cron.Recover (so a panicking job doesn't take down the
// whole scheduler) and cron.SkipIfStillRunning (the cron-library half of
// misfire coalescing; RunNow's own atomic guard covers the other half).
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.VerbosePrintfLogger(slogWriter{logger})
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, logger: logger, jobs: make(map[string]*job)}
}

type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Info(fmt.Sprintf(format, args...))
}

// AddJob registers a job ticking every intervalMinutes. Returns an error if
// a job with this name is already registered.
func (s *Scheduler) AddJob(name string, intervalMinutes int, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	if intervalMinutes <= 0 {
		return fmt.Errorf("scheduler: job %q interval must be positive, got %d", name, intervalMinutes)
	}

	j := &job{name: name, intervalMinutes: intervalMinutes, fn: fn}
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	entryID, err := s.cron.AddFunc(spec, func() { s.runTick(j) })
	if err != nil {
		return fmt.Errorf("scheduler: add job %q: %w", name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j
	return nil
}

func (s *Scheduler) runTick(j *job) {
	if atomic.LoadInt32(&j.paused) == 1 {
		return
	}
	s.run(j)
}

// run enforces max_instances=1: if the job is already running (whether from
// a prior tick or a concurrent RunNow), this invocation is skipped.
func (s *Scheduler) run(j *job) {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		s.logger.Warn("scheduler: skipping tick, previous run still in flight", slog.String("job", j.name))
		return
	}
	defer atomic.StoreInt32(&j.running, 0)

	j.prevRun.Store(time.Now())
	j.fn(context.Background())
}

// RunNow executes name immediately, out of band from its cron schedule,
// subject to the same max_instances=1 guard as a scheduled tick.
func (s *Scheduler) RunNow(name string) error {
	j, err := s.get(name)
	if err != nil {
		return err
	}
	go s.run(j)
	return nil
}

// Pause stops name's scheduled ticks from running without removing its
// cron entry; a paused job still fires on schedule but is a no-op.
func (s *Scheduler) Pause(name string) error {
	j, err := s.get(name)
	if err != nil {
		return err
	}
	atomic.StoreInt32(&j.paused, 1)
	return nil
}

// Resume reverses Pause.
func (s *Scheduler) Resume(name string) error {
	j, err := s.get(name)
	if err != nil {
		return err
	}
	atomic.StoreInt32(&j.paused, 0)
	return nil
}

// Remove unregisters name's cron entry entirely; a removed job must be
// re-added via AddJob to run again.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: job %q not found", name)
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, name)
	return nil
}

// List returns a snapshot of every registered job's current state.
func (s *Scheduler) List() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		status := JobStatus{
			Name:            j.name,
			IntervalMinutes: j.intervalMinutes,
			Paused:          atomic.LoadInt32(&j.paused) == 1,
			Running:         atomic.LoadInt32(&j.running) == 1,
			NextRun:         entry.Next,
		}
		if prev, ok := j.prevRun.Load().(time.Time); ok {
			status.PrevRun = prev
		}
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) get(name string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("scheduler: job %q not found", name)
	}
	return j, nil
}

// Start begins ticking every registered job. Idempotent: calling Start
// twice without an intervening Stop is a no-op, since the cron library
// ignores Start while it is already running.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts ticking and waits for any in-flight run started by a scheduled
// tick to finish (a run started by RunNow is not waited for), mirroring
// the module-level shutdown ordering the spec requires (archive scheduler
// and scheduler shut down before the process exits).
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
