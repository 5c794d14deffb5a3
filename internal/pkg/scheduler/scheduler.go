// Package scheduler runs named jobs on fixed intervals.
//
// It replaces cron-style "just schedule a function" wiring with explicit
// periodic tasks: each job declares its own interval, runs to completion
// before its next tick (a job never overlaps itself), and failures or panics
// in one run never stop the loop. Different jobs run independently of each
// other. The clock is injected so tests can drive ticks deterministically.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/stacktrace"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
)

// Job is one periodic task.
type Job interface {
	// Name identifies the job in logs and lock names.
	Name() string
	// Interval is the fixed delay between the end of one run and the start of
	// the next.
	Interval() time.Duration
	// Run executes one iteration. Returning an error marks the run failed but
	// does not stop future runs.
	Run(ctx context.Context) error
}

// Stats carries per-job counters exposed on the health endpoint.
type Stats struct {
	Runs         int64
	Errors       int64
	LastDuration time.Duration
	LastRunAt    time.Time
}

type jobState struct {
	job          Job
	runs         atomic.Int64
	errs         atomic.Int64
	lastDuration atomic.Duration
	lastRunAt    atomic.Time
}

// Scheduler owns a set of jobs and their run loops.
type Scheduler struct {
	clock clock.Clocker
	uuid  uid.StringID
	ins   instrument.Instrumentation

	mu     sync.Mutex
	jobs   []*jobState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler. All dependencies are required.
func New(clocker clock.Clocker, uuid uid.StringID, ins instrument.Instrumentation) *Scheduler {
	return &Scheduler{
		clock: clocker,
		uuid:  uuid,
		ins:   ins,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &jobState{job: job})
}

// Start launches one loop per registered job. The first run of each job
// happens after one full interval, not immediately, so a fleet rollout does
// not stampede the store.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	jobs := s.jobs
	s.mu.Unlock()

	for _, st := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, st)
	}
}

// Stop cancels all loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// JobStats returns a snapshot of per-job counters keyed by job name.
func (s *Scheduler) JobStats() map[string]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Stats, len(s.jobs))
	for _, st := range s.jobs {
		out[st.job.Name()] = Stats{
			Runs:         st.runs.Load(),
			Errors:       st.errs.Load(),
			LastDuration: st.lastDuration.Load(),
			LastRunAt:    st.lastRunAt.Load(),
		}
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, st *jobState) {
	defer s.wg.Done()

	timer := time.NewTimer(st.job.Interval())
	defer timer.Stop()

	slog.InfoContext(ctx, "scheduler job registered",
		"job", st.job.Name(), "interval", st.job.Interval().String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler job stopped", "job", st.job.Name())
			return
		case <-timer.C:
			s.runOnce(ctx, st)
			// Reset only after the run completed; a slow run delays its own
			// next tick instead of overlapping it.
			timer.Reset(st.job.Interval())
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, st *jobState) {
	runCtx := instrument.WithCorrelationID(ctx, s.uuid.Generate())
	runCtx, span := s.ins.Tracer("pkg.scheduler").Start(runCtx, st.job.Name())
	defer span.End()

	started := s.clock.Now()
	st.lastRunAt.Store(started)
	st.runs.Inc()

	defer func() {
		st.lastDuration.Store(s.clock.Now().Sub(started))

		if rvr := recover(); rvr != nil {
			st.errs.Inc()
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(runCtx, "panic in scheduler job", "job", st.job.Name(), "stack", string(stack))
			} else {
				slog.ErrorContext(runCtx, "panic in scheduler job", "job", st.job.Name(), "stack", paths)
			}
		}
	}()

	if err := st.job.Run(runCtx); err != nil {
		st.errs.Inc()
		slog.ErrorContext(runCtx, "scheduler job run failed", "job", st.job.Name(), "error", err)
	}
}
