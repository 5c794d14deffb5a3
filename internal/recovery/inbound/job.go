package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/scheduler"
	"github.com/shandysiswandi/penagih/internal/recovery/usecase"
)

const (
	defaultFollowupInterval = 15 * time.Minute
	defaultOverdueInterval  = 10 * time.Minute
	defaultDailyInterval    = 24 * time.Hour
)

// followupDueJob drives the FOLLOWUP_DUE generator. Lock-free: the generator
// is idempotent per customer per hour.
type followupDueJob struct {
	uc  *usecase.Usecase
	cfg config.Config
}

func (j *followupDueJob) Name() string { return "recovery_followup_due" }

func (j *followupDueJob) Interval() time.Duration {
	if v := j.cfg.GetMinute("recovery.followup_interval_minutes"); v > 0 {
		return v
	}
	return defaultFollowupInterval
}

func (j *followupDueJob) Run(ctx context.Context) error {
	return j.uc.RunFollowupDue(ctx)
}

// promiseWatchJob rides the follow-up cadence; its own work dedupes per day.
type promiseWatchJob struct {
	uc  *usecase.Usecase
	cfg config.Config
}

func (j *promiseWatchJob) Name() string { return "recovery_promise_watch" }

func (j *promiseWatchJob) Interval() time.Duration {
	if v := j.cfg.GetMinute("recovery.promise_interval_minutes"); v > 0 {
		return v
	}
	return defaultFollowupInterval
}

func (j *promiseWatchJob) Run(ctx context.Context) error {
	return j.uc.RunPromiseWatch(ctx)
}

// billDueJob is the daily pass over bills and summaries.
type billDueJob struct {
	uc  *usecase.Usecase
	cfg config.Config
}

func (j *billDueJob) Name() string { return "recovery_bill_due" }

func (j *billDueJob) Interval() time.Duration {
	if v := j.cfg.GetHour("recovery.bill_interval_hours"); v > 0 {
		return v
	}
	return defaultDailyInterval
}

func (j *billDueJob) Run(ctx context.Context) error {
	return j.uc.RunBillDue(ctx)
}

// overdueBatchJob is the lock-guarded sweep of missed follow-ups. Its lease
// is configured well under this interval so a crashed holder self-expires
// before the next legitimate run.
type overdueBatchJob struct {
	uc  *usecase.Usecase
	cfg config.Config
}

func (j *overdueBatchJob) Name() string { return "recovery_overdue_batch" }

func (j *overdueBatchJob) Interval() time.Duration {
	if v := j.cfg.GetMinute("recovery.overdue_interval_minutes"); v > 0 {
		return v
	}
	return defaultOverdueInterval
}

func (j *overdueBatchJob) Run(ctx context.Context) error {
	return j.uc.RunOverdueBatch(ctx)
}

// RegisterJobs attaches the module's periodic work to the scheduler.
func RegisterJobs(sch *scheduler.Scheduler, uc *usecase.Usecase, cfg config.Config) {
	sch.Register(&followupDueJob{uc: uc, cfg: cfg})
	sch.Register(&promiseWatchJob{uc: uc, cfg: cfg})
	sch.Register(&billDueJob{uc: uc, cfg: cfg})
	sch.Register(&overdueBatchJob{uc: uc, cfg: cfg})
}
