package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/scheduler"
)

const defaultDeliveryInterval = 30 * time.Second

// DeliveryJob drives the delivery worker on a fixed cadence. Multiple engine
// instances can run it concurrently; the store-level attempt leases keep
// them from double-sending, so no cron lock is needed here.
type DeliveryJob struct {
	uc  *usecase.Usecase
	cfg config.Config
}

func NewDeliveryJob(uc *usecase.Usecase, cfg config.Config) *DeliveryJob {
	return &DeliveryJob{uc: uc, cfg: cfg}
}

func (j *DeliveryJob) Name() string { return "notification_delivery" }

func (j *DeliveryJob) Interval() time.Duration {
	if v := j.cfg.GetSecond("notification.worker_interval_seconds"); v > 0 {
		return v
	}
	return defaultDeliveryInterval
}

func (j *DeliveryJob) Run(ctx context.Context) error {
	processed, err := j.uc.DeliverDueAttempts(ctx)
	if err != nil {
		return err
	}

	if processed > 0 {
		slog.InfoContext(ctx, "delivery worker drained attempts", "processed", processed)
	}

	return nil
}

// RegisterJobs attaches the module's periodic work to the scheduler.
func RegisterJobs(sch *scheduler.Scheduler, uc *usecase.Usecase, cfg config.Config) {
	sch.Register(NewDeliveryJob(uc, cfg))
}
