package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/cronlock"
	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

const (
	// OverdueBatchLockName is the shared lock electing one executor for the
	// overdue follow-up sweep.
	OverdueBatchLockName = "recovery_overdue_followups"

	defaultOverdueLease = 9 * time.Minute
)

// RunOverdueBatch sweeps missed follow-ups: each one is pushed to its next
// slot by the reschedule policy, and a third miss additionally raises a
// FOLLOWUP_ESCALATED notification.
//
// Unlike the other generators this job runs under the distributed lock. The
// sweep rewrites task rows, so two instances running it back to back would
// both count a miss for the same task. Losing the lock race is a silent skip.
// The lock is released on every exit path; a crash recovers by lease expiry.
func (s *Usecase) RunOverdueBatch(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "RunOverdueBatch")
	defer span.End()

	lease := s.cfg.GetMinute("recovery.overdue_lease_minutes")
	if lease <= 0 {
		lease = defaultOverdueLease
	}

	acq, err := s.locker.Acquire(ctx, OverdueBatchLockName, lease)
	if err != nil {
		return err
	}
	if !acq.Acquired {
		slog.DebugContext(ctx, "overdue batch lock held elsewhere, skipping run")
		return nil
	}

	defer func() {
		status := cronlock.ExecutionStatusSuccess
		if err != nil {
			status = cronlock.ExecutionStatusError
		}
		if rErr := s.locker.Release(ctx, OverdueBatchLockName, acq.OwnerID, status); rErr != nil {
			slog.ErrorContext(ctx, "failed to release overdue batch lock", "error", rErr)
		}
	}()

	now := s.clock.Now()
	tasks, err := s.repoDB.ListOverdueFollowups(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	rescheduled, escalated := 0, 0
	for _, task := range tasks {
		enabled, err := s.followupsEnabled(ctx, task.BusinessID)
		if err != nil || !enabled {
			continue
		}

		decision := RescheduleOverdueFollowup(task, now, s.biz)

		status := entity.FollowupStatusOverdue
		if decision.Escalated {
			status = entity.FollowupStatusEscalated
		}

		if err := s.repoDB.RescheduleFollowup(ctx, task.ID, decision.NextDueAt,
			task.MissCount+1, decision.NewLevel, status, now); err != nil {
			slog.ErrorContext(ctx, "failed to reschedule followup", "task_id", task.ID, "error", err)
			continue
		}
		rescheduled++

		if decision.Escalated {
			s.notifyFollowupEscalated(ctx, task, decision, now)
			escalated++
		}
	}

	span.SetAttributes(
		attribute.Int("overdue.scanned", len(tasks)),
		attribute.Int("overdue.rescheduled", rescheduled),
		attribute.Int("overdue.escalated", escalated),
	)
	slog.InfoContext(ctx, "overdue followup sweep finished",
		"scanned", len(tasks), "rescheduled", rescheduled, "escalated", escalated)

	return nil
}

func (s *Usecase) notifyFollowupEscalated(ctx context.Context, task entity.FollowupTask, decision entity.RescheduleDecision, now time.Time) {
	if _, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
		BusinessID:     task.BusinessID,
		UserID:         task.UserID,
		CustomerID:     task.CustomerID,
		Kind:           notifentity.KindFollowupEscalated,
		IdempotencyKey: notifentity.IdempotencyKey(notifentity.KindFollowupEscalated, task.ID, s.biz.DateBucket(now)),
		Title:          fmt.Sprintf("Follow-up with %s keeps slipping", task.CustomerName),
		Body: fmt.Sprintf("You have missed this follow-up %d times. It moved to %s.",
			task.MissCount+1, s.biz.In(decision.NextDueAt).Format("Mon 2 Jan 15:04")),
		Metadata: valueobject.JSONMap{
			"task_id":     task.ID,
			"case_id":     task.CaseID,
			"customer_id": task.CustomerID,
			"miss_count":  task.MissCount + 1,
			"next_due_at": decision.NextDueAt,
			"deep_link":   fmt.Sprintf("penagih://cases/%d", task.CaseID),
			"occurred_at": now,
		},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure followup escalated notification", "task_id", task.ID, "error", err)
	}
}
