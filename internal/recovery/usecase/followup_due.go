package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

const (
	followupLookback  = 30 * time.Minute
	followupLookahead = 15 * time.Minute
)

// RunFollowupDue scans follow-ups due around now and creates one FOLLOWUP_DUE
// notification per customer per hour.
//
// The scan window reaches back further than the job interval, so a skipped or
// slow tick cannot drop a task; the hour-bucketed idempotency key makes the
// overlap harmless. Safe to run concurrently on every instance, no lock.
func (s *Usecase) RunFollowupDue(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "RunFollowupDue")
	defer span.End()

	now := s.clock.Now()
	tasks, err := s.repoDB.ListFollowupsDueBetween(ctx, now.Add(-followupLookback), now.Add(followupLookahead), s.batchSize())
	if err != nil {
		return err
	}

	// one notification per customer per hour, not one per task
	byCustomer := lo.GroupBy(tasks, func(t entity.FollowupTask) int64 { return t.CustomerID })

	created := 0
	for _, group := range byCustomer {
		head := group[0]

		enabled, err := s.followupsEnabled(ctx, head.BusinessID)
		if err != nil || !enabled {
			continue
		}

		title := fmt.Sprintf("Follow up %s", head.CustomerName)
		body := fmt.Sprintf("You have %d follow-up(s) with %s due now.", len(group), head.CustomerName)
		if len(group) == 1 {
			body = fmt.Sprintf("Your follow-up with %s is due at %s.",
				head.CustomerName, s.biz.In(head.DueAt).Format("15:04"))
		}

		res, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
			BusinessID:     head.BusinessID,
			UserID:         head.UserID,
			CustomerID:     head.CustomerID,
			Kind:           notifentity.KindFollowupDue,
			IdempotencyKey: notifentity.IdempotencyKey(notifentity.KindFollowupDue, head.CustomerID, s.biz.HourBucket(now)),
			Title:          title,
			Body:           body,
			Metadata: valueobject.JSONMap{
				"customer_id": head.CustomerID,
				"case_id":     head.CaseID,
				"task_ids":    lo.Map(group, func(t entity.FollowupTask, _ int) int64 { return t.ID }),
				"deep_link":   fmt.Sprintf("penagih://customers/%d/followups", head.CustomerID),
				"occurred_at": now,
			},
		})
		if err != nil {
			// one bad customer never aborts the pass
			slog.ErrorContext(ctx, "failed to ensure followup due notification",
				"customer_id", head.CustomerID, "error", err)
			continue
		}
		if res.Created {
			created++
		}
	}

	span.SetAttributes(
		attribute.Int("followup.scanned", len(tasks)),
		attribute.Int("followup.created", created),
	)

	return nil
}

func (s *Usecase) followupsEnabled(ctx context.Context, businessID int64) (bool, error) {
	cfg, err := s.settings(ctx, businessID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read recovery settings", "business_id", businessID, "error", err)
		return false, err
	}

	return cfg.RecoveryEnabled && cfg.AutoFollowupEnabled, nil
}
