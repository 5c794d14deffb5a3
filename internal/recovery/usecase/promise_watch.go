package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

// RunPromiseWatch walks open cases with payment promises and reacts to the
// business-day bucket each promise sits in: due today gets a reminder, past
// due gets marked broken with an alert, and days-overdue drives the
// escalation ladder.
//
// Everything here is idempotent per day, so the job can run on every
// instance and on any cadence without double-firing: notifications dedupe on
// a date-bucketed key, the broken flip and the level raise are conditional
// writes that succeed once.
func (s *Usecase) RunPromiseWatch(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "RunPromiseWatch")
	defer span.End()

	now := s.clock.Now()

	dueToday, err := s.repoDB.ListCasesPromiseBetween(ctx, s.biz.StartOfDay(now), s.biz.EndOfDay(now), s.batchSize())
	if err != nil {
		return err
	}
	for _, c := range dueToday {
		s.notifyPromiseDueToday(ctx, c)
	}

	overdue, err := s.repoDB.ListCasesPromiseBefore(ctx, s.biz.StartOfDay(now), s.batchSize())
	if err != nil {
		return err
	}

	escalated := 0
	for _, c := range overdue {
		if s.watchOverduePromise(ctx, c) {
			escalated++
		}
	}

	span.SetAttributes(
		attribute.Int("promise.due_today", len(dueToday)),
		attribute.Int("promise.overdue", len(overdue)),
		attribute.Int("promise.escalated", escalated),
	)

	return nil
}

func (s *Usecase) notifyPromiseDueToday(ctx context.Context, c entity.RecoveryCase) {
	cfg, err := s.settings(ctx, c.BusinessID)
	if err != nil || !cfg.RecoveryEnabled {
		return
	}

	now := s.clock.Now()
	if _, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
		BusinessID:     c.BusinessID,
		UserID:         c.UserID,
		CustomerID:     c.CustomerID,
		Kind:           notifentity.KindPromiseDueToday,
		IdempotencyKey: notifentity.IdempotencyKey(notifentity.KindPromiseDueToday, c.ID, s.biz.DateBucket(now)),
		Title:          fmt.Sprintf("%s promised to pay today", c.CustomerName),
		Body:           fmt.Sprintf("%s promised %d today. Reach out before the day ends.", c.CustomerName, c.PromiseAmount),
		Metadata: valueobject.JSONMap{
			"case_id":        c.ID,
			"customer_id":    c.CustomerID,
			"promise_amount": c.PromiseAmount,
			"deep_link":      fmt.Sprintf("penagih://cases/%d", c.ID),
			"occurred_at":    now,
		},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure promise due notification", "case_id", c.ID, "error", err)
	}
}

// watchOverduePromise handles one overdue case end to end and reports whether
// it escalated. Failures are logged and skipped; the next tick retries.
func (s *Usecase) watchOverduePromise(ctx context.Context, c entity.RecoveryCase) bool {
	cfg, err := s.settings(ctx, c.BusinessID)
	if err != nil || !cfg.RecoveryEnabled {
		return false
	}

	now := s.clock.Now()

	if c.PromiseStatus != entity.PromiseStatusBroken {
		flipped, err := s.repoDB.MarkPromiseBroken(ctx, c.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "failed to mark promise broken", "case_id", c.ID, "error", err)
			return false
		}
		if flipped {
			s.notifyPromiseBroken(ctx, c, now)
		}
	}

	decision := EvaluatePromiseEscalation(c, cfg.Ladder, now, s.biz)
	if !decision.ShouldEscalate {
		return false
	}

	raised, err := s.repoDB.EscalateCase(ctx, c.ID, decision.NewLevel, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to escalate case", "case_id", c.ID, "to_level", decision.NewLevel, "error", err)
		return false
	}
	if !raised {
		// another instance won the conditional update
		return false
	}

	slog.InfoContext(ctx, "case escalated",
		"case_id", c.ID, "from_level", c.EscalationLevel, "to_level", decision.NewLevel)

	from := c.EscalationLevel
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishCaseEscalated(ctx, CaseEscalatedEvent{
			CaseID:     c.ID,
			BusinessID: c.BusinessID,
			CustomerID: c.CustomerID,
			FromLevel:  from,
			ToLevel:    decision.NewLevel,
			Reason:     "promise_overdue",
			OccurredAt: now,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish case escalated event", "case_id", c.ID, "error", err)
		}
		return nil
	})

	return true
}

func (s *Usecase) notifyPromiseBroken(ctx context.Context, c entity.RecoveryCase, now time.Time) {
	if _, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
		BusinessID:     c.BusinessID,
		UserID:         c.UserID,
		CustomerID:     c.CustomerID,
		Kind:           notifentity.KindPromiseBroken,
		IdempotencyKey: notifentity.IdempotencyKey(notifentity.KindPromiseBroken, c.ID, s.biz.DateBucket(now)),
		Title:          fmt.Sprintf("%s broke their payment promise", c.CustomerName),
		Body:           fmt.Sprintf("%s promised %d on %s and has not paid.", c.CustomerName, c.PromiseAmount, s.biz.DateBucket(*c.PromiseAt)),
		Metadata: valueobject.JSONMap{
			"case_id":        c.ID,
			"customer_id":    c.CustomerID,
			"promise_amount": c.PromiseAmount,
			"promised_at":    c.PromiseAt,
			"deep_link":      fmt.Sprintf("penagih://cases/%d", c.ID),
			"occurred_at":    now,
		},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure promise broken notification", "case_id", c.ID, "error", err)
	}
}
