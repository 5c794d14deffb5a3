package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

// RunBillDue is the once-a-day pass: bills due today, bills gone overdue, and
// each user's daily summary. All keys bucket on the business calendar date,
// so however many instances or reruns happen in a day, each user sees each
// kind at most once.
func (s *Usecase) RunBillDue(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "RunBillDue")
	defer span.End()

	now := s.clock.Now()
	dayStart := s.biz.StartOfDay(now)
	dayEnd := s.biz.EndOfDay(now)

	dueToday, err := s.repoDB.ListBillsDueBetween(ctx, dayStart, dayEnd, s.batchSize())
	if err != nil {
		return err
	}
	s.notifyBillGroups(ctx, dueToday, notifentity.KindBillDueToday)

	overdue, err := s.repoDB.ListOverdueBills(ctx, dayStart, s.batchSize())
	if err != nil {
		return err
	}
	s.notifyBillGroups(ctx, overdue, notifentity.KindOverdueAlert)

	digests, err := s.repoDB.ListDailyDigests(ctx, dayStart, dayEnd, s.batchSize())
	if err != nil {
		return err
	}
	for _, d := range digests {
		s.notifyDailySummary(ctx, d)
	}

	span.SetAttributes(
		attribute.Int("bill.due_today", len(dueToday)),
		attribute.Int("bill.overdue", len(overdue)),
		attribute.Int("bill.digests", len(digests)),
	)

	return nil
}

// notifyBillGroups creates one notification per customer per day for the
// given kind, summing the customer's bill amounts into one message.
func (s *Usecase) notifyBillGroups(ctx context.Context, bills []entity.Bill, kind notifentity.Kind) {
	now := s.clock.Now()
	byCustomer := lo.GroupBy(bills, func(b entity.Bill) int64 { return b.CustomerID })

	for _, group := range byCustomer {
		head := group[0]

		cfg, err := s.settings(ctx, head.BusinessID)
		if err != nil || !cfg.RecoveryEnabled {
			continue
		}

		total := lo.SumBy(group, func(b entity.Bill) int64 { return b.Amount })

		title := fmt.Sprintf("%s has a bill due today", head.CustomerName)
		body := fmt.Sprintf("%s owes %d across %d bill(s) due today.", head.CustomerName, total, len(group))
		if kind == notifentity.KindOverdueAlert {
			title = fmt.Sprintf("%s has overdue bills", head.CustomerName)
			body = fmt.Sprintf("%s has %d overdue bill(s) totalling %d.", head.CustomerName, len(group), total)
		}

		if _, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
			BusinessID:     head.BusinessID,
			UserID:         head.UserID,
			CustomerID:     head.CustomerID,
			Kind:           kind,
			IdempotencyKey: notifentity.IdempotencyKey(kind, head.CustomerID, s.biz.DateBucket(now)),
			Title:          title,
			Body:           body,
			Metadata: valueobject.JSONMap{
				"customer_id":  head.CustomerID,
				"bill_ids":     lo.Map(group, func(b entity.Bill, _ int) int64 { return b.ID }),
				"total_amount": total,
				"deep_link":    fmt.Sprintf("penagih://customers/%d/bills", head.CustomerID),
				"occurred_at":  now,
			},
		}); err != nil {
			slog.ErrorContext(ctx, "failed to ensure bill notification",
				"kind", kind.String(), "customer_id", head.CustomerID, "error", err)
		}
	}
}

func (s *Usecase) notifyDailySummary(ctx context.Context, d entity.DailyDigest) {
	if d.Empty() {
		return
	}

	cfg, err := s.settings(ctx, d.BusinessID)
	if err != nil || !cfg.RecoveryEnabled {
		return
	}

	now := s.clock.Now()
	if _, err := s.notifier.EnsureNotificationOnce(ctx, notifusecase.EnsureNotificationInput{
		BusinessID:     d.BusinessID,
		UserID:         d.UserID,
		Kind:           notifentity.KindDailySummary,
		IdempotencyKey: notifentity.IdempotencyKey(notifentity.KindDailySummary, d.UserID, s.biz.DateBucket(now)),
		Title:          "Your collections summary for today",
		Body: fmt.Sprintf("%d bill(s) due today, %d overdue. %d promise(s) due today, %d overdue.",
			d.BillsDueToday, d.BillsOverdue, d.PromisesDue, d.PromisesOverdue),
		Metadata: valueobject.JSONMap{
			"bills_due_today":  d.BillsDueToday,
			"bills_overdue":    d.BillsOverdue,
			"promises_due":     d.PromisesDue,
			"promises_overdue": d.PromisesOverdue,
			"deep_link":        "penagih://home",
			"occurred_at":      now,
		},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure daily summary notification", "user_id", d.UserID, "error", err)
	}
}
