package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
)

// EnsureNotificationInput describes one logical event to notify about. The
// idempotency key must already be deterministic; this operation adds no
// randomness to it.
type EnsureNotificationInput struct {
	BusinessID     int64               `validate:"required,gt=0"`
	UserID         int64               `validate:"required,gt=0"`
	CustomerID     int64               `validate:"gte=0"`
	Kind           entity.Kind         `validate:"required"`
	IdempotencyKey string              `validate:"required,max=255"`
	Title          string              `validate:"required,max=255"`
	Body           string              `validate:"required"`
	Metadata       valueobject.JSONMap `validate:"-"`
}

// EnsureNotificationOnce creates a notification and its per-channel delivery
// attempts exactly once for the given idempotency key.
//
// Callers never learn whether they raced another run; both the winner and the
// loser get the surviving notification id back. Only the winner publishes the
// created event, so downstream consumers see each logical event once.
func (s *Usecase) EnsureNotificationOnce(ctx context.Context, in EnsureNotificationInput) (*entity.EnsureResult, error) {
	ctx, span := s.startSpan(ctx, "EnsureNotificationOnce")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	channels, err := s.selectChannels(ctx, in.BusinessID, in.UserID)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		slog.InfoContext(ctx, "notifications disabled for business, skipping",
			"business_id", in.BusinessID, "idempotency_key", in.IdempotencyKey)
		return &entity.EnsureResult{Created: false}, nil
	}

	now := s.clock.Now()

	attemptIDs := make([]int64, 0, len(channels))
	for range channels {
		attemptIDs = append(attemptIDs, s.uid.Generate())
	}

	res, err := s.repoDB.EnsureNotificationOnce(ctx, entity.CreateNotification{
		ID:             s.uid.Generate(),
		BusinessID:     in.BusinessID,
		UserID:         in.UserID,
		CustomerID:     in.CustomerID,
		Kind:           in.Kind,
		IdempotencyKey: in.IdempotencyKey,
		Channels:       channels,
		Title:          in.Title,
		Body:           in.Body,
		Metadata:       in.Metadata,
	}, attemptIDs, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo ensure notification",
			"idempotency_key", in.IdempotencyKey, "error", err)
		return nil, err
	}

	if res.Created {
		s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
			if err := s.repoMessaging.PublishNotificationCreated(ctx, NotificationCreatedEvent{
				NotificationID: res.NotificationID,
				BusinessID:     in.BusinessID,
				UserID:         in.UserID,
				CustomerID:     in.CustomerID,
				Kind:           in.Kind,
				IdempotencyKey: in.IdempotencyKey,
				Channels:       channels,
				OccurredAt:     now,
			}); err != nil {
				slog.ErrorContext(ctx, "failed to publish notification created event",
					"notification_id", res.NotificationID, "error", err)
			}
			return nil
		})
	}

	return &res, nil
}
