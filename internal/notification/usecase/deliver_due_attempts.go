package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
)

const (
	defaultDeliveryBatch = 50
	defaultLeaseDuration = 2 * time.Minute
	defaultSendTimeout   = 30 * time.Second
)

// DeliverDueAttempts claims and delivers due attempts until the queue is
// drained, the batch limit is hit or the context ends. It returns how many
// attempts were processed.
//
// Each claim is an atomic lease: concurrent workers calling this never pick
// up the same attempt, and a worker that dies mid-send only parks its
// attempt until the lease expires.
func (s *Usecase) DeliverDueAttempts(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "DeliverDueAttempts")
	defer span.End()

	batch := s.cfg.GetInt("notification.delivery_batch")
	if batch <= 0 {
		batch = defaultDeliveryBatch
	}
	lease := s.cfg.GetSecond("notification.lease_seconds")
	if lease <= 0 {
		lease = defaultLeaseDuration
	}

	processed := 0
	for processed < batch {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		now := s.clock.Now()
		claimed, err := s.repoDB.ClaimDueAttempt(ctx, now.Add(lease), now)
		if errors.Is(err, goerror.ErrNotFound) {
			break
		}
		if err != nil {
			span.SetAttributes(attribute.Int("delivery.processed", processed))
			return processed, err
		}

		s.deliverOne(ctx, claimed)
		processed++
	}

	span.SetAttributes(attribute.Int("delivery.processed", processed))

	return processed, nil
}

// deliverOne runs a single claimed attempt to one of three outcomes: sent,
// requeued with backoff, or dead-lettered. Outcome write failures are logged
// and left alone; the lease expiry re-offers the attempt to a later run.
func (s *Usecase) deliverOne(ctx context.Context, ca *entity.ClaimedAttempt) {
	ctx, span := s.startSpan(ctx, "deliverOne")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("attempt.id", ca.ID),
		attribute.String("attempt.channel", ca.Channel.String()),
		attribute.Int("attempt.no", int(ca.AttemptNo)),
	)

	transport, ok := s.transports[ca.Channel]
	if !ok {
		s.markDead(ctx, ca, goerror.NewPermanent(
			fmt.Errorf("no transport registered for channel %s", ca.Channel), goerror.CodeUnknownChannel))
		return
	}

	destinations, err := s.resolveDestinations(ctx, ca)
	if err != nil {
		s.handleFailure(ctx, ca, nil, err)
		return
	}

	timeout := s.cfg.GetSecond("notification.send_timeout_seconds")
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	receipt, err := transport.Send(sendCtx, entity.Delivery{
		NotificationID: ca.NotificationID,
		BusinessID:     ca.BusinessID,
		UserID:         ca.UserID,
		Channel:        ca.Channel,
		Destinations:   destinations,
		Title:          ca.Title,
		Body:           ca.Body,
		Data:           ca.Metadata,
	})
	if err != nil {
		s.handleFailure(ctx, ca, destinations, err)
		return
	}

	if err := s.repoDB.MarkAttemptSent(ctx, ca.ID, s.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to repo mark attempt sent", "attempt_id", ca.ID, "error", err)
		return
	}

	if receipt != nil && len(receipt.PrunedDestinations) > 0 {
		s.revokeTokens(ctx, receipt.PrunedDestinations)
	}
}

func (s *Usecase) handleFailure(ctx context.Context, ca *entity.ClaimedAttempt, destinations []string, sendErr error) {
	if goerror.IsPermanent(sendErr) || ca.AttemptNo >= s.maxAttempts() {
		s.markDead(ctx, ca, sendErr)

		// a dead push attempt with rejected tokens also retires those tokens,
		// otherwise channel selection keeps targeting them
		if ca.Channel == entity.ChannelPush && len(destinations) > 0 &&
			goerror.CodeOf(sendErr) == goerror.CodeInvalidDestination {
			s.revokeTokens(ctx, destinations)
		}
		return
	}

	now := s.clock.Now()
	next := now.Add(s.backoffDelay(ca.AttemptNo))
	if err := s.repoDB.RequeueAttempt(ctx, ca.ID, next, sendErr.Error(), now); err != nil {
		slog.ErrorContext(ctx, "failed to repo requeue attempt", "attempt_id", ca.ID, "error", err)
		return
	}

	slog.WarnContext(ctx, "delivery attempt failed, requeued",
		"attempt_id", ca.ID, "channel", ca.Channel.String(),
		"attempt_no", ca.AttemptNo, "next_attempt_at", next, "error", sendErr)
}

func (s *Usecase) markDead(ctx context.Context, ca *entity.ClaimedAttempt, sendErr error) {
	now := s.clock.Now()
	if err := s.repoDB.MarkAttemptDead(ctx, ca.ID, sendErr.Error(), now); err != nil {
		slog.ErrorContext(ctx, "failed to repo mark attempt dead", "attempt_id", ca.ID, "error", err)
		return
	}

	slog.ErrorContext(ctx, "delivery attempt dead-lettered",
		"attempt_id", ca.ID, "notification_id", ca.NotificationID,
		"channel", ca.Channel.String(), "attempt_no", ca.AttemptNo, "error", sendErr)

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishAttemptDead(ctx, AttemptDeadEvent{
			AttemptID:      ca.ID,
			NotificationID: ca.NotificationID,
			BusinessID:     ca.BusinessID,
			Channel:        ca.Channel,
			AttemptNo:      ca.AttemptNo,
			LastError:      sendErr.Error(),
			OccurredAt:     now,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish attempt dead event", "attempt_id", ca.ID, "error", err)
		}
		return nil
	})
}

// resolveDestinations looks up where a channel actually delivers to at send
// time, not claim time, so a device registered between retries is picked up
// and a revoked one is dropped.
func (s *Usecase) resolveDestinations(ctx context.Context, ca *entity.ClaimedAttempt) ([]string, error) {
	switch ca.Channel {
	case entity.ChannelInApp:
		return nil, nil

	case entity.ChannelPush:
		tokens, err := s.repoDB.ListLiveDeviceTokens(ctx, ca.UserID, maxDeviceTokens)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, goerror.NewPermanent(
				fmt.Errorf("no live device tokens for user %d", ca.UserID), goerror.CodeInvalidDestination)
		}
		return tokens, nil

	case entity.ChannelSMS, entity.ChannelWhatsApp:
		cfg, err := s.channelConfig(ctx, ca.BusinessID)
		if err != nil {
			return nil, err
		}
		if cfg.ContactPhone == "" {
			return nil, goerror.NewPermanent(
				fmt.Errorf("no contact phone for business %d", ca.BusinessID), goerror.CodeInvalidDestination)
		}
		return []string{cfg.ContactPhone}, nil

	default:
		return nil, goerror.NewPermanent(
			fmt.Errorf("unknown channel %d", ca.Channel), goerror.CodeUnknownChannel)
	}
}

// revokeTokens detaches stale device token cleanup from the delivery path.
func (s *Usecase) revokeTokens(ctx context.Context, tokens []string) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoDB.RevokeDeviceTokens(ctx, tokens, s.clock.Now()); err != nil {
			slog.ErrorContext(ctx, "failed to repo revoke device tokens", "count", len(tokens), "error", err)
		}
		return nil
	})
}
