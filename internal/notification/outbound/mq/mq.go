package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/messaging"
	"github.com/shandysiswandi/penagih/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishNotificationCreated(ctx context.Context, msg usecase.NotificationCreatedEvent) error {
	ctx, span := m.ins.Tracer("notification.outbound.mq").Start(ctx, "PublishNotificationCreated")
	defer span.End()

	channels := make([]string, 0, len(msg.Channels))
	for _, ch := range msg.Channels {
		channels = append(channels, ch.String())
	}

	body, err := json.Marshal(event.NotificationCreatedMessage{
		NotificationID: msg.NotificationID,
		BusinessID:     msg.BusinessID,
		UserID:         msg.UserID,
		CustomerID:     msg.CustomerID,
		Kind:           string(msg.Kind),
		IdempotencyKey: msg.IdempotencyKey,
		Channels:       channels,
		OccurredAt:     msg.OccurredAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.NotificationCreatedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.BusinessID, 10)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishAttemptDead(ctx context.Context, msg usecase.AttemptDeadEvent) error {
	ctx, span := m.ins.Tracer("notification.outbound.mq").Start(ctx, "PublishAttemptDead")
	defer span.End()

	body, err := json.Marshal(event.AttemptDeadMessage{
		AttemptID:      msg.AttemptID,
		NotificationID: msg.NotificationID,
		BusinessID:     msg.BusinessID,
		Channel:        msg.Channel.String(),
		AttemptNo:      msg.AttemptNo,
		LastError:      msg.LastError,
		OccurredAt:     msg.OccurredAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.AttemptDeadDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.BusinessID, 10)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
