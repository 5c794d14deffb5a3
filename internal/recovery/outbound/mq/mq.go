package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/messaging"
	"github.com/shandysiswandi/penagih/internal/recovery/usecase"
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

func (m *Messaging) PublishCaseEscalated(ctx context.Context, msg usecase.CaseEscalatedEvent) error {
	ctx, span := m.ins.Tracer("recovery.outbound.mq").Start(ctx, "PublishCaseEscalated")
	defer span.End()

	body, err := json.Marshal(event.CaseEscalatedMessage{
		CaseID:     msg.CaseID,
		BusinessID: msg.BusinessID,
		CustomerID: msg.CustomerID,
		FromLevel:  msg.FromLevel,
		ToLevel:    msg.ToLevel,
		Reason:     msg.Reason,
		OccurredAt: msg.OccurredAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.CaseEscalatedDestination, messaging.OutgoingMessage{
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
