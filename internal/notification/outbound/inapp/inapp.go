package inapp

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
)

const insertFeedQuery = `
INSERT INTO inapp_messages (notification_id, business_id, user_id, title, body, data, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (notification_id) DO NOTHING`

// Store delivers in_app notifications by appending to the user's feed table.
// The feed insert is keyed by notification id, so a lease that expired
// mid-send and got re-claimed cannot duplicate the row.
type Store struct {
	conn  *pgxpool.Pool
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func New(conn *pgxpool.Pool, clk clock.Clocker, ins instrument.Instrumentation) *Store {
	return &Store{conn: conn, clock: clk, ins: ins}
}

func (s *Store) Send(ctx context.Context, d entity.Delivery) (*entity.Receipt, error) {
	ctx, span := s.ins.Tracer("notification.outbound.inapp").Start(ctx, "Send")
	defer span.End()

	_, err := s.conn.Exec(ctx, insertFeedQuery,
		d.NotificationID, d.BusinessID, d.UserID, d.Title, d.Body, d.Data, s.clock.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, goerror.NewRetryable(err, goerror.CodeUnavailable)
	}

	return &entity.Receipt{}, nil
}
