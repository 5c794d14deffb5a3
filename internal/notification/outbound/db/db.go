package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
)

// DB is the notification module's persistence adapter over pgx.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

// NewDB builds the adapter.
func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

// mapError folds driver errors into the engine taxonomy:
// - no rows → goerror.ErrNotFound
// - 23505 unique violation → goerror.ErrConflict (benign race on idempotent insert)
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func channelStrings(channels []entity.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.String())
	}
	return out
}
