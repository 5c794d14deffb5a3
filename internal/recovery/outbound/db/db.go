package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

// DB is the recovery module's persistence adapter over pgx. It reads the
// slices of business state the generators scan and writes back only
// engine-owned fields: schedule, miss count, escalation level, statuses.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("recovery.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

const getSettingsQuery = `
SELECT business_id, recovery_enabled, auto_followup_enabled, ladder_days
FROM business_settings
WHERE business_id = $1`

// GetSettings reads the per-business recovery switches and escalation ladder.
func (s *DB) GetSettings(ctx context.Context, businessID int64) (_ *entity.Settings, err error) {
	ctx, span := s.startSpan(ctx, "GetSettings")
	defer func() { s.endSpan(span, err) }()

	var (
		out    entity.Settings
		ladder []int32
	)
	err = s.conn.QueryRow(ctx, getSettingsQuery, businessID).Scan(
		&out.BusinessID, &out.RecoveryEnabled, &out.AutoFollowupEnabled, &ladder,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	if len(ladder) == 0 {
		out.Ladder = entity.DefaultLadder()
	} else {
		out.Ladder.Thresholds = make([]int, 0, len(ladder))
		for _, d := range ladder {
			out.Ladder.Thresholds = append(out.Ladder.Thresholds, int(d))
		}
	}

	return &out, nil
}

func scanFollowups(rows pgx.Rows) ([]entity.FollowupTask, error) {
	defer rows.Close()

	var tasks []entity.FollowupTask
	for rows.Next() {
		var (
			t      entity.FollowupTask
			status string
		)
		if err := rows.Scan(
			&t.ID, &t.BusinessID, &t.CaseID, &t.UserID, &t.CustomerID, &t.CustomerName,
			&t.DueAt, &status, &t.MissCount, &t.EscalationLevel, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		t.Status = entity.FollowupStatusFromString(status)
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func scanCases(rows pgx.Rows) ([]entity.RecoveryCase, error) {
	defer rows.Close()

	var cases []entity.RecoveryCase
	for rows.Next() {
		var (
			c             entity.RecoveryCase
			status        string
			promiseStatus string
		)
		if err := rows.Scan(
			&c.ID, &c.BusinessID, &c.UserID, &c.CustomerID, &c.CustomerName,
			&status, &c.PromiseAt, &c.PromiseAmount, &promiseStatus,
			&c.EscalationLevel, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.Status = entity.CaseStatusFromString(status)
		c.PromiseStatus = entity.PromiseStatusFromString(promiseStatus)
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

const listFollowupsDueBetweenQuery = `
SELECT id, business_id, case_id, user_id, customer_id, customer_name,
       due_at, status, miss_count, escalation_level, updated_at
FROM followup_tasks
WHERE deleted_at IS NULL
  AND status IN ('open', 'due_today')
  AND due_at >= $1 AND due_at <= $2
ORDER BY due_at
LIMIT $3`

// ListFollowupsDueBetween returns open follow-ups whose due time falls inside
// the window, oldest first.
func (s *DB) ListFollowupsDueBetween(ctx context.Context, from, to time.Time, limit int32) (_ []entity.FollowupTask, err error) {
	ctx, span := s.startSpan(ctx, "ListFollowupsDueBetween")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listFollowupsDueBetweenQuery, from, to, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return scanFollowups(rows)
}

const listOverdueFollowupsQuery = `
SELECT id, business_id, case_id, user_id, customer_id, customer_name,
       due_at, status, miss_count, escalation_level, updated_at
FROM followup_tasks
WHERE deleted_at IS NULL
  AND status IN ('open', 'due_today', 'overdue')
  AND due_at < $1
ORDER BY due_at
LIMIT $2`

// ListOverdueFollowups returns follow-ups whose due time has passed without
// completion, oldest first, bounded by limit.
func (s *DB) ListOverdueFollowups(ctx context.Context, before time.Time, limit int32) (_ []entity.FollowupTask, err error) {
	ctx, span := s.startSpan(ctx, "ListOverdueFollowups")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listOverdueFollowupsQuery, before, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return scanFollowups(rows)
}

const rescheduleFollowupQuery = `
UPDATE followup_tasks
SET due_at = $2, miss_count = $3, escalation_level = $4, status = $5, updated_at = $6
WHERE id = $1 AND deleted_at IS NULL AND status <> 'completed'`

// RescheduleFollowup moves a missed task to its next slot. Completed and
// deleted tasks are silently left alone; the condition makes a stale batch
// read harmless.
func (s *DB) RescheduleFollowup(
	ctx context.Context, taskID int64, nextDueAt time.Time,
	missCount, level int32, status entity.FollowupStatus, now time.Time,
) (err error) {
	ctx, span := s.startSpan(ctx, "RescheduleFollowup")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, rescheduleFollowupQuery,
		taskID, nextDueAt, missCount, level, status.String(), now)

	return s.mapError(err)
}
