package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

const listCasesPromiseBetweenQuery = `
SELECT id, business_id, user_id, customer_id, customer_name,
       status, promise_at, promise_amount, promise_status, escalation_level, updated_at
FROM recovery_cases
WHERE deleted_at IS NULL
  AND status = 'open'
  AND promise_at >= $1 AND promise_at <= $2
ORDER BY promise_at
LIMIT $3`

// ListCasesPromiseBetween returns open cases promising payment inside the
// window.
func (s *DB) ListCasesPromiseBetween(ctx context.Context, from, to time.Time, limit int32) (_ []entity.RecoveryCase, err error) {
	ctx, span := s.startSpan(ctx, "ListCasesPromiseBetween")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listCasesPromiseBetweenQuery, from, to, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return scanCases(rows)
}

const listCasesPromiseBeforeQuery = `
SELECT id, business_id, user_id, customer_id, customer_name,
       status, promise_at, promise_amount, promise_status, escalation_level, updated_at
FROM recovery_cases
WHERE deleted_at IS NULL
  AND status = 'open'
  AND promise_at < $1
ORDER BY promise_at
LIMIT $2`

// ListCasesPromiseBefore returns open cases whose promise date already
// passed, oldest first.
func (s *DB) ListCasesPromiseBefore(ctx context.Context, before time.Time, limit int32) (_ []entity.RecoveryCase, err error) {
	ctx, span := s.startSpan(ctx, "ListCasesPromiseBefore")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listCasesPromiseBeforeQuery, before, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return scanCases(rows)
}

const escalateCaseQuery = `
UPDATE recovery_cases
SET escalation_level = $2, promise_status = 'broken', updated_at = $3
WHERE id = $1 AND deleted_at IS NULL AND status = 'open' AND escalation_level < $2`

// EscalateCase raises a case's escalation level, reporting whether this call
// performed the transition.
//
// The level guard in the predicate is what makes escalation fire once per
// ladder step no matter how many instances evaluate the same case: the level
// only moves up, and only one conditional update can observe the lower value.
func (s *DB) EscalateCase(ctx context.Context, caseID int64, toLevel int32, now time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "EscalateCase")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, escalateCaseQuery, caseID, toLevel, now)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}

const markPromiseBrokenQuery = `
UPDATE recovery_cases
SET promise_status = 'broken', updated_at = $2
WHERE id = $1 AND deleted_at IS NULL AND status = 'open' AND promise_status <> 'broken'`

// MarkPromiseBroken flips an overdue promise to broken, reporting whether
// this call performed the transition.
func (s *DB) MarkPromiseBroken(ctx context.Context, caseID int64, now time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkPromiseBroken")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, markPromiseBrokenQuery, caseID, now)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
