package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
)

const claimDueAttemptQuery = `
UPDATE notification_attempts AS na
SET status = 'in_progress', leased_until = $1, attempt_no = na.attempt_no + 1, updated_at = $2
FROM notifications AS n
WHERE na.id = (
	SELECT id FROM notification_attempts
	WHERE status IN ('queued', 'failed')
		AND next_attempt_at <= $2
		AND (leased_until IS NULL OR leased_until < $2)
	ORDER BY next_attempt_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
AND n.id = na.notification_id
RETURNING na.id, na.notification_id, na.channel, na.attempt_no, na.next_attempt_at,
	na.leased_until, na.last_error, na.created_at, na.updated_at,
	n.business_id, n.user_id, COALESCE(n.customer_id, 0), n.kind, n.title, n.body, n.metadata`

// ClaimDueAttempt atomically leases the next due attempt, if any.
//
// This is the same atomic-conditional-write shape as the cron lock but scoped
// per row: many workers can claim different attempts concurrently while the
// lease predicate guarantees at most one non-expired holder per attempt. A
// crashed worker's claim simply expires. Returns goerror.ErrNotFound when
// nothing is due.
func (s *DB) ClaimDueAttempt(ctx context.Context, leaseUntil, now time.Time) (_ *entity.ClaimedAttempt, err error) {
	ctx, span := s.startSpan(ctx, "ClaimDueAttempt")
	defer func() { s.endSpan(span, err) }()

	var (
		ca      entity.ClaimedAttempt
		channel string
		kind    string
		leased  pgtype.Timestamptz
	)

	err = s.conn.QueryRow(ctx, claimDueAttemptQuery, leaseUntil, now).Scan(
		&ca.ID, &ca.NotificationID, &channel, &ca.AttemptNo, &ca.NextAttemptAt,
		&leased, &ca.LastError, &ca.CreatedAt, &ca.UpdatedAt,
		&ca.BusinessID, &ca.UserID, &ca.CustomerID, &kind, &ca.Title, &ca.Body, &ca.Metadata,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.mapError(err)
	}
	if err != nil {
		return nil, s.mapError(err)
	}

	ca.Channel = entity.ChannelFromString(channel)
	ca.Status = entity.AttemptStatusInProgress
	ca.Kind = entity.Kind(kind)
	if leased.Valid {
		ca.LeasedUntil = &leased.Time
	}

	return &ca, nil
}
