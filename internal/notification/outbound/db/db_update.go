package db

import (
	"context"
	"time"
)

const markAttemptSentQuery = `
UPDATE notification_attempts
SET status = 'sent', leased_until = NULL, last_error = '', updated_at = $2
WHERE id = $1 AND status = 'in_progress'`

// MarkAttemptSent finalizes a claimed attempt as delivered.
func (s *DB) MarkAttemptSent(ctx context.Context, attemptID int64, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkAttemptSent")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, markAttemptSentQuery, attemptID, now)
	return s.mapError(err)
}

const requeueAttemptQuery = `
UPDATE notification_attempts
SET status = 'failed', leased_until = NULL, next_attempt_at = $2, last_error = $3, updated_at = $4
WHERE id = $1 AND status = 'in_progress'`

// RequeueAttempt schedules a claimed attempt for another try after backoff.
func (s *DB) RequeueAttempt(ctx context.Context, attemptID int64, nextAttemptAt time.Time, lastError string, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RequeueAttempt")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, requeueAttemptQuery, attemptID, nextAttemptAt, lastError, now)
	return s.mapError(err)
}

const markAttemptDeadQuery = `
UPDATE notification_attempts
SET status = 'dead', leased_until = NULL, last_error = $2, updated_at = $3
WHERE id = $1 AND status = 'in_progress'`

// MarkAttemptDead finalizes a claimed attempt after exhausted retries or a
// permanent failure.
func (s *DB) MarkAttemptDead(ctx context.Context, attemptID int64, lastError string, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkAttemptDead")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, markAttemptDeadQuery, attemptID, lastError, now)
	return s.mapError(err)
}

const revokeDeviceTokensQuery = `
UPDATE user_devices
SET revoked_at = $2
WHERE device_token = ANY($1) AND revoked_at IS NULL`

// RevokeDeviceTokens marks push tokens as dead so channel selection stops
// generating attempts against them.
func (s *DB) RevokeDeviceTokens(ctx context.Context, tokens []string, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeDeviceTokens")
	defer func() { s.endSpan(span, err) }()

	if len(tokens) == 0 {
		return nil
	}

	_, err = s.conn.Exec(ctx, revokeDeviceTokensQuery, tokens, now)
	return s.mapError(err)
}
