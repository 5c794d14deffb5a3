// Package cronlock elects a single executor for a periodic batch job among
// N identical processes using a shared Postgres row per job name.
//
// The lock is advisory at the job level only: cheap idempotent work does not
// use it. It exists for batch jobs whose duplicate concurrent execution would
// be wasteful. A crashed holder recovers by expiry, never by manual unlock,
// so the lease duration must stay strictly below the guarded job's interval.
package cronlock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
)

// ExecutionStatus records how the previous guarded run ended.
type ExecutionStatus string

const (
	// ExecutionStatusSuccess marks a run that completed without error.
	ExecutionStatusSuccess ExecutionStatus = "success"
	// ExecutionStatusError marks a run that returned an error.
	ExecutionStatusError ExecutionStatus = "error"
)

// Acquisition is the result of an acquire attempt.
type Acquisition struct {
	// Acquired is true when this process now holds the lock.
	Acquired bool
	// OwnerID is the id under which the lock is held (ours when Acquired).
	OwnerID string
}

// Locker is the distributed lock capability consumed by batch jobs.
type Locker interface {
	Acquire(ctx context.Context, name string, d time.Duration) (Acquisition, error)
	Release(ctx context.Context, name, ownerID string, status ExecutionStatus) error
}

// PGLock implements Locker on a Postgres table with one row per job name.
type PGLock struct {
	conn  *pgxpool.Pool
	clock clock.Clocker
	uuid  uid.StringID
	ins   instrument.Instrumentation
}

// New builds a PGLock.
func New(conn *pgxpool.Pool, clocker clock.Clocker, uuid uid.StringID, ins instrument.Instrumentation) *PGLock {
	return &PGLock{conn: conn, clock: clocker, uuid: uuid, ins: ins}
}

func (l *PGLock) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return l.ins.Tracer("pkg.cronlock").Start(ctx, name)
}

func (l *PGLock) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

const acquireQuery = `
INSERT INTO cron_locks (name, owner_id, locked_until)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET owner_id = EXCLUDED.owner_id, locked_until = EXCLUDED.locked_until
WHERE cron_locks.locked_until < $4
RETURNING owner_id`

// Acquire attempts to take the named lock for the given duration.
//
// It is a single atomic conditional write: the row is inserted or updated
// only when absent or expired. The returned owner is compared against our own
// id afterwards, guarding the instant where two processes both pass the
// condition and the store serializes the writes. Any store failure reports
// not-acquired: skipping a run is always safer than doubling it.
func (l *PGLock) Acquire(ctx context.Context, name string, d time.Duration) (_ Acquisition, err error) {
	ctx, span := l.startSpan(ctx, "Acquire")
	defer func() { l.endSpan(span, err) }()

	now := l.clock.Now()
	ownerID := l.uuid.Generate()

	var gotOwner string
	row := l.conn.QueryRow(ctx, acquireQuery, name, ownerID, now.Add(d), now)
	if scanErr := row.Scan(&gotOwner); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			// Condition rejected the write: another owner holds the lock.
			return Acquisition{Acquired: false}, nil
		}
		// Store unreachable or query failed. Fail closed, logged so a
		// broken store does not masquerade as a lost election.
		slog.WarnContext(ctx, "cron lock acquire failed, skipping run", "name", name, "error", scanErr)
		span.RecordError(scanErr)
		span.SetStatus(codes.Error, scanErr.Error())
		return Acquisition{Acquired: false}, nil
	}

	if gotOwner != ownerID {
		return Acquisition{Acquired: false}, nil
	}

	return Acquisition{Acquired: true, OwnerID: ownerID}, nil
}

const releaseQuery = `
UPDATE cron_locks
SET locked_until = to_timestamp(0), last_execution_at = $3, last_execution_status = $4
WHERE name = $1 AND owner_id = $2`

// Release returns the named lock by expiring it, conditioned on still owning
// it. A process whose lease already expired and was re-acquired elsewhere
// must not release the new holder's lock; the owner condition makes that
// release a no-op.
func (l *PGLock) Release(ctx context.Context, name, ownerID string, status ExecutionStatus) (err error) {
	ctx, span := l.startSpan(ctx, "Release")
	defer func() { l.endSpan(span, err) }()

	_, err = l.conn.Exec(ctx, releaseQuery, name, ownerID, l.clock.Now(), string(status))
	return err
}
