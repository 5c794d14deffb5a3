package usecase

import (
	"time"

	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

// The functions in this file are the escalation state machine. They are pure:
// no I/O, no stored state, every timestamp judgment goes through the injected
// now and the business calendar.

const (
	eveningHour = 18
	morningHour = 10
)

// PromiseStatusAt buckets a promise date against the business calendar day
// containing now.
func PromiseStatusAt(promiseAt *time.Time, now time.Time, biz *clock.Business) entity.PromiseStatus {
	if promiseAt == nil {
		return entity.PromiseStatusNone
	}

	switch {
	case promiseAt.Before(biz.StartOfDay(now)):
		return entity.PromiseStatusOverdue
	case promiseAt.After(biz.EndOfDay(now)):
		return entity.PromiseStatusUpcoming
	default:
		return entity.PromiseStatusDueToday
	}
}

// FollowupStatusAt buckets a follow-up's due time the same way. Completed and
// escalated tasks keep their stored status.
func FollowupStatusAt(task entity.FollowupTask, now time.Time, biz *clock.Business) entity.FollowupStatus {
	if task.Status == entity.FollowupStatusCompleted || task.Status == entity.FollowupStatusEscalated {
		return task.Status
	}

	switch {
	case task.DueAt.Before(biz.StartOfDay(now)):
		return entity.FollowupStatusOverdue
	case task.DueAt.After(biz.EndOfDay(now)):
		return entity.FollowupStatusOpen
	default:
		return entity.FollowupStatusDueToday
	}
}

// EvaluatePromiseEscalation decides whether a case's overdue promise has
// crossed the next ladder threshold.
//
// Each ladder level fires exactly once: the decision is positive only while
// the stored level is below the target for the current days-overdue count,
// so re-evaluating the same overdue window is a no-op. Resolved and closed
// cases never escalate.
func EvaluatePromiseEscalation(c entity.RecoveryCase, ladder entity.Ladder, now time.Time, biz *clock.Business) entity.EscalationDecision {
	if c.Status != entity.CaseStatusOpen || c.PromiseAt == nil {
		return entity.EscalationDecision{NewLevel: c.EscalationLevel}
	}

	daysOverdue := biz.DaysBetween(*c.PromiseAt, now)
	if daysOverdue < 1 {
		return entity.EscalationDecision{NewLevel: c.EscalationLevel}
	}

	target := ladder.LevelFor(daysOverdue)
	if target <= c.EscalationLevel {
		return entity.EscalationDecision{NewLevel: c.EscalationLevel}
	}

	return entity.EscalationDecision{ShouldEscalate: true, NewLevel: target}
}

// RescheduleOverdueFollowup computes where a missed follow-up moves next.
//
// First miss lands on today 18:00, or tomorrow 18:00 when 18:00 already
// passed. Second miss lands on tomorrow 10:00. From the third miss on, the
// task moves three days out at 10:00 and is marked escalated. The level never
// goes down, even for a task whose stored level outruns its miss count.
func RescheduleOverdueFollowup(task entity.FollowupTask, now time.Time, biz *clock.Business) entity.RescheduleDecision {
	missNo := task.MissCount + 1

	var d entity.RescheduleDecision
	switch {
	case missNo <= 1:
		d.NextDueAt = biz.At(now, eveningHour, 0)
		if !now.Before(d.NextDueAt) {
			d.NextDueAt = d.NextDueAt.AddDate(0, 0, 1)
		}
		d.NewLevel = 1

	case missNo == 2:
		d.NextDueAt = biz.At(now, morningHour, 0).AddDate(0, 0, 1)
		d.NewLevel = 2

	default:
		d.NextDueAt = biz.At(now, morningHour, 0).AddDate(0, 0, 3)
		d.NewLevel = 3
		d.Escalated = true
	}

	if task.EscalationLevel > d.NewLevel {
		d.NewLevel = task.EscalationLevel
	}

	return d
}
