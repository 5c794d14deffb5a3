package usecase

import (
	"testing"
	"time"

	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

var jakarta = clock.MustBusiness("Asia/Jakarta")

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, jakarta.Location())
}

func ptr(t time.Time) *time.Time { return &t }

func TestPromiseStatusAt(t *testing.T) {
	now := at(10, 12, 0)

	t.Run("NoPromise", func(t *testing.T) {
		if got := PromiseStatusAt(nil, now, jakarta); got != entity.PromiseStatusNone {
			t.Fatalf("expected none, got %v", got)
		}
	})

	t.Run("Yesterday", func(t *testing.T) {
		if got := PromiseStatusAt(ptr(at(9, 15, 0)), now, jakarta); got != entity.PromiseStatusOverdue {
			t.Fatalf("expected overdue, got %v", got)
		}
	})

	t.Run("Today", func(t *testing.T) {
		if got := PromiseStatusAt(ptr(at(10, 23, 59)), now, jakarta); got != entity.PromiseStatusDueToday {
			t.Fatalf("expected due today, got %v", got)
		}
	})

	t.Run("Tomorrow", func(t *testing.T) {
		if got := PromiseStatusAt(ptr(at(11, 0, 0)), now, jakarta); got != entity.PromiseStatusUpcoming {
			t.Fatalf("expected upcoming, got %v", got)
		}
	})

	t.Run("DayBoundaryNotElapsedHours", func(t *testing.T) {
		// 90 minutes apart but on different business calendar days.
		promise := at(9, 23, 0)
		if got := PromiseStatusAt(&promise, at(10, 0, 30), jakarta); got != entity.PromiseStatusOverdue {
			t.Fatalf("expected overdue across midnight, got %v", got)
		}
	})

	t.Run("TimezoneDecides", func(t *testing.T) {
		// 2026-03-09 18:00 UTC is already 2026-03-10 01:00 in Jakarta.
		promise := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
		if got := PromiseStatusAt(&promise, at(10, 9, 0), jakarta); got != entity.PromiseStatusDueToday {
			t.Fatalf("expected due today in business timezone, got %v", got)
		}
	})
}

func TestFollowupStatusAt(t *testing.T) {
	now := at(10, 12, 0)

	t.Run("TerminalKeepsStored", func(t *testing.T) {
		task := entity.FollowupTask{Status: entity.FollowupStatusCompleted, DueAt: at(1, 9, 0)}
		if got := FollowupStatusAt(task, now, jakarta); got != entity.FollowupStatusCompleted {
			t.Fatalf("expected completed kept, got %v", got)
		}
	})

	t.Run("PastDayIsOverdue", func(t *testing.T) {
		task := entity.FollowupTask{Status: entity.FollowupStatusOpen, DueAt: at(9, 18, 0)}
		if got := FollowupStatusAt(task, now, jakarta); got != entity.FollowupStatusOverdue {
			t.Fatalf("expected overdue, got %v", got)
		}
	})

	t.Run("SameDayIsDueToday", func(t *testing.T) {
		task := entity.FollowupTask{Status: entity.FollowupStatusOpen, DueAt: at(10, 18, 0)}
		if got := FollowupStatusAt(task, now, jakarta); got != entity.FollowupStatusDueToday {
			t.Fatalf("expected due today, got %v", got)
		}
	})

	t.Run("FutureDayStaysOpen", func(t *testing.T) {
		task := entity.FollowupTask{Status: entity.FollowupStatusDueToday, DueAt: at(12, 9, 0)}
		if got := FollowupStatusAt(task, now, jakarta); got != entity.FollowupStatusOpen {
			t.Fatalf("expected open, got %v", got)
		}
	})
}

func TestEvaluatePromiseEscalation(t *testing.T) {
	ladder := entity.DefaultLadder()
	now := at(10, 9, 0)

	openCase := func(promise time.Time, level int32) entity.RecoveryCase {
		return entity.RecoveryCase{
			ID:              1,
			Status:          entity.CaseStatusOpen,
			PromiseAt:       &promise,
			EscalationLevel: level,
		}
	}

	t.Run("FourDaysOverdueFromZero", func(t *testing.T) {
		d := EvaluatePromiseEscalation(openCase(at(6, 9, 0), 0), ladder, now, jakarta)
		if !d.ShouldEscalate || d.NewLevel != 2 {
			t.Fatalf("expected escalation to level 2, got %+v", d)
		}
	})

	t.Run("OneDayOverdueReachesLevelOne", func(t *testing.T) {
		d := EvaluatePromiseEscalation(openCase(at(9, 17, 0), 0), ladder, now, jakarta)
		if !d.ShouldEscalate || d.NewLevel != 1 {
			t.Fatalf("expected escalation to level 1, got %+v", d)
		}
	})

	t.Run("SevenDaysOverdueReachesLevelThree", func(t *testing.T) {
		d := EvaluatePromiseEscalation(openCase(at(3, 9, 0), 2), ladder, now, jakarta)
		if !d.ShouldEscalate || d.NewLevel != 3 {
			t.Fatalf("expected escalation to level 3, got %+v", d)
		}
	})

	t.Run("AlreadyAtTargetIsNoop", func(t *testing.T) {
		d := EvaluatePromiseEscalation(openCase(at(6, 9, 0), 2), ladder, now, jakarta)
		if d.ShouldEscalate || d.NewLevel != 2 {
			t.Fatalf("expected no change at level 2, got %+v", d)
		}
	})

	t.Run("DueTodayDoesNotEscalate", func(t *testing.T) {
		d := EvaluatePromiseEscalation(openCase(at(10, 8, 0), 0), ladder, now, jakarta)
		if d.ShouldEscalate {
			t.Fatalf("expected no escalation on the promise day, got %+v", d)
		}
	})

	t.Run("ResolvedCaseNeverEscalates", func(t *testing.T) {
		c := openCase(at(1, 9, 0), 0)
		c.Status = entity.CaseStatusResolved
		if d := EvaluatePromiseEscalation(c, ladder, now, jakarta); d.ShouldEscalate {
			t.Fatalf("expected no escalation for resolved case, got %+v", d)
		}
	})

	t.Run("NoPromiseNeverEscalates", func(t *testing.T) {
		c := entity.RecoveryCase{ID: 1, Status: entity.CaseStatusOpen}
		if d := EvaluatePromiseEscalation(c, ladder, now, jakarta); d.ShouldEscalate {
			t.Fatalf("expected no escalation without a promise, got %+v", d)
		}
	})

	t.Run("CustomLadder", func(t *testing.T) {
		custom := entity.Ladder{Thresholds: []int{2, 5, 10}}
		d := EvaluatePromiseEscalation(openCase(at(6, 9, 0), 0), custom, now, jakarta)
		if !d.ShouldEscalate || d.NewLevel != 1 {
			t.Fatalf("expected level 1 under custom ladder, got %+v", d)
		}
	})
}

func TestRescheduleOverdueFollowup(t *testing.T) {

	t.Run("FirstMissMovesToThisEvening", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 0}
		d := RescheduleOverdueFollowup(task, at(10, 9, 0), jakarta)
		if !d.NextDueAt.Equal(at(10, 18, 0)) || d.NewLevel != 1 || d.Escalated {
			t.Fatalf("expected today 18:00 level 1, got %+v", d)
		}
	})

	t.Run("FirstMissAfterEveningMovesToTomorrow", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 0}
		d := RescheduleOverdueFollowup(task, at(10, 19, 30), jakarta)
		if !d.NextDueAt.Equal(at(11, 18, 0)) || d.NewLevel != 1 {
			t.Fatalf("expected tomorrow 18:00 level 1, got %+v", d)
		}
	})

	t.Run("FirstMissExactlyAtEveningMovesToTomorrow", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 0}
		d := RescheduleOverdueFollowup(task, at(10, 18, 0), jakarta)
		if !d.NextDueAt.Equal(at(11, 18, 0)) {
			t.Fatalf("expected tomorrow 18:00 at the boundary, got %+v", d)
		}
	})

	t.Run("SecondMissMovesToTomorrowMorning", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 1}
		d := RescheduleOverdueFollowup(task, at(10, 9, 0), jakarta)
		if !d.NextDueAt.Equal(at(11, 10, 0)) || d.NewLevel != 2 || d.Escalated {
			t.Fatalf("expected tomorrow 10:00 level 2, got %+v", d)
		}
	})

	t.Run("ThirdMissEscalates", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 2}
		d := RescheduleOverdueFollowup(task, at(10, 9, 0), jakarta)
		if !d.NextDueAt.Equal(at(13, 10, 0)) || d.NewLevel != 3 || !d.Escalated {
			t.Fatalf("expected +3d 10:00 level 3 escalated, got %+v", d)
		}
	})

	t.Run("LaterMissesStayEscalated", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 6}
		d := RescheduleOverdueFollowup(task, at(10, 9, 0), jakarta)
		if !d.Escalated || d.NewLevel != 3 {
			t.Fatalf("expected escalated level 3 beyond third miss, got %+v", d)
		}
	})

	t.Run("LevelNeverDecreases", func(t *testing.T) {
		task := entity.FollowupTask{MissCount: 0, EscalationLevel: 3}
		d := RescheduleOverdueFollowup(task, at(10, 9, 0), jakarta)
		if d.NewLevel != 3 {
			t.Fatalf("expected stored level 3 kept on first miss, got %+v", d)
		}
	})
}
