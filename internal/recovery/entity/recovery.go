package entity

import "time"

// RecoveryCase tracks one customer's outstanding debt through promises and
// escalation. The CRUD surface owns its full shape; the engine reads and
// writes only the fields below.
type RecoveryCase struct {
	ID              int64
	BusinessID      int64
	UserID          int64
	CustomerID      int64
	CustomerName    string
	Status          CaseStatus
	PromiseAt       *time.Time
	PromiseAmount   int64 // minor currency units
	PromiseStatus   PromiseStatus
	EscalationLevel int32
	UpdatedAt       time.Time
}

// FollowupTask is one scheduled contact moment inside a case.
type FollowupTask struct {
	ID              int64
	BusinessID      int64
	CaseID          int64
	UserID          int64
	CustomerID      int64
	CustomerName    string
	DueAt           time.Time
	Status          FollowupStatus
	MissCount       int32
	EscalationLevel int32
	UpdatedAt       time.Time
}

// Bill is the minimal invoice view the daily generator scans.
type Bill struct {
	ID           int64
	BusinessID   int64
	UserID       int64
	CustomerID   int64
	CustomerName string
	Amount       int64 // minor currency units
	DueDate      time.Time
}

// Ladder holds the per-business day thresholds at which an overdue promise
// escalates to levels 1, 2 and 3. Thresholds must be strictly increasing.
type Ladder struct {
	Thresholds []int `validate:"len=3,ascending"`
}

// DefaultLadder returns the stock 1/3/7 day ladder.
func DefaultLadder() Ladder {
	return Ladder{Thresholds: []int{1, 3, 7}}
}

// LevelFor maps whole days overdue to the target escalation level, 0 when
// the ladder has not been reached yet.
func (l Ladder) LevelFor(daysOverdue int) int32 {
	level := int32(0)
	for i, threshold := range l.Thresholds {
		if daysOverdue >= threshold {
			level = int32(i + 1)
		}
	}
	return level
}

// EscalationDecision is the outcome of evaluating one case against the ladder.
type EscalationDecision struct {
	ShouldEscalate bool
	NewLevel       int32
}

// RescheduleDecision is the outcome of auto-rescheduling one missed follow-up.
type RescheduleDecision struct {
	NextDueAt time.Time
	NewLevel  int32
	Escalated bool
}

// Settings is the per-business recovery configuration plus kill switches.
type Settings struct {
	BusinessID          int64
	RecoveryEnabled     bool
	AutoFollowupEnabled bool
	Ladder              Ladder
}

// DailyDigest carries the counts behind one user's daily summary.
type DailyDigest struct {
	BusinessID      int64
	UserID          int64
	BillsDueToday   int64
	BillsOverdue    int64
	PromisesDue     int64
	PromisesOverdue int64
}

// Empty reports whether the digest has nothing worth telling the user about.
func (d DailyDigest) Empty() bool {
	return d.BillsDueToday == 0 && d.BillsOverdue == 0 && d.PromisesDue == 0 && d.PromisesOverdue == 0
}
