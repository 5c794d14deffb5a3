package entity

// PromiseStatus buckets a payment promise relative to the business calendar.
type PromiseStatus int16

const (
	PromiseStatusNone     PromiseStatus = 0
	PromiseStatusUpcoming PromiseStatus = 1
	PromiseStatusDueToday PromiseStatus = 2
	PromiseStatusOverdue  PromiseStatus = 3
	PromiseStatusBroken   PromiseStatus = 4
)

func (s PromiseStatus) String() string {
	switch s {
	case PromiseStatusUpcoming:
		return "upcoming"
	case PromiseStatusDueToday:
		return "due_today"
	case PromiseStatusOverdue:
		return "overdue"
	case PromiseStatusBroken:
		return "broken"
	default:
		return "none"
	}
}

// PromiseStatusFromString parses the persisted status identifier.
func PromiseStatusFromString(raw string) PromiseStatus {
	switch raw {
	case "upcoming":
		return PromiseStatusUpcoming
	case "due_today":
		return PromiseStatusDueToday
	case "overdue":
		return PromiseStatusOverdue
	case "broken":
		return PromiseStatusBroken
	default:
		return PromiseStatusNone
	}
}

// FollowupStatus is the lifecycle state of one follow-up task.
type FollowupStatus int16

const (
	FollowupStatusOpen      FollowupStatus = 0
	FollowupStatusDueToday  FollowupStatus = 1
	FollowupStatusOverdue   FollowupStatus = 2
	FollowupStatusCompleted FollowupStatus = 3
	FollowupStatusEscalated FollowupStatus = 4
)

func (s FollowupStatus) String() string {
	switch s {
	case FollowupStatusDueToday:
		return "due_today"
	case FollowupStatusOverdue:
		return "overdue"
	case FollowupStatusCompleted:
		return "completed"
	case FollowupStatusEscalated:
		return "escalated"
	default:
		return "open"
	}
}

// FollowupStatusFromString parses the persisted status identifier.
func FollowupStatusFromString(raw string) FollowupStatus {
	switch raw {
	case "due_today":
		return FollowupStatusDueToday
	case "overdue":
		return FollowupStatusOverdue
	case "completed":
		return FollowupStatusCompleted
	case "escalated":
		return FollowupStatusEscalated
	default:
		return FollowupStatusOpen
	}
}

// Terminal reports whether a follow-up admits no further automatic work.
func (s FollowupStatus) Terminal() bool {
	return s == FollowupStatusCompleted
}

// CaseStatus is the lifecycle state of a recovery case.
type CaseStatus int16

const (
	CaseStatusOpen     CaseStatus = 0
	CaseStatusResolved CaseStatus = 1
	CaseStatusClosed   CaseStatus = 2
)

func (s CaseStatus) String() string {
	switch s {
	case CaseStatusResolved:
		return "resolved"
	case CaseStatusClosed:
		return "closed"
	default:
		return "open"
	}
}

// CaseStatusFromString parses the persisted status identifier.
func CaseStatusFromString(raw string) CaseStatus {
	switch raw {
	case "resolved":
		return CaseStatusResolved
	case "closed":
		return CaseStatusClosed
	default:
		return CaseStatusOpen
	}
}
