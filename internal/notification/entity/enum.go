package entity

import "strings"

// Channel identifies one delivery medium.
type Channel int16

const (
	ChannelUnknown  Channel = 0
	ChannelInApp    Channel = 1
	ChannelPush     Channel = 2
	ChannelSMS      Channel = 3
	ChannelWhatsApp Channel = 4
)

// ChannelFromString parses the persisted channel identifier.
func ChannelFromString(raw string) Channel {
	switch strings.TrimSpace(raw) {
	case "in_app":
		return ChannelInApp
	case "push":
		return ChannelPush
	case "sms":
		return ChannelSMS
	case "whatsapp":
		return ChannelWhatsApp
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelInApp:
		return "in_app"
	case ChannelPush:
		return "push"
	case ChannelSMS:
		return "sms"
	case ChannelWhatsApp:
		return "whatsapp"
	default:
		return "unknown"
	}
}

// AttemptStatus is the delivery lifecycle state of one (notification, channel)
// attempt row.
//
// Queued and Failed are both claimable: Queued before the first try, Failed
// after a retryable error with the retry time in next_attempt_at. Sent and
// Dead are terminal.
type AttemptStatus int16

const (
	AttemptStatusUnknown    AttemptStatus = 0
	AttemptStatusQueued     AttemptStatus = 1
	AttemptStatusInProgress AttemptStatus = 2
	AttemptStatusSent       AttemptStatus = 3
	AttemptStatusFailed     AttemptStatus = 4
	AttemptStatusDead       AttemptStatus = 5
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptStatusQueued:
		return "queued"
	case AttemptStatusInProgress:
		return "in_progress"
	case AttemptStatusSent:
		return "sent"
	case AttemptStatusFailed:
		return "failed"
	case AttemptStatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// AttemptStatusFromString parses the persisted status identifier.
func AttemptStatusFromString(raw string) AttemptStatus {
	switch strings.TrimSpace(raw) {
	case "queued":
		return AttemptStatusQueued
	case "in_progress":
		return AttemptStatusInProgress
	case "sent":
		return AttemptStatusSent
	case "failed":
		return AttemptStatusFailed
	case "dead":
		return AttemptStatusDead
	default:
		return AttemptStatusUnknown
	}
}

// Terminal reports whether the status admits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusSent || s == AttemptStatusDead
}

// Kind names the business event a notification communicates.
type Kind string

const (
	KindFollowupDue       Kind = "followup_due"
	KindFollowupEscalated Kind = "followup_escalated"
	KindPromiseDueToday   Kind = "promise_due_today"
	KindPromiseBroken     Kind = "promise_broken"
	KindBillDueToday      Kind = "bill_due_today"
	KindOverdueAlert      Kind = "overdue_alert"
	KindDailySummary      Kind = "daily_summary"
)

func (k Kind) String() string {
	return string(k)
}
