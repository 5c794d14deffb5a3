package event

import "time"

const AttemptDeadDestination string = "engine_attempt_dead"

type AttemptDeadMessage struct {
	AttemptID      int64     `json:"attempt_id"`
	NotificationID int64     `json:"notification_id"`
	BusinessID     int64     `json:"business_id"`
	Channel        string    `json:"channel"`
	AttemptNo      int32     `json:"attempt_no"`
	LastError      string    `json:"last_error"`
	OccurredAt     time.Time `json:"occurred_at"`
}
