package event

import "time"

const NotificationCreatedDestination string = "engine_notification_created"

type NotificationCreatedMessage struct {
	NotificationID int64     `json:"notification_id"`
	BusinessID     int64     `json:"business_id"`
	UserID         int64     `json:"user_id"`
	CustomerID     int64     `json:"customer_id,omitempty"`
	Kind           string    `json:"kind"`
	IdempotencyKey string    `json:"idempotency_key"`
	Channels       []string  `json:"channels"`
	OccurredAt     time.Time `json:"occurred_at"`
}
