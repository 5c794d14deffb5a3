package entity

import (
	"time"

	"github.com/shandysiswandi/penagih/internal/pkg/valueobject"
)

// CreateNotification is the input to the idempotent creation path.
//
// The idempotency key is the sole correctness mechanism for "generate exactly
// once": it is deterministic over (kind, entity ids, time bucket), so any
// number of concurrent generator runs race to insert the same key and exactly
// one wins.
type CreateNotification struct {
	ID             int64
	BusinessID     int64
	UserID         int64
	CustomerID     int64
	Kind           Kind
	IdempotencyKey string
	Channels       []Channel
	Title          string
	Body           string
	Metadata       valueobject.JSONMap
}

// EnsureResult is the tagged outcome of the idempotent creation path.
type EnsureResult struct {
	// Created is true when this call inserted the row, false when an earlier
	// or concurrent run already had.
	Created bool
	// NotificationID is the surviving row's id either way.
	NotificationID int64
}

// Notification is an immutable record of something to communicate. It is
// created once by a generator; only its child attempts carry mutable state.
type Notification struct {
	ID             int64
	BusinessID     int64
	UserID         int64
	CustomerID     int64
	Kind           Kind
	IdempotencyKey string
	Channels       []Channel
	Title          string
	Body           string
	Metadata       valueobject.JSONMap
	CreatedAt      time.Time
}

// Attempt is the per-channel delivery state for one notification.
type Attempt struct {
	ID             int64
	NotificationID int64
	Channel        Channel
	Status         AttemptStatus
	AttemptNo      int32
	NextAttemptAt  time.Time
	LeasedUntil    *time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ClaimedAttempt is an attempt joined with the notification fields a
// transport needs, returned by the worker's claim query.
type ClaimedAttempt struct {
	Attempt
	BusinessID int64
	UserID     int64
	CustomerID int64
	Kind       Kind
	Title      string
	Body       string
	Metadata   valueobject.JSONMap
}

// Delivery is the channel-agnostic send request handed to a transport.
type Delivery struct {
	NotificationID int64
	BusinessID     int64
	UserID         int64
	Channel        Channel
	Destinations   []string
	Title          string
	Body           string
	Data           valueobject.JSONMap
}

// Receipt is a successful transport outcome.
type Receipt struct {
	// ProviderMessageID is the provider-assigned id, when one exists.
	ProviderMessageID string
	// PrunedDestinations lists destinations the provider rejected as
	// permanently invalid even though the send as a whole succeeded.
	PrunedDestinations []string
}
