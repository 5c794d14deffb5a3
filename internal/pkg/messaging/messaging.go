// Package messaging provides a broker-agnostic publisher used for the
// engine's best-effort event stream.
//
// The engine only publishes: audit-style events (notification created,
// attempt dead-lettered, case escalated) flow out through whichever broker
// the deployment runs. Publishing is never on a primary path; a failed
// publish is logged and dropped, it does not roll back a store transition.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when a feature is not supported by the selected
// broker, e.g. delayed delivery.
var ErrUnsupported = errors.New("pkgmessage: unsupported operation")

// Messaging is a broker-agnostic client that can publish messages.
//
// Implementations wrap NSQ, Kafka, NATS or any other messaging system.
type Messaging interface {
	io.Closer
	Publisher
}

// Publisher publishes messages to a destination (topic/subject/queue).
type Publisher interface {
	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is commonly used by Kafka for partitioning; the engine sets it to
	// the business id so one tenant's events stay ordered.
	Key []byte

	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header

	// Delay is used for deferred delivery (when supported).
	Delay time.Duration
}

// Header is a key/value pair used for message headers.
type Header struct {
	// Key is the header name.
	Key string
	// Value is the header value.
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID.
	MessageID string

	// Topic is the topic used for publishing (Kafka-like brokers).
	Topic string
	// Partition is the partition used for publishing (Kafka-like brokers).
	Partition int32
	// Offset is the publish offset (Kafka-like brokers).
	Offset int64

	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}
