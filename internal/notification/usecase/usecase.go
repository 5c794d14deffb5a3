package usecase

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
)

type repoDB interface {
	EnsureNotificationOnce(ctx context.Context, data entity.CreateNotification, attemptIDs []int64, now time.Time) (entity.EnsureResult, error)
	ClaimDueAttempt(ctx context.Context, leaseUntil, now time.Time) (*entity.ClaimedAttempt, error)
	MarkAttemptSent(ctx context.Context, attemptID int64, now time.Time) error
	RequeueAttempt(ctx context.Context, attemptID int64, nextAttemptAt time.Time, lastError string, now time.Time) error
	MarkAttemptDead(ctx context.Context, attemptID int64, lastError string, now time.Time) error
	RevokeDeviceTokens(ctx context.Context, tokens []string, now time.Time) error

	GetBusinessChannelConfig(ctx context.Context, businessID int64) (*entity.ChannelConfig, error)
	ListLiveDeviceTokens(ctx context.Context, userID int64, limit int32) ([]string, error)
}

type repoMessaging interface {
	PublishNotificationCreated(ctx context.Context, msg NotificationCreatedEvent) error
	PublishAttemptDead(ctx context.Context, msg AttemptDeadEvent) error
}

// Transport delivers one notification over one channel. A nil error means
// delivered; the receipt may be nil when the provider reports nothing back.
type Transport interface {
	Send(ctx context.Context, d entity.Delivery) (*entity.Receipt, error)
}

// NotificationCreatedEvent is emitted after a notification row wins the
// idempotent insert.
type NotificationCreatedEvent struct {
	NotificationID int64
	BusinessID     int64
	UserID         int64
	CustomerID     int64
	Kind           entity.Kind
	IdempotencyKey string
	Channels       []entity.Channel
	OccurredAt     time.Time
}

// AttemptDeadEvent is emitted when a delivery attempt is dead-lettered.
type AttemptDeadEvent struct {
	AttemptID      int64
	NotificationID int64
	BusinessID     int64
	Channel        entity.Channel
	AttemptNo      int32
	LastError      string
	OccurredAt     time.Time
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	transports    map[entity.Channel]Transport
	cache         *redis.Client
	cfg           config.Config
	uid           uid.NumberID
	clock         clock.Clocker
	validator     validator.Validator
	goroutine     *goroutine.Manager
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Transports    map[entity.Channel]Transport
	Cache         *redis.Client
	Config        config.Config
	UID           uid.NumberID
	Clock         clock.Clocker
	Validator     validator.Validator
	Goroutine     *goroutine.Manager
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		transports:    dep.Transports,
		cache:         dep.Cache,
		cfg:           dep.Config,
		uid:           dep.UID,
		clock:         dep.Clock,
		validator:     dep.Validator,
		goroutine:     dep.Goroutine,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
