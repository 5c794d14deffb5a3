package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/cronlock"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

type repoDB interface {
	GetSettings(ctx context.Context, businessID int64) (*entity.Settings, error)

	ListFollowupsDueBetween(ctx context.Context, from, to time.Time, limit int32) ([]entity.FollowupTask, error)
	ListOverdueFollowups(ctx context.Context, before time.Time, limit int32) ([]entity.FollowupTask, error)
	RescheduleFollowup(ctx context.Context, taskID int64, nextDueAt time.Time, missCount, level int32, status entity.FollowupStatus, now time.Time) error

	ListCasesPromiseBetween(ctx context.Context, from, to time.Time, limit int32) ([]entity.RecoveryCase, error)
	ListCasesPromiseBefore(ctx context.Context, before time.Time, limit int32) ([]entity.RecoveryCase, error)
	EscalateCase(ctx context.Context, caseID int64, toLevel int32, now time.Time) (bool, error)
	MarkPromiseBroken(ctx context.Context, caseID int64, now time.Time) (bool, error)

	ListBillsDueBetween(ctx context.Context, from, to time.Time, limit int32) ([]entity.Bill, error)
	ListOverdueBills(ctx context.Context, before time.Time, limit int32) ([]entity.Bill, error)
	ListDailyDigests(ctx context.Context, dayStart, dayEnd time.Time, limit int32) ([]entity.DailyDigest, error)
}

// notifier is the idempotent creation path every generator funnels into.
type notifier interface {
	EnsureNotificationOnce(ctx context.Context, in notifusecase.EnsureNotificationInput) (*notifentity.EnsureResult, error)
}

type repoMessaging interface {
	PublishCaseEscalated(ctx context.Context, msg CaseEscalatedEvent) error
}

// CaseEscalatedEvent is emitted after a case's escalation level was raised.
type CaseEscalatedEvent struct {
	CaseID     int64
	BusinessID int64
	CustomerID int64
	FromLevel  int32
	ToLevel    int32
	Reason     string
	OccurredAt time.Time
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	notifier      notifier
	locker        cronlock.Locker
	cache         *redis.Client
	cfg           config.Config
	clock         clock.Clocker
	biz           *clock.Business
	goroutine     *goroutine.Manager
	validator     validator.Validator
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Notifier      notifier
	Locker        cronlock.Locker
	Cache         *redis.Client
	Config        config.Config
	Clock         clock.Clocker
	Business      *clock.Business
	Goroutine     *goroutine.Manager
	Validator     validator.Validator
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		notifier:      dep.Notifier,
		locker:        dep.Locker,
		cache:         dep.Cache,
		cfg:           dep.Config,
		clock:         dep.Clock,
		biz:           dep.Business,
		goroutine:     dep.Goroutine,
		validator:     dep.Validator,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("recovery.usecase").Start(ctx, name)
}

func (s *Usecase) batchSize() int32 {
	if v := s.cfg.GetInt32("recovery.batch_size"); v > 0 {
		return v
	}
	return 200
}

const (
	settingsCacheKey = "penagih:recovery_settings:%d"
	settingsCacheTTL = time.Minute
)

// settings reads per-business recovery switches through a short-lived cache.
// A business without a settings row has recovery switched off.
func (s *Usecase) settings(ctx context.Context, businessID int64) (*entity.Settings, error) {
	key := fmt.Sprintf(settingsCacheKey, businessID)

	if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var out entity.Settings
		if err := json.Unmarshal(raw, &out); err == nil {
			return &out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "recovery settings cache read failed", "business_id", businessID, "error", err)
	}

	out, err := s.repoDB.GetSettings(ctx, businessID)
	if errors.Is(err, goerror.ErrNotFound) {
		out = &entity.Settings{BusinessID: businessID, Ladder: entity.DefaultLadder()}
	} else if err != nil {
		return nil, err
	}

	// a misconfigured ladder row falls back to the stock ladder
	if err := s.validator.Validate(out.Ladder); err != nil {
		slog.WarnContext(ctx, "invalid escalation ladder, using default",
			"business_id", businessID, "ladder", out.Ladder.Thresholds, "error", err)
		out.Ladder = entity.DefaultLadder()
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, raw, settingsCacheTTL).Err(); err != nil {
			slog.WarnContext(ctx, "recovery settings cache write failed", "business_id", businessID, "error", err)
		}
	}

	return out, nil
}
