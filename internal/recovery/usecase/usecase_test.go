package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	notifentity "github.com/shandysiswandi/penagih/internal/notification/entity"
	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/cronlock"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type rescheduleCall struct {
	taskID    int64
	nextDueAt time.Time
	missCount int32
	level     int32
	status    entity.FollowupStatus
}

type escalateCall struct {
	caseID  int64
	toLevel int32
}

type fakeStore struct {
	mu sync.Mutex

	settings map[int64]*entity.Settings

	followupsDue []entity.FollowupTask
	overdueTasks []entity.FollowupTask
	rescheduled  []rescheduleCall

	casesDueToday []entity.RecoveryCase
	casesOverdue  []entity.RecoveryCase
	escalated     []escalateCall
	escalateDeny  bool
	brokenMarked  []int64

	billsDue     []entity.Bill
	billsOverdue []entity.Bill
	digests      []entity.DailyDigest
}

func (f *fakeStore) GetSettings(_ context.Context, businessID int64) (*entity.Settings, error) {
	if s, ok := f.settings[businessID]; ok {
		return s, nil
	}
	return &entity.Settings{
		BusinessID:          businessID,
		RecoveryEnabled:     true,
		AutoFollowupEnabled: true,
		Ladder:              entity.DefaultLadder(),
	}, nil
}

func (f *fakeStore) ListFollowupsDueBetween(_ context.Context, _, _ time.Time, _ int32) ([]entity.FollowupTask, error) {
	return f.followupsDue, nil
}

func (f *fakeStore) ListOverdueFollowups(_ context.Context, _ time.Time, _ int32) ([]entity.FollowupTask, error) {
	return f.overdueTasks, nil
}

func (f *fakeStore) RescheduleFollowup(_ context.Context, taskID int64, nextDueAt time.Time, missCount, level int32, status entity.FollowupStatus, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, rescheduleCall{
		taskID: taskID, nextDueAt: nextDueAt, missCount: missCount, level: level, status: status,
	})
	return nil
}

func (f *fakeStore) ListCasesPromiseBetween(_ context.Context, _, _ time.Time, _ int32) ([]entity.RecoveryCase, error) {
	return f.casesDueToday, nil
}

func (f *fakeStore) ListCasesPromiseBefore(_ context.Context, _ time.Time, _ int32) ([]entity.RecoveryCase, error) {
	return f.casesOverdue, nil
}

func (f *fakeStore) EscalateCase(_ context.Context, caseID int64, toLevel int32, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.escalateDeny {
		return false, nil
	}
	f.escalated = append(f.escalated, escalateCall{caseID: caseID, toLevel: toLevel})
	return true, nil
}

func (f *fakeStore) MarkPromiseBroken(_ context.Context, caseID int64, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokenMarked = append(f.brokenMarked, caseID)
	return true, nil
}

func (f *fakeStore) ListBillsDueBetween(_ context.Context, _, _ time.Time, _ int32) ([]entity.Bill, error) {
	return f.billsDue, nil
}

func (f *fakeStore) ListOverdueBills(_ context.Context, _ time.Time, _ int32) ([]entity.Bill, error) {
	return f.billsOverdue, nil
}

func (f *fakeStore) ListDailyDigests(_ context.Context, _, _ time.Time, _ int32) ([]entity.DailyDigest, error) {
	return f.digests, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	inputs []notifusecase.EnsureNotificationInput
	seen   map[string]bool
}

func (f *fakeNotifier) EnsureNotificationOnce(_ context.Context, in notifusecase.EnsureNotificationInput) (*notifentity.EnsureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, in)
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[in.IdempotencyKey] {
		return &notifentity.EnsureResult{Created: false, NotificationID: 1}, nil
	}
	f.seen[in.IdempotencyKey] = true
	return &notifentity.EnsureResult{Created: true, NotificationID: 1}, nil
}

func (f *fakeNotifier) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.inputs))
	for _, in := range f.inputs {
		out = append(out, in.IdempotencyKey)
	}
	return out
}

type fakeEvents struct {
	mu        sync.Mutex
	escalated []CaseEscalatedEvent
}

func (f *fakeEvents) PublishCaseEscalated(_ context.Context, msg CaseEscalatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalated = append(f.escalated, msg)
	return nil
}

type releaseCall struct {
	name   string
	status cronlock.ExecutionStatus
}

type fakeLocker struct {
	mu       sync.Mutex
	denied   bool
	acquired []string
	released []releaseCall
}

func (f *fakeLocker) Acquire(_ context.Context, name string, _ time.Duration) (cronlock.Acquisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return cronlock.Acquisition{}, nil
	}
	f.acquired = append(f.acquired, name)
	return cronlock.Acquisition{Acquired: true, OwnerID: "owner-test"}, nil
}

func (f *fakeLocker) Release(_ context.Context, name, _ string, status cronlock.ExecutionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, releaseCall{name: name, status: status})
	return nil
}

func newTestUsecase(t *testing.T, store *fakeStore, notif *fakeNotifier, locker *fakeLocker, now time.Time) (*Usecase, *fakeEvents) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("{}"))
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	val, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("build validator: %v", err)
	}

	// the cache points at a closed port; reads degrade to the store
	cache := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { cache.Close() })

	events := &fakeEvents{}
	uc := New(Dependency{
		RepoDB:        store,
		RepoMessaging: events,
		Notifier:      notif,
		Locker:        locker,
		Cache:         cache,
		Config:        cfg,
		Clock:         stubClock{now: now},
		Business:      jakarta,
		Goroutine:     goroutine.NewManager(8),
		Validator:     val,
		Instrument:    instrument.NewNoop(),
	})

	return uc, events
}
