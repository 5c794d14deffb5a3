package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type seqID struct{ n int64 }

func (s *seqID) Generate() int64 { return atomic.AddInt64(&s.n, 1) }

type requeueCall struct {
	attemptID int64
	nextAt    time.Time
	lastError string
}

type deadCall struct {
	attemptID int64
	lastError string
}

type fakeDB struct {
	mu sync.Mutex

	ensured      []entity.CreateNotification
	ensureResult entity.EnsureResult
	ensureErr    error
	seenKeys     map[string]int64

	claims   []*entity.ClaimedAttempt
	claimIdx int

	sent     []int64
	requeued []requeueCall
	dead     []deadCall
	revoked  [][]string

	channelCfg    *entity.ChannelConfig
	channelCfgErr error
	tokens        []string
	tokensErr     error
}

func (f *fakeDB) EnsureNotificationOnce(_ context.Context, data entity.CreateNotification, _ []int64, _ time.Time) (entity.EnsureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ensureErr != nil {
		return entity.EnsureResult{}, f.ensureErr
	}

	f.ensured = append(f.ensured, data)

	// keyed mode mimics the store's unique index across concurrent callers
	if f.seenKeys != nil {
		if id, ok := f.seenKeys[data.IdempotencyKey]; ok {
			return entity.EnsureResult{Created: false, NotificationID: id}, nil
		}
		f.seenKeys[data.IdempotencyKey] = data.ID
		return entity.EnsureResult{Created: true, NotificationID: data.ID}, nil
	}

	return f.ensureResult, nil
}

func (f *fakeDB) ClaimDueAttempt(_ context.Context, _, _ time.Time) (*entity.ClaimedAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claimIdx >= len(f.claims) {
		return nil, goerror.ErrNotFound
	}
	ca := f.claims[f.claimIdx]
	f.claimIdx++
	return ca, nil
}

func (f *fakeDB) MarkAttemptSent(_ context.Context, attemptID int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, attemptID)
	return nil
}

func (f *fakeDB) RequeueAttempt(_ context.Context, attemptID int64, nextAttemptAt time.Time, lastError string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued = append(f.requeued, requeueCall{attemptID: attemptID, nextAt: nextAttemptAt, lastError: lastError})
	return nil
}

func (f *fakeDB) MarkAttemptDead(_ context.Context, attemptID int64, lastError string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = append(f.dead, deadCall{attemptID: attemptID, lastError: lastError})
	return nil
}

func (f *fakeDB) RevokeDeviceTokens(_ context.Context, tokens []string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, tokens)
	return nil
}

func (f *fakeDB) GetBusinessChannelConfig(_ context.Context, businessID int64) (*entity.ChannelConfig, error) {
	if f.channelCfgErr != nil {
		return nil, f.channelCfgErr
	}
	if f.channelCfg != nil {
		return f.channelCfg, nil
	}
	return &entity.ChannelConfig{BusinessID: businessID, NotificationsEnabled: true}, nil
}

func (f *fakeDB) ListLiveDeviceTokens(_ context.Context, _ int64, _ int32) ([]string, error) {
	return f.tokens, f.tokensErr
}

type fakeMessaging struct {
	mu      sync.Mutex
	created []NotificationCreatedEvent
	dead    []AttemptDeadEvent
}

func (f *fakeMessaging) PublishNotificationCreated(_ context.Context, msg NotificationCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeMessaging) PublishAttemptDead(_ context.Context, msg AttemptDeadEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = append(f.dead, msg)
	return nil
}

type fakeTransport struct {
	mu         sync.Mutex
	receipt    *entity.Receipt
	nilReceipt bool
	err        error
	sends      []entity.Delivery
}

func (f *fakeTransport) Send(_ context.Context, d entity.Delivery) (*entity.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, d)
	if f.err != nil {
		return nil, f.err
	}
	if f.nilReceipt {
		return nil, nil
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &entity.Receipt{}, nil
}

func newTestUsecase(t *testing.T, db *fakeDB, mq *fakeMessaging, transports map[entity.Channel]Transport) *Usecase {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("{}"))
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	v, err := validator.NewV10Validator()
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

	return New(Dependency{
		RepoDB:        db,
		RepoMessaging: mq,
		Transports:    transports,
		Cache:         cache,
		Config:        cfg,
		UID:           &seqID{},
		Clock:         stubClock{now: testNow},
		Validator:     v,
		Goroutine:     goroutine.NewManager(8),
		Instrument:    instrument.NewNoop(),
	})
}

func claimedAttempt(id int64, channel entity.Channel, attemptNo int32) *entity.ClaimedAttempt {
	ca := &entity.ClaimedAttempt{
		BusinessID: 10,
		UserID:     20,
		CustomerID: 30,
		Kind:       entity.KindFollowupDue,
		Title:      "Follow up Budi",
		Body:       "Your follow-up with Budi is due.",
	}
	ca.ID = id
	ca.NotificationID = 100
	ca.Channel = channel
	ca.Status = entity.AttemptStatusInProgress
	ca.AttemptNo = attemptNo
	ca.NextAttemptAt = testNow
	return ca
}
