package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
)

func TestDeliverDueAttempts(t *testing.T) {

	t.Run("SentOnSuccess", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelInApp, 1)}}
		transport := &fakeTransport{}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		processed, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 processed, got %d", processed)
		}
		if len(transport.sends) != 1 {
			t.Fatalf("expected one send, got %d", len(transport.sends))
		}
		if len(db.sent) != 1 || db.sent[0] != 1 {
			t.Fatalf("expected attempt 1 marked sent, got %v", db.sent)
		}
		if len(db.requeued) != 0 || len(db.dead) != 0 {
			t.Fatalf("expected no requeue or dead-letter, got %v %v", db.requeued, db.dead)
		}
		uc.goroutine.Wait()
	})

	t.Run("NilReceiptStillMarksSent", func(t *testing.T) {

		// Arrange: a transport that succeeds without reporting anything back.
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelInApp, 1)}}
		transport := &fakeTransport{nilReceipt: true}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		processed, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 processed, got %d", processed)
		}
		if len(db.sent) != 1 || db.sent[0] != 1 {
			t.Fatalf("expected attempt 1 marked sent, got %v", db.sent)
		}
		uc.goroutine.Wait()
		if len(db.revoked) != 0 {
			t.Fatalf("expected no token revocation, got %v", db.revoked)
		}
	})

	t.Run("RetryableRequeuesWithBackoff", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelInApp, 1)}}
		transport := &fakeTransport{err: goerror.NewRetryable(errors.New("provider 503"), goerror.CodeProvider)}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		processed, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 processed, got %d", processed)
		}
		if len(db.requeued) != 1 {
			t.Fatalf("expected one requeue, got %d", len(db.requeued))
		}
		if want := testNow.Add(30 * time.Second); !db.requeued[0].nextAt.Equal(want) {
			t.Fatalf("expected next attempt at %v, got %v", want, db.requeued[0].nextAt)
		}
		if db.requeued[0].lastError == "" {
			t.Fatalf("expected last error recorded on requeue")
		}
		uc.goroutine.Wait()
	})

	t.Run("PermanentDeadLettersAndRevokesTokens", func(t *testing.T) {

		// Arrange
		db := &fakeDB{
			claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelPush, 1)},
			tokens: []string{"tok-dead"},
		}
		transport := &fakeTransport{err: goerror.NewPermanent(errors.New("NotRegistered"), goerror.CodeInvalidDestination)}
		mq := &fakeMessaging{}
		uc := newTestUsecase(t, db, mq, map[entity.Channel]Transport{entity.ChannelPush: transport})

		// Act
		processed, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 processed, got %d", processed)
		}
		if len(db.dead) != 1 || db.dead[0].attemptID != 1 {
			t.Fatalf("expected attempt 1 dead-lettered, got %v", db.dead)
		}
		if len(db.requeued) != 0 {
			t.Fatalf("expected no requeue on a permanent failure, got %v", db.requeued)
		}

		uc.goroutine.Wait()
		if len(db.revoked) != 1 || db.revoked[0][0] != "tok-dead" {
			t.Fatalf("expected rejected token revoked, got %v", db.revoked)
		}
		if len(mq.dead) != 1 || mq.dead[0].AttemptID != 1 {
			t.Fatalf("expected one dead event, got %v", mq.dead)
		}
	})

	t.Run("DeadAtMaxAttempts", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelInApp, 5)}}
		transport := &fakeTransport{err: goerror.NewRetryable(errors.New("still flaky"), goerror.CodeUnavailable)}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		_, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(db.dead) != 1 {
			t.Fatalf("expected dead-letter at attempt 5, got %v", db.dead)
		}
		if len(db.requeued) != 0 {
			t.Fatalf("expected no requeue past the attempt cap, got %v", db.requeued)
		}
		uc.goroutine.Wait()
	})

	t.Run("RetryableBelowCapStaysAlive", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelInApp, 4)}}
		transport := &fakeTransport{err: goerror.NewRetryable(errors.New("timeout"), goerror.CodeUnavailable)}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		_, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(db.requeued) != 1 || len(db.dead) != 0 {
			t.Fatalf("expected requeue at attempt 4, got requeued=%v dead=%v", db.requeued, db.dead)
		}
		uc.goroutine.Wait()
	})

	t.Run("MissingTransportDeadLetters", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelSMS, 1)}}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{})

		// Act
		_, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(db.dead) != 1 {
			t.Fatalf("expected dead-letter for unroutable channel, got %v", db.dead)
		}
		uc.goroutine.Wait()
	})

	t.Run("PrunedReceiptRevokesTokens", func(t *testing.T) {

		// Arrange
		db := &fakeDB{
			claims: []*entity.ClaimedAttempt{claimedAttempt(1, entity.ChannelPush, 1)},
			tokens: []string{"tok-live", "tok-stale"},
		}
		transport := &fakeTransport{receipt: &entity.Receipt{PrunedDestinations: []string{"tok-stale"}}}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelPush: transport})

		// Act
		_, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(db.sent) != 1 {
			t.Fatalf("expected attempt marked sent, got %v", db.sent)
		}

		uc.goroutine.Wait()
		if len(db.revoked) != 1 || db.revoked[0][0] != "tok-stale" {
			t.Fatalf("expected stale token revoked, got %v", db.revoked)
		}
	})

	t.Run("DrainsUntilQueueEmpty", func(t *testing.T) {

		// Arrange
		db := &fakeDB{claims: []*entity.ClaimedAttempt{
			claimedAttempt(1, entity.ChannelInApp, 1),
			claimedAttempt(2, entity.ChannelInApp, 1),
			claimedAttempt(3, entity.ChannelInApp, 1),
		}}
		transport := &fakeTransport{}
		uc := newTestUsecase(t, db, &fakeMessaging{}, map[entity.Channel]Transport{entity.ChannelInApp: transport})

		// Act
		processed, err := uc.DeliverDueAttempts(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed != 3 {
			t.Fatalf("expected all 3 attempts processed, got %d", processed)
		}
		if len(db.sent) != 3 {
			t.Fatalf("expected 3 sent, got %v", db.sent)
		}
		uc.goroutine.Wait()
	})
}
