package usecase

import (
	"testing"
	"time"

	"github.com/shandysiswandi/penagih/internal/pkg/config"
)

func TestBackoffDelay(t *testing.T) {
	uc := newTestUsecase(t, &fakeDB{}, &fakeMessaging{}, nil)

	t.Run("DoublesFromBase", func(t *testing.T) {
		cases := map[int32]time.Duration{
			1: 30 * time.Second,
			2: 60 * time.Second,
			3: 120 * time.Second,
			4: 240 * time.Second,
			5: 480 * time.Second,
		}
		for attemptNo, want := range cases {
			if got := uc.backoffDelay(attemptNo); got != want {
				t.Fatalf("attempt %d: expected %v, got %v", attemptNo, want, got)
			}
		}
	})

	t.Run("ClampsAtCap", func(t *testing.T) {
		if got := uc.backoffDelay(20); got != time.Hour {
			t.Fatalf("expected cap of %v, got %v", time.Hour, got)
		}
	})

	t.Run("NeverDecreases", func(t *testing.T) {
		prev := time.Duration(0)
		for attemptNo := int32(1); attemptNo <= 30; attemptNo++ {
			got := uc.backoffDelay(attemptNo)
			if got < prev {
				t.Fatalf("delay decreased at attempt %d: %v -> %v", attemptNo, prev, got)
			}
			prev = got
		}
	})

	t.Run("ConfiguredBaseAndCap", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte(
			"notification:\n  backoff_base_seconds: 10\n  backoff_cap_seconds: 25\n"))
		if err != nil {
			t.Fatalf("build config: %v", err)
		}
		tuned := newTestUsecase(t, &fakeDB{}, &fakeMessaging{}, nil)
		tuned.cfg = cfg

		if got := tuned.backoffDelay(1); got != 10*time.Second {
			t.Fatalf("expected configured base 10s, got %v", got)
		}
		if got := tuned.backoffDelay(3); got != 25*time.Second {
			t.Fatalf("expected configured cap 25s, got %v", got)
		}
	})
}

func TestMaxAttempts(t *testing.T) {
	uc := newTestUsecase(t, &fakeDB{}, &fakeMessaging{}, nil)

	if got := uc.maxAttempts(); got != 5 {
		t.Fatalf("expected default max attempts 5, got %d", got)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte("notification:\n  max_attempts: 7\n"))
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	uc.cfg = cfg
	if got := uc.maxAttempts(); got != 7 {
		t.Fatalf("expected configured max attempts 7, got %d", got)
	}
}
