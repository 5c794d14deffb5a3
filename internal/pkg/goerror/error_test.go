package goerror

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassification(t *testing.T) {

	t.Run("Retryable", func(t *testing.T) {
		err := NewRetryable(errors.New("throttled"), CodeProvider)
		if !IsRetryable(err) || IsPermanent(err) || IsSkipped(err) {
			t.Fatalf("expected retryable only, got %v", err)
		}
		if CodeOf(err) != CodeProvider {
			t.Fatalf("expected provider code, got %v", CodeOf(err))
		}
	})

	t.Run("Permanent", func(t *testing.T) {
		err := NewPermanent(errors.New("dead token"), CodeInvalidDestination)
		if IsRetryable(err) || !IsPermanent(err) {
			t.Fatalf("expected permanent, got %v", err)
		}
		if CodeOf(err) != CodeInvalidDestination {
			t.Fatalf("expected invalid destination code, got %v", CodeOf(err))
		}
	})

	t.Run("ServerCountsAsRetryable", func(t *testing.T) {
		err := NewServer(errors.New("db down"))
		if !IsRetryable(err) {
			t.Fatalf("expected server error to cost a retry, got %v", err)
		}
	})

	t.Run("UnclassifiedDefaultsToRetryable", func(t *testing.T) {
		err := errors.New("raw network error")
		if !IsRetryable(err) || IsPermanent(err) {
			t.Fatalf("expected unclassified error treated as retryable")
		}
		if CodeOf(err) != CodeInternal {
			t.Fatalf("expected internal code for unclassified error, got %v", CodeOf(err))
		}
	})

	t.Run("Skipped", func(t *testing.T) {
		err := NewSkipped("lock held elsewhere", CodeLockHeld)
		if !IsSkipped(err) || IsPermanent(err) {
			t.Fatalf("expected skipped, got %v", err)
		}
	})

	t.Run("SurvivesWrapping", func(t *testing.T) {
		err := fmt.Errorf("send whatsapp: %w", NewPermanent(errors.New("not on whatsapp"), CodeInvalidDestination))
		if !IsPermanent(err) {
			t.Fatalf("expected permanent through wrapping, got %v", err)
		}
		if CodeOf(err) != CodeInvalidDestination {
			t.Fatalf("expected code through wrapping, got %v", CodeOf(err))
		}
	})
}

func TestErrorMessage(t *testing.T) {
	err := NewRetryable(errors.New("connection reset"), CodeUnavailable)
	if err.Error() != "connection reset" {
		t.Fatalf("expected underlying message, got %q", err.Error())
	}

	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ge.Type() != TypeRetryable || ge.Code() != CodeUnavailable {
		t.Fatalf("unexpected classification: %s", ge.String())
	}
}
