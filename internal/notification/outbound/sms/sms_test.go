package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
)

func gateway(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ClientID != "ntf-100-sms" {
			t.Errorf("unexpected client_id %q", req.ClientID)
		}
		if req.From != "PENAGIH" {
			t.Errorf("unexpected sender %q", req.From)
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func delivery(phone string) entity.Delivery {
	d := entity.Delivery{
		NotificationID: 100,
		UserID:         20,
		Channel:        entity.ChannelSMS,
		Title:          "Payment overdue",
		Body:           "Your payment of 150000 is overdue.",
	}
	if phone != "" {
		d.Destinations = []string{phone}
	}
	return d
}

func newClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, APIKey: "test-key", SenderID: "PENAGIH"}, instrument.NewNoop())
}

func TestSMSSend(t *testing.T) {

	t.Run("Accepted", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusAccepted, sendResponse{MessageID: "sms-1", Status: "queued"})

		// Act
		receipt, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if receipt.ProviderMessageID != "sms-1" {
			t.Fatalf("expected provider id kept, got %q", receipt.ProviderMessageID)
		}
	})

	t.Run("BadNumberIsPermanent", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusUnprocessableEntity, sendResponse{Error: "invalid msisdn"})

		// Act
		_, err := newClient(srv.URL).Send(context.Background(), delivery("garbage"))

		// Assert
		if !goerror.IsPermanent(err) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		if goerror.CodeOf(err) != goerror.CodeInvalidDestination {
			t.Fatalf("unexpected code %v", goerror.CodeOf(err))
		}
	})

	t.Run("ThrottlingIsRetryable", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusTooManyRequests, sendResponse{Error: "rate limited"})

		// Act
		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if !goerror.IsRetryable(err) {
			t.Fatalf("expected retryable error, got %v", err)
		}
		if goerror.CodeOf(err) != goerror.CodeProvider {
			t.Fatalf("unexpected code %v", goerror.CodeOf(err))
		}
	})

	t.Run("ServerErrorIsRetryable", func(t *testing.T) {
		srv := gateway(t, http.StatusBadGateway, sendResponse{Error: "upstream down"})

		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		if !goerror.IsRetryable(err) {
			t.Fatalf("expected retryable error, got %v", err)
		}
	})

	t.Run("UnexpectedRejectionIsPermanent", func(t *testing.T) {
		srv := gateway(t, http.StatusForbidden, sendResponse{Error: "account suspended"})

		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		if !goerror.IsPermanent(err) {
			t.Fatalf("expected permanent error, got %v", err)
		}
	})

	t.Run("NoPhoneIsPermanent", func(t *testing.T) {
		_, err := newClient("http://127.0.0.1:1").Send(context.Background(), delivery(""))

		if !goerror.IsPermanent(err) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		if goerror.CodeOf(err) != goerror.CodeInvalidDestination {
			t.Fatalf("unexpected code %v", goerror.CodeOf(err))
		}
	})
}
