package whatsapp

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
		if r.URL.Path != "/v18.0/phone-1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
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
		Channel:        entity.ChannelWhatsApp,
		Title:          "Follow up Budi",
		Body:           "Your follow-up with Budi is due.",
	}
	if phone != "" {
		d.Destinations = []string{phone}
	}
	return d
}

func newClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, AccessToken: "test-token", PhoneID: "phone-1"}, instrument.NewNoop())
}

func TestWhatsAppSend(t *testing.T) {

	t.Run("Accepted", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusOK, map[string]any{
			"messages": []map[string]string{{"id": "wamid.1"}},
		})

		// Act
		receipt, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if receipt.ProviderMessageID != "wamid.1" {
			t.Fatalf("expected provider id kept, got %q", receipt.ProviderMessageID)
		}
	})

	t.Run("NumberNotOnWhatsAppIsPermanent", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": 131026, "message": "recipient not on whatsapp"},
		})

		// Act
		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if !goerror.IsPermanent(err) || goerror.CodeOf(err) != goerror.CodeInvalidDestination {
			t.Fatalf("expected permanent invalid destination, got %v", err)
		}
	})

	t.Run("RateLimitIsRetryable", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": 130429, "message": "rate limit hit"},
		})

		// Act
		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if !goerror.IsRetryable(err) || goerror.IsPermanent(err) {
			t.Fatalf("expected retryable failure, got %v", err)
		}
		if goerror.CodeOf(err) != goerror.CodeProvider {
			t.Fatalf("expected provider code, got %v", goerror.CodeOf(err))
		}
	})

	t.Run("OtherRejectionIsPermanent", func(t *testing.T) {

		// Arrange
		srv := gateway(t, http.StatusForbidden, map[string]any{
			"error": map[string]any{"code": 10, "message": "permission denied"},
		})

		// Act
		_, err := newClient(srv.URL).Send(context.Background(), delivery("+62811"))

		// Assert
		if !goerror.IsPermanent(err) || goerror.CodeOf(err) != goerror.CodeProvider {
			t.Fatalf("expected permanent provider rejection, got %v", err)
		}
	})

	t.Run("NoPhoneIsPermanent", func(t *testing.T) {

		// Act
		_, err := newClient("http://unused").Send(context.Background(), delivery(""))

		// Assert
		if !goerror.IsPermanent(err) || goerror.CodeOf(err) != goerror.CodeInvalidDestination {
			t.Fatalf("expected permanent invalid destination, got %v", err)
		}
	})
}
