package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
)

// Config carries the SMS gateway connection settings.
type Config struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// Client sends SMS through an HTTP gateway.
//
// Connection-level blips are retried in place with a short fibonacci backoff;
// anything the gateway actually answered is classified once and returned, the
// delivery worker owns the longer between-attempt backoff.
type Client struct {
	cfg    Config
	client *http.Client
	ins    instrument.Instrumentation
}

func New(cfg Config, ins instrument.Instrumentation) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		ins:    ins,
	}
}

type sendRequest struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Body     string `json:"body"`
	ClientID string `json:"client_id"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

func (c *Client) Send(ctx context.Context, d entity.Delivery) (_ *entity.Receipt, err error) {
	ctx, span := c.ins.Tracer("notification.outbound.sms").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(d.Destinations) == 0 || d.Destinations[0] == "" {
		return nil, goerror.NewPermanent(fmt.Errorf("no phone number for user %d", d.UserID),
			goerror.CodeInvalidDestination)
	}

	payload, err := json.Marshal(sendRequest{
		To:   d.Destinations[0],
		From: c.cfg.SenderID,
		Body: d.Body,
		// the provider dedupes on client_id, so an expired lease re-claimed by
		// another worker cannot double-send
		ClientID: fmt.Sprintf("ntf-%d-%s", d.NotificationID, d.Channel),
	})
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	var out sendResponse

	b := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
		if rerr != nil {
			return goerror.NewServer(rerr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, rerr := c.client.Do(req)
		if rerr != nil {
			return retry.RetryableError(goerror.NewRetryable(rerr, goerror.CodeUnavailable))
		}
		defer resp.Body.Close()

		raw, rerr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if rerr != nil {
			return retry.RetryableError(goerror.NewRetryable(rerr, goerror.CodeUnavailable))
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
			return goerror.NewPermanent(
				fmt.Errorf("sms gateway rejected number %q: %s", d.Destinations[0], raw),
				goerror.CodeInvalidDestination)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return goerror.NewRetryable(
				fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, raw), goerror.CodeProvider)
		default:
			return goerror.NewPermanent(
				fmt.Errorf("sms gateway rejected request with %d: %s", resp.StatusCode, raw),
				goerror.CodeProvider)
		}

		if rerr := json.Unmarshal(raw, &out); rerr != nil {
			return goerror.NewRetryable(rerr, goerror.CodeProvider)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entity.Receipt{ProviderMessageID: out.MessageID}, nil
}
