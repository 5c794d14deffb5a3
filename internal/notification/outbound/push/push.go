package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
)

// Config carries the push gateway connection settings.
type Config struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
}

// Client sends push notifications through an FCM-compatible HTTP gateway.
//
// A send is considered successful when at least one device token was
// accepted; tokens the gateway reports as dead come back in the receipt so
// the caller can prune them.
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

type pushRequest struct {
	Tokens []string       `json:"registration_ids"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

type pushResponse struct {
	MessageID string `json:"message_id"`
	Results   []struct {
		Token string `json:"token"`
		Error string `json:"error"`
	} `json:"results"`
}

func (c *Client) Send(ctx context.Context, d entity.Delivery) (_ *entity.Receipt, err error) {
	ctx, span := c.ins.Tracer("notification.outbound.push").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("push.tokens", len(d.Destinations)))

	if len(d.Destinations) == 0 {
		return nil, goerror.NewPermanent(fmt.Errorf("no live device tokens for user %d", d.UserID),
			goerror.CodeInvalidDestination)
	}

	body, err := json.Marshal(pushRequest{
		Tokens: d.Destinations,
		Title:  d.Title,
		Body:   d.Body,
		Data:   d.Data,
	})
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, goerror.NewServer(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.cfg.ServerKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, goerror.NewRetryable(err, goerror.CodeUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, goerror.NewRetryable(err, goerror.CodeUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, goerror.NewRetryable(
			fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, raw), goerror.CodeProvider)
	default:
		return nil, goerror.NewPermanent(
			fmt.Errorf("push gateway rejected request with %d: %s", resp.StatusCode, raw),
			goerror.CodeProvider)
	}

	var out pushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, goerror.NewRetryable(err, goerror.CodeProvider)
	}

	pruned := make([]string, 0)
	accepted := 0
	for _, r := range out.Results {
		switch r.Error {
		case "":
			accepted++
		case "NotRegistered", "InvalidRegistration":
			pruned = append(pruned, r.Token)
		}
	}

	if accepted == 0 {
		return nil, goerror.NewPermanent(
			fmt.Errorf("push gateway accepted none of %d tokens", len(d.Destinations)),
			goerror.CodeInvalidDestination)
	}

	return &entity.Receipt{ProviderMessageID: out.MessageID, PrunedDestinations: pruned}, nil
}
