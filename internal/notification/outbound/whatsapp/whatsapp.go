package whatsapp

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

// Config carries the WhatsApp business gateway connection settings.
type Config struct {
	BaseURL     string
	AccessToken string
	PhoneID     string
	Timeout     time.Duration
}

// Client sends WhatsApp messages through a cloud-API-compatible gateway.
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
	To   string   `json:"to"`
	Type string   `json:"type"`
	Text sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// gateway error codes for numbers that cannot ever receive a message
const (
	errCodeNotOnWhatsApp     = 131026
	errCodeInvalidNumber     = 131030
	errCodeRateLimited       = 130429
	errCodeServiceOverloaded = 131056
)

func (c *Client) Send(ctx context.Context, d entity.Delivery) (_ *entity.Receipt, err error) {
	ctx, span := c.ins.Tracer("notification.outbound.whatsapp").Start(ctx, "Send")
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
		Type: "text",
		Text: sendText{Body: d.Title + "\n\n" + d.Body},
	})
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	url := fmt.Sprintf("%s/v18.0/%s/messages", c.cfg.BaseURL, c.cfg.PhoneID)

	var out sendResponse

	b := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if rerr != nil {
			return goerror.NewServer(rerr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

		resp, rerr := c.client.Do(req)
		if rerr != nil {
			return retry.RetryableError(goerror.NewRetryable(rerr, goerror.CodeUnavailable))
		}
		defer resp.Body.Close()

		raw, rerr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if rerr != nil {
			return retry.RetryableError(goerror.NewRetryable(rerr, goerror.CodeUnavailable))
		}

		if rerr := json.Unmarshal(raw, &out); rerr != nil && resp.StatusCode < 500 {
			return goerror.NewRetryable(rerr, goerror.CodeProvider)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case out.Error.Code == errCodeNotOnWhatsApp || out.Error.Code == errCodeInvalidNumber:
			return goerror.NewPermanent(
				fmt.Errorf("whatsapp gateway rejected number %q: %s", d.Destinations[0], out.Error.Message),
				goerror.CodeInvalidDestination)
		case out.Error.Code == errCodeRateLimited || out.Error.Code == errCodeServiceOverloaded || resp.StatusCode >= 500:
			return goerror.NewRetryable(
				fmt.Errorf("whatsapp gateway returned %d (code %d): %s",
					resp.StatusCode, out.Error.Code, out.Error.Message),
				goerror.CodeProvider)
		default:
			return goerror.NewPermanent(
				fmt.Errorf("whatsapp gateway rejected request with %d (code %d): %s",
					resp.StatusCode, out.Error.Code, out.Error.Message),
				goerror.CodeProvider)
		}
	})
	if err != nil {
		return nil, err
	}

	if len(out.Messages) == 0 {
		return &entity.Receipt{}, nil
	}

	return &entity.Receipt{ProviderMessageID: out.Messages[0].ID}, nil
}
