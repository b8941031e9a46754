package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/carrental-bot/pkg/logging"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second
	defaultBackoff      = 500 * time.Millisecond

	maxButtons          = 3
	maxButtonTitle      = 20
	maxRowTitle         = 24
	maxRowDescription   = 72
	maxListButtonLabel  = 20
	maxSectionTitle     = 24
	maxHeaderText       = 60
	maxFooterText       = 60
	maxInteractiveBody  = 1024
	maxTextBody         = 4096
	maxImageCaption     = 1024
	messagingProduct    = "whatsapp"
	recipientIndividual = "individual"
)

var whatsappTracer = otel.Tracer("carrental.internal.whatsapp")

// ErrChannelDisabled is returned for every send when credentials are missing.
var ErrChannelDisabled = errors.New("whatsapp: channel not configured")

// SendResult is the outcome of one send. Exactly one of MessageID or Err is set.
type SendResult struct {
	MessageID string
	Err       error
}

func (r SendResult) OK() bool { return r.Err == nil }

// Channel is an outbound messaging transport. Implementations report
// failures through SendResult and never panic.
type Channel interface {
	SendText(ctx context.Context, to, text string) SendResult
	SendButtons(ctx context.Context, to, text string, buttons []Button, header, footer string) SendResult
	SendList(ctx context.Context, to, text, buttonLabel string, sections []Section, header, footer string) SendResult
	SendImage(ctx context.Context, to, url, caption string) SendResult
}

// Config controls how the Cloud API client behaves.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
	// MaxRetries of 0 sends once and reports the failure.
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client sends messages via the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	backoff       time.Duration
	logger        *logging.Logger
}

// NewClient never fails: without credentials it returns a disabled client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGraphAPIBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		baseURL:       baseURL,
		httpClient:    httpClient,
		maxRetries:    maxRetries,
		backoff:       backoff,
		logger:        logger,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.accessToken != "" && c.phoneNumberID != ""
}

func (c *Client) SendText(ctx context.Context, to, text string) SendResult {
	return c.send(ctx, outboundMessage{
		To:   to,
		Type: "text",
		Text: &textObject{Body: truncate(text, maxTextBody)},
	})
}

// SendButtons sends at most three reply buttons; extra buttons are dropped
// and titles are cut to 20 characters.
func (c *Client) SendButtons(ctx context.Context, to, text string, buttons []Button, header, footer string) SendResult {
	if len(buttons) == 0 {
		return SendResult{Err: errors.New("whatsapp: at least one button required")}
	}
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}
	formatted := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		formatted = append(formatted, replyButton{
			Type:  "reply",
			Reply: Button{ID: b.ID, Title: truncate(b.Title, maxButtonTitle)},
		})
	}
	return c.send(ctx, outboundMessage{
		To:   to,
		Type: "interactive",
		Interactive: &interactive{
			Type:   "button",
			Header: headerField(header),
			Body:   textField{Text: truncate(text, maxInteractiveBody)},
			Footer: footerField(footer),
			Action: action{Buttons: formatted},
		},
	})
}

// SendList cuts row titles to 24 and descriptions to 72 characters.
func (c *Client) SendList(ctx context.Context, to, text, buttonLabel string, sections []Section, header, footer string) SendResult {
	if len(sections) == 0 {
		return SendResult{Err: errors.New("whatsapp: at least one list section required")}
	}
	formatted := make([]Section, 0, len(sections))
	for _, s := range sections {
		rows := make([]Row, 0, len(s.Rows))
		for _, r := range s.Rows {
			rows = append(rows, Row{
				ID:          r.ID,
				Title:       truncate(r.Title, maxRowTitle),
				Description: truncate(r.Description, maxRowDescription),
			})
		}
		formatted = append(formatted, Section{Title: truncate(s.Title, maxSectionTitle), Rows: rows})
	}
	return c.send(ctx, outboundMessage{
		To:   to,
		Type: "interactive",
		Interactive: &interactive{
			Type:   "list",
			Header: headerField(header),
			Body:   textField{Text: truncate(text, maxInteractiveBody)},
			Footer: footerField(footer),
			Action: action{Button: truncate(buttonLabel, maxListButtonLabel), Sections: formatted},
		},
	})
}

func (c *Client) SendImage(ctx context.Context, to, url, caption string) SendResult {
	return c.send(ctx, outboundMessage{
		To:    to,
		Type:  "image",
		Image: &imageObject{Link: url, Caption: truncate(caption, maxImageCaption)},
	})
}

func (c *Client) send(ctx context.Context, msg outboundMessage) SendResult {
	if !c.Enabled() {
		return SendResult{Err: ErrChannelDisabled}
	}
	ctx, span := whatsappTracer.Start(ctx, "whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("whatsapp.type", msg.Type))

	msg.MessagingProduct = messagingProduct
	msg.RecipientType = recipientIndividual
	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return SendResult{Err: fmt.Errorf("whatsapp: marshal send request: %w", err)}
	}

	data, err := c.invoke(ctx, body)
	if err != nil {
		span.RecordError(err)
		return SendResult{Err: err}
	}
	var resp sendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		span.RecordError(err)
		return SendResult{Err: fmt.Errorf("whatsapp: decode response: %w", err)}
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return SendResult{Err: errors.New("whatsapp: response carried no message id")}
	}
	return SendResult{MessageID: resp.Messages[0].ID}
}

func (c *Client) invoke(ctx context.Context, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("whatsapp: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			apiErr := &APIError{Err: err}
			if !apiErr.Retryable() || attempt == c.maxRetries {
				return nil, apiErr
			}
			lastErr = apiErr
			c.logRetry(attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("whatsapp: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && apiErr.Retryable() {
			lastErr = apiErr
			c.logRetry(attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("whatsapp: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(attempt int, status int, err error) {
	c.logger.Warn("whatsapp retry",
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

// APIError describes a failed Cloud API call. Err is set for transport
// failures, StatusCode for HTTP failures.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("whatsapp: http error: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("whatsapp: %s (status=%d code=%d)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("whatsapp: http status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable is true for network failures, 429 and 5xx. Other 4xx
// responses mean the payload was rejected and will fail again.
func (e *APIError) Retryable() bool {
	if e.Err != nil {
		var netErr net.Error
		if errors.As(e.Err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(e.Err, context.Canceled)
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

func decodeAPIError(status int, body []byte) *APIError {
	var env graphErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{
		StatusCode: status,
		Code:       env.Error.Code,
		Type:       env.Error.Type,
		Message:    env.Error.Message,
	}
}

func headerField(text string) *interactiveHdr {
	if text == "" {
		return nil
	}
	return &interactiveHdr{Type: "text", Text: truncate(text, maxHeaderText)}
}

func footerField(text string) *textField {
	if text == "" {
		return nil
	}
	return &textField{Text: truncate(text, maxFooterText)}
}

// truncate cuts s to n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
