package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/carrental-bot/internal/conversation"
	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// Webhook status tags returned in the JSON acknowledgement.
const (
	StatusProcessed        = "processed"
	StatusIgnoredBadFormat = "ignored_bad_format"
	StatusIgnoredEvent     = "ignored_event"
	StatusIgnoredNoMessage = "ignored_no_message"
	StatusIgnoredDuplicate = "ignored_duplicate"
	StatusError            = "error"
	StatusUnauthorized     = "unauthorized"
)

const maxWebhookBody = 1 << 20

// MessageProcessor runs one conversational turn.
type MessageProcessor interface {
	Process(ctx context.Context, msg conversation.InboundMessage) (conversation.Reply, error)
}

// WebhookHandler handles Meta webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	processor   MessageProcessor
	metrics     *metrics.BotMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates a webhook handler. appSecret may be empty, in
// which case signatures are not checked.
func NewWebhookHandler(verifyToken, appSecret string, processor MessageProcessor, m *metrics.BotMetrics, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: strings.TrimSpace(verifyToken),
		appSecret:   strings.TrimSpace(appSecret),
		processor:   processor,
		metrics:     m,
		logger:      logger,
	}
}

// HandleVerification answers Meta's GET subscription challenge.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "" && mode != "subscribe" {
		h.logger.Warn("webhook verification rejected", "reason", "mode", "mode", mode)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !tokensMatch(h.verifyToken, token) {
		h.logger.Warn("webhook verification rejected", "reason", "token")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	h.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, challenge)
}

// HandleInbound processes one POSTed webhook delivery. Every ignorable
// delivery is acknowledged with 200 so Meta does not redeliver it.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status, code := h.handleInbound(r)
	h.metrics.ObserveInbound(status)
	h.metrics.ObserveWebhookLatency(status, time.Since(start).Seconds())
	writeStatus(w, code, status)
}

func (h *WebhookHandler) handleInbound(r *http.Request) (string, int) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("webhook body unreadable", "error", err)
		return StatusIgnoredBadFormat, http.StatusOK
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.logger.Warn("webhook signature invalid")
		return StatusUnauthorized, http.StatusUnauthorized
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("webhook payload malformed", "error", err)
		return StatusIgnoredBadFormat, http.StatusOK
	}

	msg, outcome := ExtractMessage(payload)
	switch outcome {
	case ExtractStatusEvent:
		h.logger.Debug("webhook status event ignored")
		return StatusIgnoredEvent, http.StatusOK
	case ExtractNoMessage:
		h.logger.Debug("webhook carried no message")
		return StatusIgnoredNoMessage, http.StatusOK
	}

	h.logger.Info("whatsapp message received",
		"from", msg.From,
		"message_id", msg.ID,
		"kind", string(msg.Kind),
	)
	if _, err := h.processor.Process(r.Context(), msg); err != nil {
		if errors.Is(err, conversation.ErrDuplicateMessage) {
			h.logger.Info("duplicate whatsapp message ignored", "message_id", msg.ID)
			return StatusIgnoredDuplicate, http.StatusOK
		}
		h.logger.Error("failed to process whatsapp message", "from", msg.From, "message_id", msg.ID, "error", err)
		return StatusError, http.StatusInternalServerError
	}
	return StatusProcessed, http.StatusOK
}

// VerifySignature checks an X-Hub-Signature-256 header ("sha256=<hex>").
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	got, err := hex.DecodeString(signature[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// tokensMatch compares digests so timing does not leak the token length.
// An unset expected token never matches.
func tokensMatch(expected, got string) bool {
	if expected == "" {
		return false
	}
	a := sha256.Sum256([]byte(expected))
	b := sha256.Sum256([]byte(got))
	return hmac.Equal(a[:], b[:])
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	writeJSON(w, code, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
