package whatsapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponseBody struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendHandler lets operators push a single text message to a customer.
type SendHandler struct {
	channel Channel
	metrics *metrics.BotMetrics
	logger  *logging.Logger
}

func NewSendHandler(channel Channel, m *metrics.BotMetrics, logger *logging.Logger) *SendHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendHandler{channel: channel, metrics: m, logger: logger}
}

// HandleSend accepts {phone, message}. Missing fields are a 400; a failed
// or disabled channel is a 500.
func (h *SendHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponseBody{Status: "error", Error: "invalid JSON body"})
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, sendResponseBody{Status: "error", Error: "Missing data"})
		return
	}

	res := h.channel.SendText(r.Context(), req.Phone, req.Message)
	h.metrics.ObserveOutbound("text", res.OK())
	if res.Err != nil {
		h.logger.Error("frontend send failed", "to", req.Phone, "error", res.Err)
		msg := "send failed"
		if errors.Is(res.Err, ErrChannelDisabled) {
			msg = "whatsapp channel not configured"
		}
		writeJSON(w, http.StatusInternalServerError, sendResponseBody{Status: "error", Error: msg})
		return
	}
	h.logger.Info("frontend send delivered", "to", req.Phone, "message_id", res.MessageID)
	writeJSON(w, http.StatusOK, sendResponseBody{Status: "sent", MessageID: res.MessageID})
}
