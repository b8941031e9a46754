package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/carrental-bot/internal/conversation"
	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// Renderer turns conversation replies into Cloud API sends.
type Renderer struct {
	channel Channel
	metrics *metrics.BotMetrics
	logger  *logging.Logger
}

func NewRenderer(channel Channel, m *metrics.BotMetrics, logger *logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Renderer{channel: channel, metrics: m, logger: logger}
}

// Deliver sends the reply's images in order, then its body. A failed image
// does not stop the body from being sent; all failures are returned joined.
func (r *Renderer) Deliver(ctx context.Context, to string, reply conversation.Reply) error {
	var errs []error
	for _, img := range reply.Images {
		res := r.channel.SendImage(ctx, to, img.URL, img.Caption)
		r.record("image", to, res)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("image %s: %w", img.URL, res.Err))
		}
	}

	var res SendResult
	kind := reply.Kind()
	switch body := reply.Body.(type) {
	case conversation.ButtonsBody:
		res = r.channel.SendButtons(ctx, to, body.Text, toButtons(body.Buttons), body.Header, body.Footer)
	case conversation.ListBody:
		res = r.channel.SendList(ctx, to, body.Text, body.ButtonLabel, toSections(body.Sections), body.Header, body.Footer)
	case conversation.TextBody:
		res = r.channel.SendText(ctx, to, body.Text)
	default:
		res = SendResult{Err: errors.New("whatsapp: reply has no body")}
	}
	r.record(kind, to, res)
	if res.Err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", kind, res.Err))
	}
	return errors.Join(errs...)
}

func (r *Renderer) record(kind, to string, res SendResult) {
	r.metrics.ObserveOutbound(kind, res.OK())
	if res.OK() {
		r.logger.Debug("whatsapp message sent", "kind", kind, "to", to, "message_id", res.MessageID)
		return
	}
	if errors.Is(res.Err, ErrChannelDisabled) {
		r.logger.Debug("whatsapp channel disabled, reply dropped", "kind", kind, "to", to)
		return
	}
	r.logger.Warn("whatsapp send failed", "kind", kind, "to", to, "error", res.Err)
}

func toButtons(in []conversation.Button) []Button {
	out := make([]Button, 0, len(in))
	for _, b := range in {
		out = append(out, Button{ID: b.ID, Title: b.Title})
	}
	return out
}

func toSections(in []conversation.ListSection) []Section {
	out := make([]Section, 0, len(in))
	for _, s := range in {
		rows := make([]Row, 0, len(s.Rows))
		for _, row := range s.Rows {
			rows = append(rows, Row{ID: row.ID, Title: row.Title, Description: row.Description})
		}
		out = append(out, Section{Title: s.Title, Rows: rows})
	}
	return out
}
