package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// ErrDuplicateMessage is returned when a provider message id was already handled.
var ErrDuplicateMessage = errors.New("conversation: duplicate message")

// Outbound renders a reply to a customer.
type Outbound interface {
	Deliver(ctx context.Context, to string, reply Reply) error
}

// Deduper remembers provider message ids.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

const dedupeProvider = "whatsapp"

// Processor serializes turns per customer, runs the engine and delivers
// the reply. Delivery failures are logged, never returned.
type Processor struct {
	engine   *Engine
	outbound Outbound
	locker   *session.Locker
	deduper  Deduper
	logger   *logging.Logger
}

// NewProcessor wires the turn pipeline. deduper may be nil.
func NewProcessor(engine *Engine, outbound Outbound, locker *session.Locker, deduper Deduper, logger *logging.Logger) *Processor {
	if engine == nil || outbound == nil {
		panic("conversation: engine and outbound required")
	}
	if locker == nil {
		locker = session.NewLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{engine: engine, outbound: outbound, locker: locker, deduper: deduper, logger: logger}
}

// Process handles one inbound message to completion, including delivery.
func (p *Processor) Process(ctx context.Context, msg InboundMessage) (Reply, error) {
	unlock := p.locker.Lock(msg.From)
	defer unlock()

	if p.deduper != nil && msg.ID != "" {
		seen, err := p.deduper.AlreadyProcessed(ctx, dedupeProvider, msg.ID)
		if err != nil {
			return Reply{}, fmt.Errorf("conversation: dedupe check: %w", err)
		}
		if seen {
			return Reply{}, ErrDuplicateMessage
		}
	}

	reply, err := p.engine.Handle(ctx, msg)
	if err != nil {
		return Reply{}, err
	}

	if p.deduper != nil && msg.ID != "" {
		if _, err := p.deduper.MarkProcessed(ctx, dedupeProvider, msg.ID); err != nil {
			p.logger.Warn("failed to record processed message", "message_id", msg.ID, "error", err)
		}
	}

	// sends are not tied to the inbound request's lifetime
	if err := p.outbound.Deliver(context.WithoutCancel(ctx), msg.From, reply); err != nil {
		p.logger.Error("reply delivery failed", "customer", msg.From, "state", reply.State, "error", err)
	}
	return reply, nil
}
