package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

type delivery struct {
	to    string
	reply Reply
}

type fakeOutbound struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
	ctxErr     error
}

func (o *fakeOutbound) Deliver(ctx context.Context, to string, reply Reply) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, delivery{to: to, reply: reply})
	o.ctxErr = ctx.Err()
	return o.err
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) AlreadyProcessed(_ context.Context, provider, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[provider+":"+id], nil
}

func (d *memDeduper) MarkProcessed(_ context.Context, provider, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	key := provider + ":" + id
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func TestProcessorDeliversReply(t *testing.T) {
	f := newFixture(t)
	out := &fakeOutbound{}
	p := NewProcessor(f.engine, out, nil, nil, logging.Discard())

	reply, err := p.Process(context.Background(), InboundMessage{From: customer, Name: "Asha", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, session.StateMainMenu, reply.State)
	require.Len(t, out.deliveries, 1)
	assert.Equal(t, customer, out.deliveries[0].to)
	assert.Equal(t, reply, out.deliveries[0].reply)
}

func TestProcessorDeliveryFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t)
	out := &fakeOutbound{err: errors.New("channel disabled")}
	p := NewProcessor(f.engine, out, nil, nil, logging.Discard())

	reply, err := p.Process(context.Background(), InboundMessage{From: customer, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, session.StateMainMenu, reply.State)
	assert.Equal(t, session.StateMainMenu, f.session(t, customer).State)
}

func TestProcessorDeliveryOutlivesRequestContext(t *testing.T) {
	f := newFixture(t)
	out := &fakeOutbound{}
	p := NewProcessor(f.engine, out, nil, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := p.Process(ctx, InboundMessage{From: customer, Text: "hello"})
	require.NoError(t, err)
	cancel()
	assert.NoError(t, out.ctxErr)
}

func TestProcessorDeduplicates(t *testing.T) {
	f := newFixture(t)
	out := &fakeOutbound{}
	p := NewProcessor(f.engine, out, nil, &memDeduper{}, logging.Discard())
	msg := InboundMessage{ID: "wamid.1", From: customer, Text: "hello"}

	_, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), msg)
	assert.ErrorIs(t, err, ErrDuplicateMessage)

	assert.Len(t, out.deliveries, 1)
	assert.Equal(t, 1, f.session(t, customer).MessageCount)
}

func TestProcessorSerializesSameCustomer(t *testing.T) {
	f := newFixture(t)
	out := &fakeOutbound{}
	p := NewProcessor(f.engine, out, session.NewLocker(), nil, logging.Discard())

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Process(context.Background(), InboundMessage{From: customer, Text: "zzz"})
			assert.NoError(t, err)
		}()
	}
	// a second customer proceeds independently
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := p.Process(context.Background(), InboundMessage{From: "other", Text: "hello"})
		assert.NoError(t, err)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("processing did not finish")
	}

	assert.Equal(t, n, f.session(t, customer).MessageCount, "no lost updates")
	assert.Equal(t, 1, f.session(t, "other").MessageCount)
}
