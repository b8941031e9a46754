package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carrental-bot/internal/conversation"
	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

type sentCall struct {
	kind     string
	to       string
	text     string
	buttons  []Button
	sections []Section
	label    string
	url      string
}

type fakeChannel struct {
	mu      sync.Mutex
	calls   []sentCall
	failFor map[string]error
}

func (c *fakeChannel) record(call sentCall) SendResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if err := c.failFor[call.kind]; err != nil {
		return SendResult{Err: err}
	}
	return SendResult{MessageID: "wamid.fake"}
}

func (c *fakeChannel) SendText(_ context.Context, to, text string) SendResult {
	return c.record(sentCall{kind: "text", to: to, text: text})
}

func (c *fakeChannel) SendButtons(_ context.Context, to, text string, buttons []Button, _, _ string) SendResult {
	return c.record(sentCall{kind: "buttons", to: to, text: text, buttons: buttons})
}

func (c *fakeChannel) SendList(_ context.Context, to, text, label string, sections []Section, _, _ string) SendResult {
	return c.record(sentCall{kind: "list", to: to, text: text, label: label, sections: sections})
}

func (c *fakeChannel) SendImage(_ context.Context, to, url, caption string) SendResult {
	return c.record(sentCall{kind: "image", to: to, url: url, text: caption})
}

func TestRendererSendsImagesBeforeBody(t *testing.T) {
	ch := &fakeChannel{}
	r := NewRenderer(ch, nil, logging.Discard())

	reply := conversation.Reply{
		Body: conversation.ButtonsBody{
			Text:    "SUV cars",
			Buttons: []conversation.Button{{ID: "car_suv_1", Title: "1. Toyota RAV4"}},
		},
		Images: []conversation.Image{
			{URL: "https://cdn/a.jpg", Caption: "A"},
			{URL: "https://cdn/b.jpg", Caption: "B"},
		},
		State: session.StateBrowsingCars,
	}
	require.NoError(t, r.Deliver(context.Background(), "2557", reply))

	require.Len(t, ch.calls, 3)
	assert.Equal(t, "image", ch.calls[0].kind)
	assert.Equal(t, "https://cdn/a.jpg", ch.calls[0].url)
	assert.Equal(t, "image", ch.calls[1].kind)
	assert.Equal(t, "buttons", ch.calls[2].kind)
	assert.Equal(t, []Button{{ID: "car_suv_1", Title: "1. Toyota RAV4"}}, ch.calls[2].buttons)
}

func TestRendererListAndText(t *testing.T) {
	ch := &fakeChannel{}
	r := NewRenderer(ch, nil, logging.Discard())

	list := conversation.Reply{Body: conversation.ListBody{
		Text:        "pick",
		ButtonLabel: "Select Option",
		Sections: []conversation.ListSection{{
			Title: "Options",
			Rows:  []conversation.ListRow{{ID: "economy", Title: "Economy", Description: "from TZS 2,500"}},
		}},
	}}
	require.NoError(t, r.Deliver(context.Background(), "2557", list))
	require.NoError(t, r.Deliver(context.Background(), "2557", conversation.Reply{Body: conversation.TextBody{Text: "plain"}}))

	require.Len(t, ch.calls, 2)
	assert.Equal(t, "list", ch.calls[0].kind)
	assert.Equal(t, "Select Option", ch.calls[0].label)
	assert.Equal(t, []Section{{Title: "Options", Rows: []Row{{ID: "economy", Title: "Economy", Description: "from TZS 2,500"}}}}, ch.calls[0].sections)
	assert.Equal(t, "text", ch.calls[1].kind)
	assert.Equal(t, "plain", ch.calls[1].text)
}

func TestRendererImageFailureStillSendsBody(t *testing.T) {
	ch := &fakeChannel{failFor: map[string]error{"image": errors.New("bad link")}}
	reg := prometheus.NewRegistry()
	r := NewRenderer(ch, metrics.NewBotMetrics(reg), logging.Discard())

	reply := conversation.Reply{
		Body:   conversation.TextBody{Text: "details"},
		Images: []conversation.Image{{URL: "https://cdn/x.jpg"}},
	}
	err := r.Deliver(context.Background(), "2557", reply)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad link")
	require.Len(t, ch.calls, 2)
	assert.Equal(t, "text", ch.calls[1].kind)

	expected := `
# HELP carrental_bot_outbound_total Total outbound WhatsApp sends
# TYPE carrental_bot_outbound_total counter
carrental_bot_outbound_total{kind="image",status="failed"} 1
carrental_bot_outbound_total{kind="text",status="sent"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "carrental_bot_outbound_total"))
}

func TestRendererDisabledChannel(t *testing.T) {
	r := NewRenderer(NewClient(Config{}), nil, logging.Discard())
	err := r.Deliver(context.Background(), "2557", conversation.Reply{Body: conversation.TextBody{Text: "hi"}})
	assert.ErrorIs(t, err, ErrChannelDisabled)
}

func TestSendHandler(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		failWith   error
		wantCode   int
		wantStatus string
		wantSends  int
	}{
		{"sends text", `{"phone":"2557","message":"Your car is ready"}`, nil, http.StatusOK, "sent", 1},
		{"missing phone", `{"message":"hello"}`, nil, http.StatusBadRequest, "error", 0},
		{"missing message", `{"phone":"2557"}`, nil, http.StatusBadRequest, "error", 0},
		{"invalid json", `not json`, nil, http.StatusBadRequest, "error", 0},
		{"channel failure", `{"phone":"2557","message":"hi"}`, ErrChannelDisabled, http.StatusInternalServerError, "error", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &fakeChannel{failFor: map[string]error{"text": tc.failWith}}
			h := NewSendHandler(ch, nil, logging.Discard())

			req := httptest.NewRequest(http.MethodPost, "/api/send-whatsapp", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			h.HandleSend(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantStatus, decodeStatus(t, rec))
			assert.Len(t, ch.calls, tc.wantSends)
		})
	}
}
