// Command webhook-lambda relays WhatsApp webhook traffic from API Gateway to
// the bot API so the public endpoint survives API restarts and deploys.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/carrental-bot/pkg/logging"
)

const (
	webhookPath      = "/webhook"
	maxRelayResponse = 64 << 10
)

type config struct {
	upstreamBaseURL string
	upstreamTimeout time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		upstreamBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL")), "/"),
		upstreamTimeout: 5 * time.Second,
	}
	if cfg.upstreamBaseURL == "" {
		return config{}, errors.New("UPSTREAM_BASE_URL is required")
	}
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.upstreamTimeout = d
	}
	return cfg, nil
}

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid relay configuration", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.upstreamTimeout}
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := handle(ctx, cfg, client, evt)
		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Warn("webhook relay failed", "status", resp.StatusCode, "path", evt.RawPath)
		}
		return resp, err
	})
}

func handle(ctx context.Context, cfg config, client *http.Client, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if path != webhookPath {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	// GET is Meta's subscription handshake, POST carries messages.
	if method != http.MethodGet && method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	var body io.Reader
	if method == http.MethodPost {
		raw, err := decodeBody(evt)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
		}
		body = bytes.NewReader(raw)
	}

	upstreamURL := cfg.upstreamBaseURL + path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		upstreamURL += "?" + qs
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, upstreamURL, body)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	in := canonicalHeaders(evt.Headers)
	// The API verifies the payload signature against the raw body.
	for _, name := range forwardedHeaders {
		if v := in.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := client.Do(req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadGateway, Body: "upstream error"}, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponse))
	out := events.APIGatewayV2HTTPResponse{StatusCode: resp.StatusCode, Body: string(respBody)}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		out.Headers = map[string]string{"content-type": ct}
	}
	return out, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

var forwardedHeaders = []string{"Content-Type", "X-Hub-Signature-256"}

// canonicalHeaders turns API Gateway's lower-cased header map into an
// http.Header so lookups are case-insensitive.
func canonicalHeaders(raw map[string]string) http.Header {
	h := make(http.Header, len(raw))
	for k, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			h.Set(k, v)
		}
	}
	return h
}
