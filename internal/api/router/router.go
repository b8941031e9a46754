package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/carrental-bot/internal/http/middleware"
	"github.com/wolfman30/carrental-bot/internal/whatsapp"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger  *logging.Logger
	Webhook *whatsapp.WebhookHandler
	Send    *whatsapp.SendHandler

	// OperatorSecret protects the frontend send route when set.
	OperatorSecret     string
	WebhookLimiter     *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	ChannelEnabled     bool
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthHandler(cfg.ChannelEnabled))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Webhook != nil {
		r.Route("/webhook", func(wh chi.Router) {
			if cfg.WebhookLimiter != nil {
				wh.Use(httpmiddleware.RateLimit(cfg.WebhookLimiter, cfg.Logger))
			}
			wh.Get("/", cfg.Webhook.HandleVerification)
			wh.Post("/", cfg.Webhook.HandleInbound)
		})
	}

	if cfg.Send != nil {
		r.Group(func(op chi.Router) {
			if cfg.OperatorSecret != "" {
				op.Use(httpmiddleware.OperatorJWT(cfg.OperatorSecret))
			}
			op.Post("/api/send-whatsapp", cfg.Send.HandleSend)
		})
	}

	return r
}

type healthResponse struct {
	Status         string `json:"status"`
	ChannelEnabled bool   `json:"channel_enabled"`
}

func healthHandler(channelEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", ChannelEnabled: channelEnabled})
	}
}
