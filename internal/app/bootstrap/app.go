package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carrental-bot/internal/api/router"
	"github.com/wolfman30/carrental-bot/internal/booking"
	"github.com/wolfman30/carrental-bot/internal/catalog"
	appconfig "github.com/wolfman30/carrental-bot/internal/config"
	"github.com/wolfman30/carrental-bot/internal/conversation"
	httpmiddleware "github.com/wolfman30/carrental-bot/internal/http/middleware"
	"github.com/wolfman30/carrental-bot/internal/notify"
	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/internal/whatsapp"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// App is the wired bot: HTTP handler plus the background upkeep it needs.
type App struct {
	Handler   http.Handler
	Channel   *whatsapp.Client
	Processor *conversation.Processor

	sessions *session.MemoryStore
	deduper  Deduper
	dedupTTL time.Duration
	logger   *logging.Logger
}

// Deps are externally owned connections. Any may be nil.
type Deps struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	S3       catalog.ObjectGetter
	SES      notify.SESAPI
	// Registry defaults to a fresh registry so repeated builds don't collide.
	Registry *prometheus.Registry
}

// Build wires every component from cfg.
func Build(ctx context.Context, cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	botMetrics := metrics.NewBotMetrics(reg)

	store, memSessions := BuildSessionStore(cfg, deps.Redis, logger)
	cat, err := BuildCatalog(ctx, cfg, deps.Postgres, deps.S3, logger)
	if err != nil {
		return nil, err
	}
	bookings := booking.NewService(BuildBookingRepository(deps.Postgres), cat, BuildNotifier(cfg, deps.SES, logger), logger)
	engine := conversation.NewEngine(store, cat, bookings, logger, conversation.WithMetrics(botMetrics))

	client := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		BaseURL:       cfg.WhatsAppAPIBase,
		Timeout:       cfg.WhatsAppHTTPTimeout,
		MaxRetries:    cfg.WhatsAppMaxRetries,
		Backoff:       cfg.WhatsAppRetryBackoff,
		Logger:        logger,
	})
	if !client.Enabled() {
		logger.Warn("whatsapp credentials missing, replies will be dropped")
	}

	deduper := BuildDeduper(cfg, deps.Postgres)
	processor := conversation.NewProcessor(
		engine,
		whatsapp.NewRenderer(client, botMetrics, logger),
		session.NewLocker(),
		deduper,
		logger,
	)

	var limiter *httpmiddleware.RateLimiter
	if cfg.WebhookRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.WebhookRateLimitRPS, cfg.WebhookRateLimitBurst)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		Webhook:            whatsapp.NewWebhookHandler(cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, processor, botMetrics, logger),
		Send:               whatsapp.NewSendHandler(client, botMetrics, logger),
		OperatorSecret:     cfg.AdminJWTSecret,
		WebhookLimiter:     limiter,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChannelEnabled:     client.Enabled(),
	})

	return &App{
		Handler:   handler,
		Channel:   client,
		Processor: processor,
		sessions:  memSessions,
		deduper:   deduper,
		dedupTTL:  cfg.DedupeTTL,
		logger:    logger,
	}, nil
}

// RunMaintenance evicts idle in-memory sessions and forgets old message ids
// every interval until ctx is done.
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if a.sessions != nil {
		go a.sessions.RunJanitor(ctx, interval)
	}
	if a.deduper == nil || a.dedupTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purgeProcessed(ctx)
		}
	}
}

func (a *App) purgeProcessed(ctx context.Context) {
	n, err := a.deduper.PurgeBefore(ctx, time.Now().Add(-a.dedupTTL))
	if err != nil {
		a.logger.Warn("failed to purge processed message ids", "error", err)
		return
	}
	if n > 0 {
		a.logger.Debug("purged processed message ids", "count", n)
	}
}
