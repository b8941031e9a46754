package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carrental-bot/internal/booking"
	"github.com/wolfman30/carrental-bot/internal/catalog"
	appconfig "github.com/wolfman30/carrental-bot/internal/config"
	"github.com/wolfman30/carrental-bot/internal/events"
	"github.com/wolfman30/carrental-bot/internal/notify"
	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

const (
	sessionBackendRedis = "redis"
	emailProviderSES    = "ses"
	emailProviderLog    = "log"
)

// BuildSessionStore picks the Redis store when configured and reachable.
// The returned *session.MemoryStore is non-nil only for the memory backend
// so the caller can run its janitor.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (session.Store, *session.MemoryStore) {
	if cfg.SessionBackend == sessionBackendRedis {
		if redisClient != nil {
			logger.Info("session store: redis", "ttl", cfg.SessionTTL.String())
			return session.NewRedisStore(redisClient, cfg.SessionTTL), nil
		}
		logger.Warn("session store: redis requested but unavailable, falling back to memory")
	}
	mem := session.NewMemoryStore(cfg.SessionTTL)
	logger.Info("session store: memory", "ttl", cfg.SessionTTL.String())
	return mem, mem
}

// LoadCars reads the seed listing from CATALOG_FILE (a local path or an
// s3://bucket/key URL), or the built-in fleet.
func LoadCars(ctx context.Context, cfg *appconfig.Config, objects catalog.ObjectGetter) ([]catalog.Car, error) {
	if bucket, key, ok := catalog.ParseS3URL(cfg.CatalogFile); ok {
		cars, err := catalog.LoadS3(ctx, objects, bucket, key, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load catalog: %w", err)
		}
		return cars, nil
	}
	if path := strings.TrimSpace(cfg.CatalogFile); path != "" {
		cars, err := catalog.LoadFile(path, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load catalog: %w", err)
		}
		return cars, nil
	}
	return catalog.DefaultCars(cfg.PublicBaseURL), nil
}

// BuildCatalog seeds and returns the Postgres catalog when a pool is
// present, otherwise an in-memory one.
func BuildCatalog(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, objects catalog.ObjectGetter, logger *logging.Logger) (catalog.Catalog, error) {
	cars, err := LoadCars(ctx, cfg, objects)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		pg := catalog.NewPostgresCatalog(pool)
		if err := pg.Seed(ctx, cars); err != nil {
			return nil, fmt.Errorf("bootstrap: seed catalog: %w", err)
		}
		logger.Info("catalog: postgres", "seeded", len(cars))
		return pg, nil
	}
	mem, err := catalog.NewMemoryCatalog(cars)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build catalog: %w", err)
	}
	logger.Info("catalog: memory", "cars", len(cars))
	return mem, nil
}

func BuildBookingRepository(pool *pgxpool.Pool) booking.Repository {
	if pool != nil {
		return booking.NewPostgresRepository(pool)
	}
	return booking.NewMemoryRepository()
}

// Deduper is a processed-id store that can also forget old ids.
type Deduper interface {
	events.Deduper
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func BuildDeduper(cfg *appconfig.Config, pool *pgxpool.Pool) Deduper {
	if pool != nil {
		return events.NewProcessedStore(pool)
	}
	return events.NewMemoryDeduper(cfg.DedupeTTL)
}

// BuildNotifier returns nil unless an email transport and a recipient are
// configured. EMAIL_PROVIDER=ses uses the SES client, log only writes the
// message to the logger, anything else SendGrid.
func BuildNotifier(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) booking.Notifier {
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case emailProviderLog:
		sender = notify.NewStubEmailSender(logger)
	case emailProviderSES:
		from := cfg.SESFromEmail
		if from == "" {
			from = cfg.SendGridFromEmail
		}
		if s := notify.NewSESSender(ses, notify.SESConfig{FromEmail: from, FromName: cfg.SendGridFromName}, logger); s != nil {
			sender = s
		}
	default:
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			sender = s
		}
	}
	if sender == nil {
		return nil
	}
	n := notify.NewBookingNotifier(sender, cfg.BookingNotifyEmail, logger)
	if n == nil {
		return nil
	}
	logger.Info("booking notifications enabled", "to", cfg.BookingNotifyEmail, "provider", cfg.EmailProvider)
	return n
}
