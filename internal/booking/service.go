package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/carrental-bot/internal/catalog"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

var bookingTracer = otel.Tracer("carrental.internal.booking")

// Notifier is told about every created booking. Failures are logged and
// never fail the booking.
type Notifier interface {
	BookingCreated(ctx context.Context, b Booking) error
}

// Service creates and advances bookings.
type Service struct {
	repo     Repository
	catalog  catalog.Catalog
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// NewService constructs a booking service. notifier may be nil.
func NewService(repo Repository, cat catalog.Catalog, notifier Notifier, logger *logging.Logger) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if cat == nil {
		panic("booking: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Create books carID for the customer and marks the car unavailable.
// Nothing restores availability afterwards.
func (s *Service) Create(ctx context.Context, customerID, customerName, carID string, d Details) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("carrental.car_id", carID),
		attribute.String("carrental.package", string(d.Package)),
	)

	if !d.Valid || d.TotalDays <= 0 {
		return nil, ErrInvalidDetails
	}
	car, err := s.catalog.FindByID(ctx, carID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	total, deposit := Quote(car.PricePerDay, d.TotalDays)
	b := &Booking{
		ID:             s.nextID(now),
		CustomerID:     customerID,
		CustomerName:   customerName,
		CarID:          car.ID,
		CarName:        car.Name,
		Package:        d.Package,
		PickupDate:     d.PickupDate,
		ReturnDate:     d.ReturnDate,
		PickupLocation: d.PickupLocation,
		TotalDays:      d.TotalDays,
		DailyRate:      car.PricePerDay,
		TotalAmount:    total,
		Deposit:        deposit,
		Status:         StatusConfirmed,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: create: %w", err)
	}
	// The booking is already stored; an availability failure is only logged.
	if err := s.catalog.SetAvailability(ctx, car.ID, false); err != nil {
		span.RecordError(err)
		s.logger.Warn("failed to mark car unavailable", "booking_id", b.ID, "car_id", car.ID, "error", err)
	}
	span.SetAttributes(attribute.String("carrental.booking_id", b.ID))
	s.logger.Info("booking created", "booking_id", b.ID, "customer", customerID, "car_id", car.ID, "days", b.TotalDays, "total", b.TotalAmount)

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, *b); err != nil {
			s.logger.Warn("booking notification failed", "booking_id", b.ID, "error", err)
		}
	}
	return b, nil
}

// MarkPaid records the customer's payment confirmation. Repeated calls
// keep the first payment timestamp.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.mark_paid")
	defer span.End()
	span.SetAttributes(attribute.String("carrental.booking_id", id))

	b, err := s.repo.MarkPaid(ctx, id, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking paid", "booking_id", b.ID, "customer", b.CustomerID)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// nextID derives "BK<unix millis>", bumped when two bookings land in the
// same millisecond within this process.
func (s *Service) nextID(now time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	ms := now.UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return fmt.Sprintf("BK%d", ms)
}
