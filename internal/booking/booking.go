package booking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status values move forward only.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
)

var (
	// ErrBookingNotFound is returned when a booking id is unknown
	ErrBookingNotFound = errors.New("booking: not found")

	// ErrDuplicateBooking is returned when an id is already taken
	ErrDuplicateBooking = errors.New("booking: duplicate id")

	// ErrInvalidDetails is returned when rental details did not parse
	ErrInvalidDetails = errors.New("booking: invalid details")
)

// Booking is a created rental.
type Booking struct {
	ID             string     `json:"id"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name"`
	CarID          string     `json:"car_id"`
	CarName        string     `json:"car_name"`
	Package        Package    `json:"package"`
	PickupDate     string     `json:"pickup_date"`
	ReturnDate     string     `json:"return_date"`
	PickupLocation string     `json:"pickup_location"`
	TotalDays      int        `json:"total_days"`
	DailyRate      int        `json:"daily_rate"`
	TotalAmount    int        `json:"total_amount"`
	Deposit        int        `json:"deposit"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

// Repository persists bookings.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Booking, error)
	// MarkPaid moves a confirmed booking to paid and returns the stored row.
	// Already-paid bookings are returned unchanged.
	MarkPaid(ctx context.Context, id string, at time.Time) (*Booking, error)
}

// MemoryRepository keeps bookings in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Booking
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Booking)}
}

func (r *MemoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[b.ID]; ok {
		return ErrDuplicateBooking
	}
	cp := *b
	r.byID[b.ID] = &cp
	r.order = append(r.order, b.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Booking
	for _, id := range r.order {
		if b := r.byID[id]; b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkPaid(_ context.Context, id string, at time.Time) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.Status != StatusPaid {
		paidAt := at
		b.Status = StatusPaid
		b.PaidAt = &paidAt
	}
	cp := *b
	return &cp, nil
}
