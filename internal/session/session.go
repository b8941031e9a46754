package session

import (
	"context"
	"errors"
	"time"
)

// State is a node in the conversation state machine.
type State string

const (
	StateStart               State = "start"
	StateMainMenu            State = "main_menu"
	StateSelectingCategory   State = "selecting_category"
	StateBrowsingCars        State = "browsing_cars"
	StateViewingCar          State = "viewing_car"
	StateBookingForm         State = "booking_form"
	StatePaymentPending      State = "payment_pending"
	StatePaymentInstructions State = "payment_instructions"
	StateBookingComplete     State = "booking_complete"
	StateCheckingPrices      State = "checking_prices"
	StateViewingBookings     State = "viewing_bookings"
	StateGettingHelp         State = "getting_help"
)

// ErrEmptyCustomerID is returned when a lookup has no key.
var ErrEmptyCustomerID = errors.New("session: customer id required")

// Session is the per-customer conversation state.
type Session struct {
	CustomerID       string            `json:"customer_id"`
	State            State             `json:"state"`
	MessageCount     int               `json:"message_count"`
	LastMessage      string            `json:"last_message"`
	SelectedCategory string            `json:"selected_category,omitempty"`
	SelectedCar      string            `json:"selected_car,omitempty"`
	CurrentBooking   string            `json:"current_booking,omitempty"`
	Preferences      map[string]string `json:"preferences,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// New returns a fresh session in the start state.
func New(customerID string, now time.Time) *Session {
	return &Session{
		CustomerID:  customerID,
		State:       StateStart,
		Preferences: map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Preferences = make(map[string]string, len(s.Preferences))
	for k, v := range s.Preferences {
		cp.Preferences[k] = v
	}
	return &cp
}

// Store is keyed by customer address only. Callers serialize access per
// customer with a Locker; stores only guarantee their own map/key safety.
type Store interface {
	GetOrCreate(ctx context.Context, customerID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}
