package intent

import (
	"strconv"
	"strings"

	"github.com/wolfman30/carrental-bot/internal/catalog"
)

// Kind is the symbolic classification of an inbound message.
type Kind string

const (
	KindButtonClick         Kind = "button_click"
	KindGreeting            Kind = "greeting"
	KindCatalogRequest      Kind = "catalog_request"
	KindCarSelection        Kind = "car_selection"
	KindBookingRequest      Kind = "booking_request"
	KindBookingDetails      Kind = "booking_details"
	KindPaymentRequest      Kind = "payment_request"
	KindPaymentConfirmation Kind = "payment_confirmation"
	KindPriceInquiry        Kind = "price_inquiry"
	KindLocationInquiry     Kind = "location_inquiry"
	KindHelpRequest         Kind = "help_request"
	KindBookingCheck        Kind = "booking_check"
	KindUnrecognized        Kind = "unrecognized"
)

// Button identifiers understood by the classifier.
const (
	ButtonBrowseCars  = "browse_cars"
	ButtonCheckPrices = "check_prices"
	ButtonMyBookings  = "my_bookings"
	ButtonGetHelp     = "get_help"
	ButtonMainMenu    = "main_menu"

	PrefixCar            = "car_"
	PrefixBook           = "book_"
	PrefixPay            = "pay_"
	PrefixConfirmPayment = "confirm_payment_"
)

// Intent is the classifier output. Only the fields relevant to Kind are set.
type Intent struct {
	Kind     Kind
	Raw      string
	Category catalog.Category
	// Index is the 1-based position for numeric car selection.
	Index     int
	CarID     string
	BookingID string
	// FromButton marks intents decoded from a button or list reply id.
	FromButton bool
}

// IsButtonID reports whether id belongs to the closed button set.
func IsButtonID(id string) bool {
	switch id {
	case ButtonBrowseCars, ButtonCheckPrices, ButtonMyBookings, ButtonGetHelp, ButtonMainMenu:
		return true
	}
	if catalog.Category(id).Valid() {
		return true
	}
	for _, p := range []string{PrefixCar, PrefixBook, PrefixPay, PrefixConfirmPayment} {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// Decode maps a button id onto the intent it stands for, so button
// clicks re-enter the same transitions as typed messages.
func Decode(id string) (Intent, bool) {
	in := Intent{Raw: id, FromButton: true}
	switch id {
	case ButtonBrowseCars:
		in.Kind = KindCatalogRequest
		return in, true
	case ButtonCheckPrices:
		in.Kind = KindPriceInquiry
		return in, true
	case ButtonMyBookings:
		in.Kind = KindBookingCheck
		return in, true
	case ButtonGetHelp:
		in.Kind = KindHelpRequest
		return in, true
	case ButtonMainMenu:
		in.Kind = KindGreeting
		return in, true
	}
	if cat := catalog.Category(id); cat.Valid() {
		in.Kind = KindCatalogRequest
		in.Category = cat
		return in, true
	}
	switch {
	case strings.HasPrefix(id, PrefixConfirmPayment):
		in.Kind = KindPaymentConfirmation
		in.BookingID = strings.TrimPrefix(id, PrefixConfirmPayment)
	case strings.HasPrefix(id, PrefixPay):
		in.Kind = KindPaymentRequest
		in.BookingID = strings.TrimPrefix(id, PrefixPay)
	case strings.HasPrefix(id, PrefixCar):
		in.Kind = KindCarSelection
		in.CarID = strings.TrimPrefix(id, PrefixCar)
	case strings.HasPrefix(id, PrefixBook):
		in.Kind = KindBookingRequest
		in.CarID = strings.TrimPrefix(id, PrefixBook)
	default:
		return Intent{Kind: KindUnrecognized, Raw: id}, false
	}
	return in, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
