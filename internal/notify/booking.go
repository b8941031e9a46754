package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/carrental-bot/internal/booking"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

// BookingNotifier emails the operations inbox about new bookings.
type BookingNotifier struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

// NewBookingNotifier returns nil when either the sender or the recipient is
// missing, which booking.Service treats as "no notifications".
func NewBookingNotifier(email EmailSender, to string, logger *logging.Logger) *BookingNotifier {
	to = strings.TrimSpace(to)
	if email == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, to: to, logger: logger}
}

func (n *BookingNotifier) BookingCreated(ctx context.Context, b booking.Booking) error {
	if n == nil {
		return nil
	}
	msg := EmailMessage{
		To:      n.to,
		ToName:  "Operations",
		Subject: fmt.Sprintf("New booking %s: %s", b.ID, b.CarName),
		Body:    bookingBody(b),
		HTML:    bookingHTML(b),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking %s: %w", b.ID, err)
	}
	n.logger.Debug("booking notification sent", "booking_id", b.ID)
	return nil
}

func bookingBody(b booking.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking ID: %s\n", b.ID)
	fmt.Fprintf(&sb, "Customer: %s (%s)\n", b.CustomerName, b.CustomerID)
	fmt.Fprintf(&sb, "Car: %s\n", b.CarName)
	fmt.Fprintf(&sb, "Package: %s\n", b.Package)
	fmt.Fprintf(&sb, "Pickup: %s\n", b.PickupDate)
	fmt.Fprintf(&sb, "Return: %s\n", b.ReturnDate)
	fmt.Fprintf(&sb, "Location: %s\n", b.PickupLocation)
	fmt.Fprintf(&sb, "Days: %d\n", b.TotalDays)
	fmt.Fprintf(&sb, "Total: TZS %d\n", b.TotalAmount)
	fmt.Fprintf(&sb, "Deposit: TZS %d\n", b.Deposit)
	fmt.Fprintf(&sb, "Status: %s\n", b.Status)
	return sb.String()
}

func bookingHTML(b booking.Booking) string {
	return fmt.Sprintf(`<h2>New booking %s</h2>
<p><strong>%s</strong> booked the <strong>%s</strong> for %d day(s).</p>
<ul>
<li>Customer number: %s</li>
<li>Package: %s</li>
<li>Pickup: %s at %s</li>
<li>Return: %s</li>
<li>Total: TZS %d (deposit TZS %d)</li>
</ul>`,
		b.ID, html.EscapeString(b.CustomerName), html.EscapeString(b.CarName), b.TotalDays,
		html.EscapeString(b.CustomerID), b.Package, b.PickupDate, html.EscapeString(b.PickupLocation),
		b.ReturnDate, b.TotalAmount, b.Deposit)
}
