package conversation

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wolfman30/carrental-bot/internal/booking"
	"github.com/wolfman30/carrental-bot/internal/catalog"
	"github.com/wolfman30/carrental-bot/internal/intent"
)

const (
	buttonFooter    = "CarRental Pro - Your Premium Car Rental Service"
	listFooter      = "CarRental Pro"
	listButtonLabel = "Select Option"
	listSection     = "Options"

	supportPhone = "+255683859574"
)

func mainMenuButtons() []Button {
	return []Button{
		{ID: intent.ButtonBrowseCars, Title: "🚗 Browse Cars"},
		{ID: intent.ButtonCheckPrices, Title: "💰 Check Prices"},
		{ID: intent.ButtonMyBookings, Title: "📋 My Bookings"},
	}
}

func carListButtons(cars []catalog.Car) []Button {
	out := make([]Button, 0, len(cars))
	for i, car := range cars {
		out = append(out, Button{
			ID:    intent.PrefixCar + car.ID,
			Title: fmt.Sprintf("%d. %s", i+1, truncate(car.Name, 15)),
		})
	}
	return out
}

func carActionButtons(carID string) []Button {
	return []Button{
		{ID: intent.PrefixBook + carID, Title: "📅 Book Now"},
		{ID: intent.ButtonBrowseCars, Title: "🔄 Back to List"},
	}
}

func bookingFormButtons() []Button {
	return []Button{
		{ID: string(booking.PackageSameDay), Title: "Same Day"},
		{ID: string(booking.PackageWeekend), Title: "Weekend Special"},
		{ID: string(booking.PackageCustom), Title: "Custom Dates"},
	}
}

func paymentButtons(bookingID string) []Button {
	return []Button{
		{ID: intent.PrefixPay + bookingID, Title: "💳 View Payment Info"},
		{ID: intent.ButtonMainMenu, Title: "🏠 Main Menu"},
	}
}

func paymentConfirmationButtons(bookingID string) []Button {
	return []Button{
		{ID: intent.PrefixConfirmPayment + bookingID, Title: "✅ Payment Sent"},
		{ID: intent.ButtonGetHelp, Title: "🆘 Need Help"},
	}
}

func postPaymentButtons() []Button {
	return []Button{
		{ID: intent.ButtonMyBookings, Title: "📋 View Receipt"},
		{ID: intent.ButtonMainMenu, Title: "🏠 Main Menu"},
	}
}

func priceButtons() []Button {
	return []Button{
		{ID: intent.ButtonBrowseCars, Title: "View Cars"},
		{ID: intent.ButtonMainMenu, Title: "Main Menu"},
	}
}

func backToMenuButtons() []Button {
	return []Button{{ID: intent.ButtonMainMenu, Title: "Back to Menu"}}
}

func mainMenuOnlyButtons() []Button {
	return []Button{{ID: intent.ButtonMainMenu, Title: "Main Menu"}}
}

var categoryDescriptions = map[catalog.Category]string{
	catalog.CategoryEconomy: "Affordable city cars",
	catalog.CategorySUV:     "Spacious and rugged",
	catalog.CategoryLuxury:  "Premium comfort",
	catalog.CategoryVan:     "Group travel",
}

func categorySections() []ListSection {
	rows := make([]ListRow, 0, 4)
	for _, cat := range catalog.Categories() {
		rows = append(rows, ListRow{ID: string(cat), Title: cat.Title(), Description: categoryDescriptions[cat]})
	}
	return []ListSection{{Title: listSection, Rows: rows}}
}

func welcomeText(name string, prices map[catalog.Category]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👋 Hello %s! Welcome to CarRental Pro!\n\n", name)
	b.WriteString("🚗 Your Premium Car Rental Service\n\n")
	b.WriteString("I'm your personal car rental assistant. I can help you:\n\n")
	b.WriteString("🔍 Browse Our Fleet\n")
	writeFrom(&b, "SUVs", prices, catalog.CategorySUV)
	writeFrom(&b, "Luxury cars", prices, catalog.CategoryLuxury)
	writeFrom(&b, "Vans", prices, catalog.CategoryVan)
	b.WriteString("\n📅 Quick Services\n")
	b.WriteString("• Instant availability check\n• Real-time booking\n• Price comparisons\n• Location-based search\n\n")
	b.WriteString("💎 Premium Features\n")
	b.WriteString("• 24/7 support\n• Free delivery\n• Comprehensive insurance\n• Flexible payment options\n\n")
	b.WriteString("What would you like to do today?")
	return b.String()
}

func writeFrom(b *strings.Builder, label string, prices map[catalog.Category]int, cat catalog.Category) {
	if p, ok := prices[cat]; ok {
		fmt.Fprintf(b, "• %s from TZS %s/day\n", label, formatAmount(p))
	}
}

func categorySelectionText(name string, prices map[catalog.Category]int) string {
	blurbs := []struct {
		cat     catalog.Category
		heading string
		lines   []string
	}{
		{catalog.CategoryEconomy, "💰 Economy Cars - Perfect for city driving", []string{"Fuel efficient and easy to park"}},
		{catalog.CategorySUV, "🚙 SUVs - Great for families and adventures", []string{"Spacious and reliable"}},
		{catalog.CategoryLuxury, "🏎️ Luxury Cars - Premium experience", []string{"Top-of-the-line features"}},
		{catalog.CategoryVan, "🚐 Vans - Perfect for groups", []string{"Seats up to 14 people"}},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 Choose Your Car Category, %s\n\n", name)
	b.WriteString("Which type of vehicle are you looking for?\n\n")
	for _, bl := range blurbs {
		b.WriteString(bl.heading + "\n")
		if p, ok := prices[bl.cat]; ok {
			fmt.Fprintf(&b, "• From TZS %s/day\n", formatAmount(p))
		}
		for _, l := range bl.lines {
			b.WriteString("• " + l + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Select a category to see available cars!")
	return b.String()
}

func catalogText(cat catalog.Category, name string, cars []catalog.Car) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 %s Cars Available for %s\n\n", cat.Title(), name)
	for i, car := range cars {
		status := "✅ Available"
		if !car.Available {
			status = "❌ Unavailable"
		}
		features := car.Features
		if len(features) > 3 {
			features = features[:3]
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, car.Name, status)
		fmt.Fprintf(&b, "💰 TZS %s/day\n", formatAmount(car.PricePerDay))
		fmt.Fprintf(&b, "⭐ %s\n", strings.Join(features, " • "))
		fmt.Fprintf(&b, "📍 %s\n\n", car.Location)
	}
	first := "First Car"
	if len(cars) > 0 {
		first = cars[0].Name
	}
	fmt.Fprintf(&b, "💡 Tip: Reply with the car number (e.g., \"1\" for %s) to see full details and book!\n\n", first)
	b.WriteString("🔄 Need something else? Try:\n• \"Show luxury cars\"\n• \"Compare prices\"\n• \"Check availability\"")
	return b.String()
}

func emptyCategoryText(cat catalog.Category, name string) string {
	return fmt.Sprintf("Sorry %s, we have no %s cars listed right now. Please pick another category.", name, cat.Title())
}

func carDetailsText(car *catalog.Car) string {
	status := "✅ Available Now"
	closing := "🎯 Ready to book this car?"
	if !car.Available {
		status = "❌ Currently Unavailable"
		closing = "🔄 Would you like to see similar available cars?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 %s - Detailed Information\n\n", car.Name)
	fmt.Fprintf(&b, "%s\n", status)
	fmt.Fprintf(&b, "💰 Price: TZS %s/day\n", formatAmount(car.PricePerDay))
	fmt.Fprintf(&b, "📍 Locations: %s\n\n", car.Location)
	fmt.Fprintf(&b, "⭐ Features:\n• %s\n\n", strings.Join(car.Features, "\n• "))
	b.WriteString("📋 What's Included:\n• Comprehensive insurance\n• 24/7 roadside assistance\n• Free delivery within city\n• Unlimited mileage\n• Full tank of fuel\n\n")
	b.WriteString("💳 Payment Options:\n• M-Pesa (50% deposit)\n• Bank transfer\n• Cash on delivery\n\n")
	b.WriteString(closing)
	return b.String()
}

func bookingFormText(car *catalog.Car, name string) string {
	sameTotal, sameDeposit := booking.Quote(car.PricePerDay, 1)
	weekendTotal, weekendDeposit := booking.Quote(car.PricePerDay, 2)
	weeklyTotal, weeklyDeposit := booking.Quote(car.PricePerDay, 7)

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Book %s - %s\n\n", car.Name, name)
	fmt.Fprintf(&b, "🚗 Selected Car: %s\n", car.Name)
	fmt.Fprintf(&b, "💰 Daily Rate: TZS %s\n", formatAmount(car.PricePerDay))
	fmt.Fprintf(&b, "📍 Available Locations: %s\n\n", car.Location)
	b.WriteString("⚡ Quick Booking Options:\n\n")
	fmt.Fprintf(&b, "1. Same Day Rental\n• Today 2PM - Tomorrow 2PM\n• Total: TZS %s\n• Deposit: TZS %s\n\n", formatAmount(sameTotal), formatAmount(sameDeposit))
	fmt.Fprintf(&b, "2. Weekend Special\n• Friday 6PM - Sunday 6PM\n• Total: TZS %s\n• Deposit: TZS %s\n\n", formatAmount(weekendTotal), formatAmount(weekendDeposit))
	fmt.Fprintf(&b, "3. Weekly Deal\n• 7 days rental\n• Total: TZS %s\n• Deposit: TZS %s\n\n", formatAmount(weeklyTotal), formatAmount(weeklyDeposit))
	b.WriteString("📝 Or provide custom details:\n\"Book from [Date] [Time] to [Date] [Time] at [Location]\"\n\n")
	b.WriteString("Example: \"Book from Jan 25 9am to Jan 27 6pm at JKIA\"\n\n")
	b.WriteString("Choose an option below or send custom details!")
	return b.String()
}

func bookingConfirmationText(bk *booking.Booking, name string) string {
	var b strings.Builder
	b.WriteString("🎉 Booking Confirmed!\n\n")
	fmt.Fprintf(&b, "Booking ID: %s\nCustomer: %s\nCar: %s\n\n", bk.ID, name, bk.CarName)
	fmt.Fprintf(&b, "📅 Rental Period:\n• Pickup: %s\n• Return: %s\n• Duration: %d days\n\n", bk.PickupDate, bk.ReturnDate, bk.TotalDays)
	fmt.Fprintf(&b, "📍 Pickup Location: %s\n\n", bk.PickupLocation)
	fmt.Fprintf(&b, "💰 Payment Summary:\n• Daily Rate: TZS %s\n• Total Amount: TZS %s\n• Deposit Due: TZS %s\n\n",
		formatAmount(bk.DailyRate), formatAmount(bk.TotalAmount), formatAmount(bk.Deposit))
	b.WriteString("📱 Next Steps:\n1. Pay deposit via M-Pesa: 0700123456\n2. We'll deliver the car to your location\n3. Complete payment on delivery\n\n")
	fmt.Fprintf(&b, "📞 Support: %s\n📧 Email: bookings@carrentalpro.com\n\n", supportPhone)
	b.WriteString("Thank you for choosing CarRental Pro! 🚗✨")
	return b.String()
}

func paymentInstructionsText(bk *booking.Booking, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💳 Payment Instructions for %s\n\n", name)
	fmt.Fprintf(&b, "Booking ID: %s\nCar: %s\nTotal Amount: TZS %s\nDeposit Required: TZS %s\n\n",
		bk.ID, bk.CarName, formatAmount(bk.TotalAmount), formatAmount(bk.Deposit))
	fmt.Fprintf(&b, "📱 M-Pesa Payment:\n• Paybill: 400200\n• Account: %s\n• Amount: TZS %s\n\n", bk.ID, formatAmount(bk.Deposit))
	fmt.Fprintf(&b, "🏦 Bank Transfer:\n• Bank: KCB Bank\n• Account: 1234567890\n• Name: CarRental Pro Ltd\n• Reference: %s\n\n", bk.ID)
	b.WriteString("💵 Cash Payment:\n• Visit our office with booking ID\n• Pay at pickup location\n\n")
	fmt.Fprintf(&b, "⏰ Payment Deadline: 2 hours from now\n📞 Support: %s\n\n", supportPhone)
	b.WriteString("After payment, click \"Payment Sent\" below.")
	return b.String()
}

func paymentSuccessText(bk *booking.Booking, name string) string {
	return fmt.Sprintf("Thank you %s! We have received your payment confirmation for %s. Our team will contact you shortly.", name, bk.CarName)
}

func pricingText(prices map[catalog.Category]int) string {
	var b strings.Builder
	b.WriteString("Here are our starting prices:")
	for _, cat := range catalog.Categories() {
		if p, ok := prices[cat]; ok {
			fmt.Fprintf(&b, "\n%s: TZS %s", cat.Title(), formatAmount(p))
		}
	}
	return b.String()
}

func bookingHistoryText(bookings []booking.Booking, name string) string {
	if len(bookings) == 0 {
		return fmt.Sprintf("You have no active bookings, %s.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Booking History for %s:\n", name)
	for _, bk := range bookings {
		fmt.Fprintf(&b, "- %s (%s)\n", bk.CarName, bk.Status)
	}
	return b.String()
}

func carNotFoundText(name string) string {
	return fmt.Sprintf("Sorry %s, I couldn't find that car. Please try selecting from the list.", name)
}

func bookingNotFoundText(name string) string {
	return fmt.Sprintf("Sorry %s, I couldn't find that booking. Please check your bookings from the menu.", name)
}

func selectCarFirstText(name string) string {
	return fmt.Sprintf("Please select a car first before booking, %s.", name)
}

func bookingFormErrorText(errs []string, name string) string {
	return fmt.Sprintf("Oops %s, something is missing:\n%s\nPlease try again.", name, strings.Join(errs, "\n"))
}

const (
	locationText = "We are located in Nairobi, Mombasa, and Kisumu. We deliver to airports!"
	helpText     = "Need help? Call us at " + supportPhone + " or email support@vemacars.com"
)

func fallbackText(name string) string {
	return fmt.Sprintf("I didn't quite catch that, %s. Please use the buttons below.", name)
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders n with comma thousands separators.
func formatAmount(n int) string {
	return amountPrinter.Sprintf("%d", n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
