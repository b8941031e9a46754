package booking

import (
	"strings"
	"unicode/utf8"
)

// Package is one of the canned rental durations.
type Package string

const (
	PackageSameDay Package = "same_day"
	PackageWeekend Package = "weekend"
	PackageWeekly  Package = "weekly"
	PackageCustom  Package = "custom"
)

const (
	mainOffice  = "Main Office"
	asSpecified = "As specified"

	// custom requests carry no parsed dates and always book this many days
	customPlaceholderDays = 3
	customMinLength       = 20

	detailsMissing = "Please select a quick booking option or provide complete details"
)

// Details is the outcome of parsing a booking-form message.
type Details struct {
	Valid          bool
	Package        Package
	PickupDate     string
	ReturnDate     string
	PickupLocation string
	TotalDays      int
	Errors         []string
}

// ParseDetails maps free text or a package button id to rental details.
// Checks run in order: same day, weekend, weekly, then custom.
func ParseDetails(text string) Details {
	lower := strings.ToLower(strings.ReplaceAll(text, "_", " "))

	switch {
	case strings.Contains(lower, "same day") || strings.Contains(lower, "today"):
		return Details{Valid: true, Package: PackageSameDay, PickupDate: "Today 2:00 PM", ReturnDate: "Tomorrow 2:00 PM", PickupLocation: mainOffice, TotalDays: 1}
	case strings.Contains(lower, "weekend") || strings.Contains(lower, "friday"):
		return Details{Valid: true, Package: PackageWeekend, PickupDate: "Friday 6:00 PM", ReturnDate: "Sunday 6:00 PM", PickupLocation: mainOffice, TotalDays: 2}
	case strings.Contains(lower, "weekly") || strings.Contains(lower, "week"):
		return Details{Valid: true, Package: PackageWeekly, PickupDate: "Tomorrow 9:00 AM", ReturnDate: "Next Week 9:00 AM", PickupLocation: mainOffice, TotalDays: 7}
	}

	if utf8.RuneCountInString(text) > customMinLength &&
		strings.Contains(lower, "book") &&
		strings.Contains(lower, "from") &&
		strings.Contains(lower, "to") {
		return Details{Valid: true, Package: PackageCustom, PickupDate: asSpecified, ReturnDate: asSpecified, PickupLocation: asSpecified, TotalDays: customPlaceholderDays}
	}

	return Details{Package: PackageCustom, Errors: []string{detailsMissing}}
}

// Quote prices a rental: total is rate times days, deposit is half the
// total rounded down.
func Quote(dailyRate, days int) (total, deposit int) {
	total = dailyRate * days
	deposit = total / 2
	if total < 0 && total%2 != 0 {
		deposit--
	}
	return total, deposit
}
