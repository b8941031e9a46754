package booking

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carrental-bot/internal/catalog"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

func TestParseDetailsPackages(t *testing.T) {
	tests := []struct {
		text string
		pkg  Package
		days int
	}{
		{"same day", PackageSameDay, 1},
		{"same_day", PackageSameDay, 1},
		{"I need it TODAY", PackageSameDay, 1},
		{"weekend", PackageWeekend, 2},
		{"from friday please", PackageWeekend, 2},
		{"weekly deal", PackageWeekly, 7},
		{"one week", PackageWeekly, 7},
		{"Book from Jan 25 9am to Jan 27 6pm at JKIA", PackageCustom, 3},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := ParseDetails(tt.text)
			assert.True(t, d.Valid)
			assert.Equal(t, tt.pkg, d.Package)
			assert.Equal(t, tt.days, d.TotalDays)
		})
	}

	d := ParseDetails("same day")
	assert.Equal(t, "Today 2:00 PM", d.PickupDate)
	assert.Equal(t, "Tomorrow 2:00 PM", d.ReturnDate)
	assert.Equal(t, "Main Office", d.PickupLocation)

	custom := ParseDetails("Book from Jan 25 9am to Jan 27 6pm at JKIA")
	assert.Equal(t, "As specified", custom.PickupDate)
	assert.Equal(t, "As specified", custom.ReturnDate)
	assert.Equal(t, "As specified", custom.PickupLocation)
}

func TestParseDetailsInvalid(t *testing.T) {
	for _, text := range []string{"custom", "book from x to y", "please arrange something nice"} {
		d := ParseDetails(text)
		assert.False(t, d.Valid, text)
		assert.Equal(t, []string{"Please select a quick booking option or provide complete details"}, d.Errors)
	}
}

func TestQuote(t *testing.T) {
	for _, rate := range []int{0, 1, 2500, 2801, 9999} {
		for _, days := range []int{1, 2, 3, 7} {
			total, deposit := Quote(rate, days)
			assert.Equal(t, rate*days, total)
			assert.Equal(t, int(math.Floor(float64(rate*days)*0.5)), deposit)
			assert.LessOrEqual(t, deposit, total)
		}
	}
	_, deposit := Quote(-3, 1)
	assert.Equal(t, -2, deposit)
}

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []Booking
	err      error
}

func (n *recordingNotifier) BookingCreated(_ context.Context, b Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
	return n.err
}

func newTestService(t *testing.T, notifier Notifier) (*Service, *catalog.MemoryCatalog) {
	t.Helper()
	cat, err := catalog.NewMemoryCatalog(catalog.DefaultCars(""))
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(), cat, notifier, logging.Discard())
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, cat
}

func TestServiceCreate(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, cat := newTestService(t, notifier)
	ctx := context.Background()

	b, err := svc.Create(ctx, "255700000000", "Asha", "suv_002", ParseDetails("same day"))
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, 1, b.TotalDays)
	assert.Equal(t, 5000, b.DailyRate)
	assert.Equal(t, 5000, b.TotalAmount)
	assert.Equal(t, 2500, b.Deposit)
	assert.Equal(t, "Honda CR-V", b.CarName)
	assert.Regexp(t, `^BK\d+$`, b.ID)
	assert.Nil(t, b.PaidAt)

	car, err := cat.FindByID(ctx, "suv_002")
	require.NoError(t, err)
	assert.False(t, car.Available, "booking marks the car unavailable")

	// nothing restores availability, even after payment
	_, err = svc.MarkPaid(ctx, b.ID)
	require.NoError(t, err)
	car, _ = cat.FindByID(ctx, "suv_002")
	assert.False(t, car.Available)

	require.Len(t, notifier.bookings, 1)
	assert.Equal(t, b.ID, notifier.bookings[0].ID)
}

func TestServiceCreateUniqueIDsWithinMillisecond(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, "c", "C", "eco_001", ParseDetails("weekend"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, "c", "C", "eco_002", ParseDetails("weekend"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestServiceCreateErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "c", "C", "eco_001", ParseDetails("nothing"))
	assert.ErrorIs(t, err, ErrInvalidDetails)

	_, err = svc.Create(ctx, "c", "C", "ghost", ParseDetails("weekend"))
	assert.ErrorIs(t, err, catalog.ErrCarNotFound)
}

func TestServiceNotifierFailureDoesNotFailBooking(t *testing.T) {
	svc, _ := newTestService(t, &recordingNotifier{err: errors.New("smtp down")})
	_, err := svc.Create(context.Background(), "c", "C", "van_001", ParseDetails("weekly"))
	assert.NoError(t, err)
}

type stuckCatalog struct {
	catalog.Catalog
	err error
}

func (c stuckCatalog) SetAvailability(context.Context, string, bool) error { return c.err }

func TestServiceCreateKeepsBookingWhenAvailabilityFails(t *testing.T) {
	cat, err := catalog.NewMemoryCatalog(catalog.DefaultCars(""))
	require.NoError(t, err)
	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, stuckCatalog{Catalog: cat, err: errors.New("db down")}, notifier, logging.Discard())
	ctx := context.Background()

	b, err := svc.Create(ctx, "255700000000", "Asha", "suv_001", ParseDetails("weekend"))
	require.NoError(t, err)
	require.NotNil(t, b)

	stored, err := repo.ListByCustomer(ctx, "255700000000")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
	assert.Len(t, notifier.bookings, 1, "notification still goes out")
}

func TestServiceMarkPaidForwardOnly(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	b, err := svc.Create(ctx, "c", "C", "lux_001", ParseDetails("weekend"))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	first := *paid.PaidAt

	svc.now = func() time.Time { return first.Add(time.Hour) }
	again, err := svc.MarkPaid(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, again.Status)
	assert.Equal(t, first, *again.PaidAt)

	_, err = svc.MarkPaid(ctx, "BK0")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestServiceListForCustomer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "a", "A", "eco_001", ParseDetails("weekend"))
	_, _ = svc.Create(ctx, "b", "B", "eco_002", ParseDetails("weekend"))
	_, _ = svc.Create(ctx, "a", "A", "suv_001", ParseDetails("same day"))

	list, err := svc.ListForCustomer(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Toyota Vitz", list[0].CarName)
	assert.Equal(t, "Toyota RAV4", list[1].CarName)

	none, err := svc.ListForCustomer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRepositoryDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &Booking{ID: "BK1"}))
	assert.ErrorIs(t, repo.Create(ctx, &Booking{ID: "BK1"}), ErrDuplicateBooking)
}
