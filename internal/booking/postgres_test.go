package booking

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "customer_id", "customer_name", "car_id", "car_name", "package", "pickup_date", "return_date",
	"pickup_location", "total_days", "daily_rate", "total_amount", "deposit", "status", "created_at", "paid_at",
}

func bookingRow(rows *pgxmock.Rows, status string, paidAt *time.Time) *pgxmock.Rows {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow("BK1", "255700000000", "Asha", "suv_001", "Toyota RAV4", "weekend", "Friday 6:00 PM", "Sunday 6:00 PM",
		"Main Office", 2, 4500, 9000, 4500, status, created, paidAt)
}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	b := &Booking{
		ID: "BK1", CustomerID: "255700000000", CustomerName: "Asha", CarID: "suv_001", CarName: "Toyota RAV4",
		Package: PackageWeekend, PickupDate: "Friday 6:00 PM", ReturnDate: "Sunday 6:00 PM", PickupLocation: "Main Office",
		TotalDays: 2, DailyRate: 4500, TotalAmount: 9000, Deposit: 4500, Status: StatusConfirmed,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	args := []any{
		b.ID, b.CustomerID, b.CustomerName, b.CarID, b.CarName, "weekend", b.PickupDate, b.ReturnDate,
		b.PickupLocation, 2, 4500, 9000, 4500, "confirmed", b.CreatedAt, b.PaidAt,
	}
	mock.ExpectExec("INSERT INTO bookings").WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(context.Background(), b))

	// ON CONFLICT DO NOTHING reports zero rows for an existing id.
	mock.ExpectExec("INSERT INTO bookings").WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	assert.ErrorIs(t, repo.Create(context.Background(), b), ErrDuplicateBooking)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	mock.ExpectQuery("SELECT id, customer_id").WithArgs("BK1").
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingCols), "confirmed", nil))
	b, err := repo.Get(context.Background(), "BK1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, PackageWeekend, b.Package)
	assert.Nil(t, b.PaidAt)

	mock.ExpectQuery("SELECT id, customer_id").WithArgs("BK404").WillReturnError(pgx.ErrNoRows)
	_, err = repo.Get(context.Background(), "BK404")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryListByCustomer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	mock.ExpectQuery("SELECT id, customer_id").WithArgs("255700000000").
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingCols), "confirmed", nil))
	list, err := repo.ListByCustomer(context.Background(), "255700000000")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Toyota RAV4", list[0].CarName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryMarkPaid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE bookings SET status").WithArgs("BK1", "paid", at, "confirmed").
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingCols), "paid", &at))
	b, err := repo.MarkPaid(context.Background(), "BK1", at)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, b.Status)
	require.NotNil(t, b.PaidAt)

	// already paid: update matches nothing, row is re-read unchanged
	mock.ExpectQuery("UPDATE bookings SET status").WithArgs("BK1", "paid", at, "confirmed").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, customer_id").WithArgs("BK1").
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingCols), "paid", &at))
	b, err = repo.MarkPaid(context.Background(), "BK1", at)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, b.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
