package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bookings in the bookings table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookingColumns = `id, customer_id, customer_name, car_id, car_name, package, pickup_date, return_date,
		pickup_location, total_days, daily_rate, total_amount, deposit, status, created_at, paid_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		b.ID,
		b.CustomerID,
		b.CustomerName,
		b.CarID,
		b.CarName,
		string(b.Package),
		b.PickupDate,
		b.ReturnDate,
		b.PickupLocation,
		b.TotalDays,
		b.DailyRate,
		b.TotalAmount,
		b.Deposit,
		string(b.Status),
		b.CreatedAt,
		b.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateBooking
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking: load %s: %w", id, err)
	}
	return &b, nil
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("booking: list for customer: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: list for customer: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, id string, at time.Time) (*Booking, error) {
	query := `
		UPDATE bookings SET status = $2, paid_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, id, string(StatusPaid), at, string(StatusConfirmed)))
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking: mark paid %s: %w", id, err)
	}
	// either unknown or already paid
	return r.Get(ctx, id)
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b      Booking
		pkg    string
		status string
		paidAt *time.Time
	)
	if err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.CustomerName,
		&b.CarID,
		&b.CarName,
		&pkg,
		&b.PickupDate,
		&b.ReturnDate,
		&b.PickupLocation,
		&b.TotalDays,
		&b.DailyRate,
		&b.TotalAmount,
		&b.Deposit,
		&status,
		&b.CreatedAt,
		&paidAt,
	); err != nil {
		return Booking{}, err
	}
	b.Package = Package(pkg)
	b.Status = Status(status)
	b.PaidAt = paidAt
	return b, nil
}
