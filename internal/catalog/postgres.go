package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCatalog reads listings from the cars table.
type PostgresCatalog struct {
	db querier
}

// NewPostgresCatalog initializes a catalog backed by pgxpool.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresCatalog{db: pool}
}

func newPostgresCatalogWithDB(db querier) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

const carColumns = `id, category, name, price_per_day, features, available, location, image`

func (c *PostgresCatalog) ListByCategory(ctx context.Context, category Category) ([]Car, error) {
	rows, err := c.db.Query(ctx, `SELECT `+carColumns+` FROM cars WHERE category = $1 ORDER BY position, id`, string(category))
	if err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", category, err)
	}
	defer rows.Close()

	var out []Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan car: %w", err)
		}
		out = append(out, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", category, err)
	}
	return out, nil
}

func (c *PostgresCatalog) FindByID(ctx context.Context, id string) (*Car, error) {
	car, err := scanCar(c.db.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("catalog: find %s: %w", id, err)
	}
	return &car, nil
}

func (c *PostgresCatalog) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := c.db.Exec(ctx, `UPDATE cars SET available = $2, updated_at = now() WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("catalog: set availability %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCarNotFound
	}
	return nil
}

// Seed upserts cars keeping their slice order as display position.
// Availability of existing rows is left untouched.
func (c *PostgresCatalog) Seed(ctx context.Context, cars []Car) error {
	query := `
		INSERT INTO cars (id, category, name, price_per_day, features, available, location, image, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			name = EXCLUDED.name,
			price_per_day = EXCLUDED.price_per_day,
			features = EXCLUDED.features,
			location = EXCLUDED.location,
			image = EXCLUDED.image,
			position = EXCLUDED.position
	`
	for i, car := range cars {
		if _, err := c.db.Exec(ctx, query,
			car.ID,
			string(car.Category),
			car.Name,
			car.PricePerDay,
			car.Features,
			car.Available,
			car.Location,
			car.Image,
			i,
		); err != nil {
			return fmt.Errorf("catalog: seed %s: %w", car.ID, err)
		}
	}
	return nil
}

func scanCar(row pgx.Row) (Car, error) {
	var (
		car      Car
		category string
	)
	if err := row.Scan(
		&car.ID,
		&category,
		&car.Name,
		&car.PricePerDay,
		&car.Features,
		&car.Available,
		&car.Location,
		&car.Image,
	); err != nil {
		return Car{}, err
	}
	car.Category = Category(category)
	return car, nil
}
