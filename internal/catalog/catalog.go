package catalog

import (
	"context"
	"errors"
	"strings"
)

// Category is one of the fixed vehicle groupings.
type Category string

const (
	CategoryEconomy Category = "economy"
	CategorySUV     Category = "suv"
	CategoryLuxury  Category = "luxury"
	CategoryVan     Category = "van"
)

// DisplayWindow is how many listings a category shows, selects by number and attaches images for.
const DisplayWindow = 3

// ErrCarNotFound is returned when a car id is unknown.
var ErrCarNotFound = errors.New("catalog: car not found")

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{CategoryEconomy, CategorySUV, CategoryLuxury, CategoryVan}
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryEconomy, CategorySUV, CategoryLuxury, CategoryVan:
		return true
	}
	return false
}

// Title is the human label used in lists and headings.
func (c Category) Title() string {
	if c == CategorySUV {
		return "SUV"
	}
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCategory matches an exact category key.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Car is a rentable listing.
type Car struct {
	ID          string   `json:"id" yaml:"id"`
	Category    Category `json:"category" yaml:"category"`
	Name        string   `json:"name" yaml:"name"`
	PricePerDay int      `json:"price" yaml:"price"`
	Features    []string `json:"features" yaml:"features"`
	Available   bool     `json:"available" yaml:"available"`
	Location    string   `json:"location" yaml:"location"`
	Image       string   `json:"image,omitempty" yaml:"image"`
}

// Catalog looks up listings. Implementations must return cars of a
// category in a stable display order.
type Catalog interface {
	ListByCategory(ctx context.Context, category Category) ([]Car, error)
	FindByID(ctx context.Context, id string) (*Car, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

// Window trims a category listing to the display window.
func Window(cars []Car) []Car {
	if len(cars) > DisplayWindow {
		return cars[:DisplayWindow]
	}
	return cars
}

// StartingPrices returns the cheapest daily rate per category. Empty
// categories are omitted.
func StartingPrices(ctx context.Context, c Catalog) (map[Category]int, error) {
	out := make(map[Category]int, 4)
	for _, cat := range Categories() {
		cars, err := c.ListByCategory(ctx, cat)
		if err != nil {
			return nil, err
		}
		for _, car := range cars {
			if cur, ok := out[cat]; !ok || car.PricePerDay < cur {
				out[cat] = car.PricePerDay
			}
		}
	}
	return out, nil
}
