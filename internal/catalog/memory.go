package catalog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCatalog keeps listings in process memory, preserving insertion
// order within each category.
type MemoryCatalog struct {
	mu    sync.RWMutex
	order map[Category][]string
	byID  map[string]*Car
}

// NewMemoryCatalog builds a catalog from cars. Duplicate ids or unknown
// categories are rejected.
func NewMemoryCatalog(cars []Car) (*MemoryCatalog, error) {
	c := &MemoryCatalog{
		order: make(map[Category][]string),
		byID:  make(map[string]*Car, len(cars)),
	}
	for _, car := range cars {
		if car.ID == "" {
			return nil, fmt.Errorf("catalog: car %q has no id", car.Name)
		}
		if !car.Category.Valid() {
			return nil, fmt.Errorf("catalog: car %s has unknown category %q", car.ID, car.Category)
		}
		if _, dup := c.byID[car.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate car id %s", car.ID)
		}
		cp := cloneCar(car)
		c.byID[car.ID] = &cp
		c.order[car.Category] = append(c.order[car.Category], car.ID)
	}
	return c, nil
}

func (c *MemoryCatalog) ListByCategory(_ context.Context, category Category) ([]Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.order[category]
	out := make([]Car, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneCar(*c.byID[id]))
	}
	return out, nil
}

func (c *MemoryCatalog) FindByID(_ context.Context, id string) (*Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	car, ok := c.byID[id]
	if !ok {
		return nil, ErrCarNotFound
	}
	cp := cloneCar(*car)
	return &cp, nil
}

func (c *MemoryCatalog) SetAvailability(_ context.Context, id string, available bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	car, ok := c.byID[id]
	if !ok {
		return ErrCarNotFound
	}
	car.Available = available
	return nil
}

func cloneCar(car Car) Car {
	car.Features = append([]string(nil), car.Features...)
	return car
}
