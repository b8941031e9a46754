package events

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper keeps processed ids in process memory for ttl.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryDeduper returns an in-process deduper. A ttl <= 0 keeps ids forever.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) AlreadyProcessed(_ context.Context, provider, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveLocked(key(provider, eventID)), nil
}

func (d *MemoryDeduper) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := key(provider, eventID)
	if d.liveLocked(k) {
		return false, nil
	}
	d.seen[k] = d.now()
	return true, nil
}

// PurgeBefore drops ids recorded before cutoff.
func (d *MemoryDeduper) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for k, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, k)
			n++
		}
	}
	return n, nil
}

func (d *MemoryDeduper) liveLocked(k string) bool {
	at, ok := d.seen[k]
	if !ok {
		return false
	}
	if d.ttl > 0 && d.now().Sub(at) > d.ttl {
		delete(d.seen, k)
		return false
	}
	return true
}

func key(provider, eventID string) string {
	return provider + ":" + eventID
}
