package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestMemoryStoreGetOrCreateDefaults(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s, err := store.GetOrCreate(ctx, "255700000000")
	require.NoError(t, err)
	assert.Equal(t, StateStart, s.State)
	assert.Zero(t, s.MessageCount)
	assert.Empty(t, s.LastMessage)
	assert.Empty(t, s.SelectedCar)
	assert.NotNil(t, s.Preferences)

	_, err = store.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyCustomerID)
}

func TestMemoryStoreSaveRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s, _ := store.GetOrCreate(ctx, "a")
	s.State = StateBrowsingCars
	s.SelectedCategory = "suv"
	s.MessageCount = 2
	require.NoError(t, store.Save(ctx, s))

	// mutations after save must not leak into the store
	s.State = StateGettingHelp

	got, err := store.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateBrowsingCars, got.State)
	assert.Equal(t, "suv", got.SelectedCategory)
	assert.Equal(t, 2, got.MessageCount)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s, _ := store.GetOrCreate(ctx, "a")
	s.State = StateViewingCar
	require.NoError(t, store.Save(ctx, s))
	_, _ = store.GetOrCreate(ctx, "b")

	now = now.Add(2 * time.Minute)
	got, _ := store.GetOrCreate(ctx, "a")
	assert.Equal(t, StateStart, got.State, "expired session should restart")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreJanitorStops(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	s, err := store.GetOrCreate(ctx, "255700000000")
	require.NoError(t, err)
	assert.Equal(t, StateStart, s.State)

	s.State = StatePaymentPending
	s.SelectedCar = "suv_002"
	s.CurrentBooking = "BK1"
	s.MessageCount = 4
	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists("session:255700000000"))
	assert.Equal(t, time.Hour, mr.TTL("session:255700000000"))

	got, err := store.GetOrCreate(ctx, "255700000000")
	require.NoError(t, err)
	assert.Equal(t, StatePaymentPending, got.State)
	assert.Equal(t, "suv_002", got.SelectedCar)
	assert.Equal(t, "BK1", got.CurrentBooking)
	assert.Equal(t, 4, got.MessageCount)
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	require.NoError(t, mr.Set("session:x", "{not json"))

	_, err := store.GetOrCreate(context.Background(), "x")
	assert.Error(t, err)
}

func TestRedisStoreUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	mr.Close()

	_, err := store.GetOrCreate(context.Background(), "x")
	assert.Error(t, err)
}

func TestLockerSerializesSameKey(t *testing.T) {
	locker := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("same")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.Len())
}

func TestLockerIndependentKeys(t *testing.T) {
	locker := NewLocker()
	unlockA := locker.Lock("a")
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlock := locker.Lock("b")
		unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}

func TestLockerUnlockIsIdempotent(t *testing.T) {
	locker := NewLocker()
	unlock := locker.Lock("k")
	unlock()
	unlock()
	assert.Equal(t, 0, locker.Len())
}
