package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestStore(t *testing.T, cfg Config) (*MemoryStore, *fakeClock) {
	t.Helper()
	if cfg.Shards == 0 {
		cfg.Shards = 4
	}
	cfg.Logger = logger.NewNopLogger()

	store, err := New(cfg)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	return store, clock
}

func TestNew(t *testing.T) {
	log := logger.NewNopLogger()
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "valid config", config: Config{Shards: 16, ShardCapacity: 100, TTL: time.Hour, Logger: log}},
		{name: "unbounded", config: Config{Shards: 1, Logger: log}},
		{name: "zero shards", config: Config{Shards: 0, Logger: log}, expectError: true},
		{name: "negative capacity", config: Config{Shards: 1, ShardCapacity: -1, Logger: log}, expectError: true},
		{name: "negative ttl", config: Config{Shards: 1, TTL: -time.Second, Logger: log}, expectError: true},
		{name: "missing logger", config: Config{Shards: 1}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.Len(t, store.shards, tt.config.Shards)
		})
	}
}

func TestGetPut(t *testing.T) {
	store, clock := setupTestStore(t, Config{})

	_, ok := store.Get("5491122334455")
	assert.False(t, ok)

	store.Put("5491122334455", State{Value: "awaiting_vehicle_make"})
	first := clock.Now()
	clock.Advance(time.Minute)
	store.Put("5491122334455", State{Value: "awaiting_vehicle_year"})

	st, ok := store.Get("5491122334455")
	require.True(t, ok)
	assert.Equal(t, "awaiting_vehicle_year", st.Value)
	assert.Equal(t, first, st.FirstSeen)
	assert.Equal(t, clock.Now(), st.UpdatedAt)
	assert.Equal(t, 1, store.Len())
}

func TestTouch(t *testing.T) {
	store, clock := setupTestStore(t, Config{})

	st := store.Touch("a")
	assert.Equal(t, 1, st.Messages)
	assert.Equal(t, clock.Now(), st.FirstSeen)

	store.Put("a", State{Value: 42})
	clock.Advance(time.Second)
	st = store.Touch("a")

	assert.Equal(t, 2, st.Messages)
	assert.Equal(t, 42, st.Value, "Touch keeps the stored value")
}

func TestTTLExpiry(t *testing.T) {
	store, clock := setupTestStore(t, Config{TTL: 10 * time.Minute})

	store.Touch("idle")
	clock.Advance(5 * time.Minute)
	store.Touch("active")
	clock.Advance(6 * time.Minute)

	_, ok := store.Get("idle")
	assert.False(t, ok, "idle entry expired")
	_, ok = store.Get("active")
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	st := store.Touch("idle")
	assert.Equal(t, 1, st.Messages, "an expired entry starts over")
	assert.Equal(t, clock.Now(), st.FirstSeen)
}

func TestSweep(t *testing.T) {
	store, clock := setupTestStore(t, Config{Shards: 1, TTL: time.Minute})

	for i := 0; i < 5; i++ {
		store.Touch(fmt.Sprintf("old-%d", i))
	}
	clock.Advance(2 * time.Minute)
	store.Touch("new")

	assert.Equal(t, 5, store.Sweep())
	assert.Equal(t, 0, store.Sweep())
	assert.Len(t, store.shards[0].items, 1)
}

func TestSweepWithoutTTL(t *testing.T) {
	store, clock := setupTestStore(t, Config{})
	store.Touch("a")
	clock.Advance(24 * time.Hour)

	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestCapacityEvictsLeastRecentlyUpdated(t *testing.T) {
	store, clock := setupTestStore(t, Config{Shards: 1, ShardCapacity: 2})

	store.Touch("first")
	clock.Advance(time.Second)
	store.Touch("second")
	clock.Advance(time.Second)
	store.Touch("first")
	clock.Advance(time.Second)
	store.Touch("third")

	_, ok := store.Get("second")
	assert.False(t, ok, "second was the least recently updated")
	_, ok = store.Get("first")
	assert.True(t, ok)
	_, ok = store.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	store, _ := setupTestStore(t, Config{TTL: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestConcurrentSendersAreIsolated(t *testing.T) {
	store, _ := setupTestStore(t, Config{Shards: 8})

	const senders = 50
	const messages = 40
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for m := 0; m < messages; m++ {
				store.Touch(id)
				store.Put(id, State{Value: id})
				_, _ = store.Get(id)
			}
		}(fmt.Sprintf("549110000%04d", s))
	}
	wg.Wait()

	assert.Equal(t, senders, store.Len())
	for s := 0; s < senders; s++ {
		id := fmt.Sprintf("549110000%04d", s)
		st, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, messages, st.Messages)
		assert.Equal(t, id, st.Value)
	}
}
