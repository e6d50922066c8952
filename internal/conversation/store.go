// Package conversation keeps ephemeral per-sender state between webhook calls.
package conversation

import (
	"container/list"
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// State is the record kept for one sender. Value is opaque to the store and
// is where multi-turn flows keep their progress.
type State struct {
	Value     any
	Messages  int
	FirstSeen time.Time
	UpdatedAt time.Time
}

// Store is a concurrency safe map from sender ID to State.
type Store interface {
	// Get returns the sender's state, or false if absent or expired.
	Get(senderID string) (State, bool)
	// Put replaces the sender's Value, keeping FirstSeen and Messages.
	Put(senderID string, state State)
	// Touch records one inbound message from the sender and returns the updated state.
	Touch(senderID string) State
	// Len returns the number of live entries.
	Len() int
}

// Config controls sharding and eviction.
type Config struct {
	// Shards is the number of independently locked partitions.
	Shards int
	// ShardCapacity caps entries per shard; the least recently updated entry
	// is evicted when exceeded. Zero means unbounded.
	ShardCapacity int
	// TTL expires entries idle for longer than this. Zero disables expiry.
	TTL    time.Duration
	Logger logger.Logger
}

type entry struct {
	key   string
	state State
}

type shard struct {
	mu    sync.RWMutex
	items map[string]*list.Element
	order *list.List // front is most recently updated
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	shards   []*shard
	capacity int
	ttl      time.Duration
	log      logger.Logger
	now      func() time.Time
}

// New builds a MemoryStore.
func New(cfg Config) (*MemoryStore, error) {
	if cfg.Shards <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", cfg.Shards)
	}
	if cfg.ShardCapacity < 0 {
		return nil, fmt.Errorf("shard capacity cannot be negative")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("ttl cannot be negative")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	s := &MemoryStore{
		shards:   make([]*shard, cfg.Shards),
		capacity: cfg.ShardCapacity,
		ttl:      cfg.TTL,
		log:      cfg.Logger.WithFields(logger.StringField("component", "conversation_store")),
		now:      time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]*list.Element), order: list.New()}
	}
	return s, nil
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) expired(st State, now time.Time) bool {
	return s.ttl > 0 && now.Sub(st.UpdatedAt) > s.ttl
}

func (s *MemoryStore) Get(senderID string) (State, bool) {
	sh := s.shardFor(senderID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	el, ok := sh.items[senderID]
	if !ok {
		return State{}, false
	}
	st := el.Value.(*entry).state
	if s.expired(st, s.now()) {
		return State{}, false
	}
	return st, true
}

func (s *MemoryStore) Put(senderID string, state State) {
	s.upsert(senderID, func(current State, exists bool) State {
		if exists {
			state.FirstSeen = current.FirstSeen
			state.Messages = current.Messages
		}
		return state
	})
}

func (s *MemoryStore) Touch(senderID string) State {
	return s.upsert(senderID, func(current State, _ bool) State {
		current.Messages++
		return current
	})
}

// upsert applies fn to the current state under the shard lock. Expired
// entries are presented to fn as absent.
func (s *MemoryStore) upsert(senderID string, fn func(current State, exists bool) State) State {
	sh := s.shardFor(senderID)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	el, ok := sh.items[senderID]
	var current State
	if ok {
		current = el.Value.(*entry).state
		if s.expired(current, now) {
			current, ok = State{}, false
		}
	}

	next := fn(current, ok)
	if !ok || next.FirstSeen.IsZero() {
		if ok {
			next.FirstSeen = current.FirstSeen
		} else {
			next.FirstSeen = now
		}
	}
	next.UpdatedAt = now

	if el != nil {
		el.Value.(*entry).state = next
		sh.order.MoveToFront(el)
	} else {
		sh.items[senderID] = sh.order.PushFront(&entry{key: senderID, state: next})
		s.evictOverflow(sh)
	}
	return next
}

// evictOverflow must be called with the shard lock held.
func (s *MemoryStore) evictOverflow(sh *shard) {
	if s.capacity <= 0 {
		return
	}
	for sh.order.Len() > s.capacity {
		oldest := sh.order.Back()
		e := oldest.Value.(*entry)
		sh.order.Remove(oldest)
		delete(sh.items, e.key)
		s.log.Debug("Evicted conversation at capacity", logger.SenderField(e.key))
	}
}

func (s *MemoryStore) Len() int {
	now := s.now()
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for el := sh.order.Front(); el != nil; el = el.Next() {
			if !s.expired(el.Value.(*entry).state, now) {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes expired entries and returns how many were removed. Entries
// are ordered by update time, so each shard is scanned from the back until a
// live entry is found.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for el := sh.order.Back(); el != nil; {
			e := el.Value.(*entry)
			if !s.expired(e.state, now) {
				break
			}
			prev := el.Prev()
			sh.order.Remove(el)
			delete(sh.items, e.key)
			removed++
			el = prev
		}
		sh.mu.Unlock()
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("Conversation janitor started",
		logger.DurationField("interval", interval),
		logger.DurationField("ttl", s.ttl))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Conversation janitor stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("Expired conversations removed", logger.IntField("count", n))
			}
		}
	}
}
