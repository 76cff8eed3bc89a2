package chat

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the resolved outcome of a clear-all confirmation round-trip.
// The wait itself happens at the transport; the core only consumes the
// decision.
type Decision int

const (
	DecisionConfirmed Decision = iota
	DecisionCancelled
	DecisionTimedOut
)

func (d Decision) String() string {
	switch d {
	case DecisionConfirmed:
		return "confirmed"
	case DecisionCancelled:
		return "cancelled"
	case DecisionTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// ConfirmWindow bounds how long a pending clear-all stays resolvable.
const ConfirmWindow = 30 * time.Second

// ConfirmStore tracks awaiting-confirmation state for clear-all requests,
// keyed by (channel, actor).
type ConfirmStore interface {
	Save(channelID, actorID string, ttl time.Duration)
	// Consume validates and removes the pending state. False means there was
	// no live pending clear, i.e. the window had elapsed.
	Consume(channelID, actorID string) bool
}

func pendingKey(channelID, actorID string) string {
	return "clear:pending:" + channelID + ":" + actorID
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > ConfirmWindow {
		return ConfirmWindow
	}
	return ttl
}

// MemoryConfirmStore is the single-instance fallback.
type MemoryConfirmStore struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

func NewMemoryConfirmStore() *MemoryConfirmStore {
	return &MemoryConfirmStore{pending: map[string]time.Time{}}
}

func (m *MemoryConfirmStore) Save(channelID, actorID string, ttl time.Duration) {
	m.mu.Lock()
	m.pending[pendingKey(channelID, actorID)] = time.Now().Add(clampTTL(ttl))
	m.mu.Unlock()
}

func (m *MemoryConfirmStore) Consume(channelID, actorID string) bool {
	key := pendingKey(channelID, actorID)
	m.mu.Lock()
	deadline, ok := m.pending[key]
	if ok {
		delete(m.pending, key)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	return time.Now().Before(deadline)
}

// RedisConfirmStore keeps pending state in Redis with TTL so multiple
// instances agree on the window. Falls back to memory when Redis errors.
type RedisConfirmStore struct {
	rc       *redis.Client
	fallback *MemoryConfirmStore
}

func NewRedisConfirmStore(rc *redis.Client) *RedisConfirmStore {
	return &RedisConfirmStore{rc: rc, fallback: NewMemoryConfirmStore()}
}

func (r *RedisConfirmStore) Save(channelID, actorID string, ttl time.Duration) {
	ttl = clampTTL(ttl)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rc.Set(ctx, pendingKey(channelID, actorID), "1", ttl).Err(); err != nil {
		r.fallback.Save(channelID, actorID, ttl)
	}
}

func (r *RedisConfirmStore) Consume(channelID, actorID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// GETDEL ensures single use
	if v, err := r.rc.GetDel(ctx, pendingKey(channelID, actorID)).Result(); err == nil {
		return v != ""
	}
	return r.fallback.Consume(channelID, actorID)
}
