package inmemory

import (
	"sync"
	"time"
)

const defaultTrackerTTL = 10 * time.Minute

// SessionTracker marks users whose account deletion is running. Marks expire
// after ttl so a crashed deletion never blocks the user forever.
type SessionTracker struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]time.Time
	now   func() time.Time
}

func NewSessionTracker(ttl time.Duration) *SessionTracker {
	if ttl <= 0 {
		ttl = defaultTrackerTTL
	}
	return &SessionTracker{
		ttl:   ttl,
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (t *SessionTracker) Begin(userID string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if expiresAt, ok := t.items[userID]; ok && expiresAt.After(now) {
		return false
	}
	t.items[userID] = now.Add(t.ttl)
	return true
}

func (t *SessionTracker) End(userID string) {
	t.mu.Lock()
	delete(t.items, userID)
	t.mu.Unlock()
}

func (t *SessionTracker) InProgress(userID string) bool {
	now := t.now()

	t.mu.RLock()
	expiresAt, ok := t.items[userID]
	t.mu.RUnlock()
	if !ok {
		return false
	}

	if !expiresAt.After(now) {
		t.mu.Lock()
		expiresAt, ok = t.items[userID]
		if ok && !expiresAt.After(now) {
			delete(t.items, userID)
		}
		t.mu.Unlock()
		return false
	}
	return true
}
