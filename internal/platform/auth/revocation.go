package auth

import (
	"sync"
	"time"
)

// Revocations remembers signed-out token IDs until the tokens would have
// expired anyway. Expired entries are purged on write.
type Revocations struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> token expiry
	now     func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{entries: make(map[string]time.Time), now: time.Now}
}

func (r *Revocations) Revoke(jti string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.entries {
		if now.After(exp) {
			delete(r.entries, id)
		}
	}
	r.entries[jti] = expiresAt
}

func (r *Revocations) IsRevoked(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[jti]
	return ok
}

// Len returns the number of tracked revocations.
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
