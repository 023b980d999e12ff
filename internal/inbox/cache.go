package inbox

import (
	"sync"

	"remoasset/internal/model"
)

// SessionCache holds the last successful aggregation result for exactly one
// user. It lives for the process lifetime (nothing is persisted) and a Set
// for a different user evicts the previous slot, so switching users is an
// implicit invalidation.
type SessionCache struct {
	mu      sync.Mutex
	userID  string
	threads []model.ThreadSummary
}

func NewSessionCache() *SessionCache {
	return &SessionCache{}
}

// Get returns a copy of the cached summaries for userID, or nil on a miss.
func (c *SessionCache) Get(userID string) []model.ThreadSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if userID == "" || userID != c.userID || len(c.threads) == 0 {
		return nil
	}
	out := make([]model.ThreadSummary, len(c.threads))
	copy(out, c.threads)
	return out
}

// Set replaces the cache slot with userID's result.
func (c *SessionCache) Set(userID string, threads []model.ThreadSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.threads = make([]model.ThreadSummary, len(threads))
	copy(c.threads, threads)
}
