package samlsp

import (
	"sync"
	"time"

	"github.com/quillauth/samlbridge"
)

// trackedRequestTTL bounds how long an outstanding AuthnRequest ID waits
// for its response before the tracker forgets it.
const trackedRequestTTL = 5 * time.Minute

// RequestTracker remembers the IDs of authentication requests this service
// provider has issued. Each ID can be consumed at most once, which rejects
// both fabricated InResponseTo values and replays of a genuine response.
type RequestTracker struct {
	mu      sync.Mutex
	pending map[string]time.Time
	seen    map[string]time.Time
}

func NewRequestTracker() *RequestTracker {
	return &RequestTracker{
		pending: map[string]time.Time{},
		seen:    map[string]time.Time{},
	}
}

// Track records id as an outstanding request.
func (t *RequestTracker) Track(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evict()
	t.pending[id] = samlbridge.TimeNow().Add(trackedRequestTTL)
}

// Consume spends id. It reports true only for an ID that was tracked, has
// not expired, and has not been consumed before.
func (t *RequestTracker) Consume(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, ok := t.pending[id]
	if !ok {
		return false
	}
	delete(t.pending, id)
	return samlbridge.TimeNow().Before(deadline)
}

// ConsumeAssertion records an assertion ID and reports whether it was seen
// for the first time. A repeated ID inside its validity window is a replay.
func (t *RequestTracker) ConsumeAssertion(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[id]; ok {
		return false
	}
	t.seen[id] = samlbridge.TimeNow().Add(trackedRequestTTL)
	return true
}

// evict drops expired entries. Caller holds mu.
func (t *RequestTracker) evict() {
	now := samlbridge.TimeNow()
	for id, deadline := range t.pending {
		if !now.Before(deadline) {
			delete(t.pending, id)
		}
	}
	for id, deadline := range t.seen {
		if !now.Before(deadline) {
			delete(t.seen, id)
		}
	}
}
