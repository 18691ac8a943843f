// Package registry holds the in-memory subscriber registry shared by the chat
// endpoint and the notification poller.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/wesm/github-issue-chat/internal/models"
)

// InitialLookback is how far back the first poll for a caller reaches when no
// watermark has been recorded yet.
const InitialLookback = time.Hour

// Registry maps caller identities to their subscription and watermark.
// All methods are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]models.Subscriber
	lastChecked map[string]time.Time
	now         func() time.Time
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		subscribers: make(map[string]models.Subscriber),
		lastChecked: make(map[string]time.Time),
		now:         time.Now,
	}
}

// SetClock overrides the time source
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Subscribe registers or replaces the caller's subscription and resets its
// watermark to now.
func (r *Registry) Subscribe(callerID, owner, repo string) models.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := models.Subscriber{
		CallerID: callerID,
		Owner:    owner,
		Repo:     repo,
		Enabled:  true,
	}
	r.subscribers[callerID] = sub
	r.lastChecked[callerID] = r.now()
	return sub
}

// Disable turns off the caller's subscription without removing it. It returns
// false when the caller has no subscription.
func (r *Registry) Disable(callerID string) (models.Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[callerID]
	if !ok {
		return models.Subscriber{}, false
	}
	sub.Enabled = false
	r.subscribers[callerID] = sub
	return sub, true
}

// Get returns the caller's subscription
func (r *Registry) Get(callerID string) (models.Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscribers[callerID]
	return sub, ok
}

// Enabled returns a snapshot of all enabled subscriptions ordered by caller.
func (r *Registry) Enabled() []models.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]models.Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		if sub.Enabled {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CallerID < subs[j].CallerID })
	return subs
}

// LastChecked returns the caller's watermark, recording now minus
// InitialLookback if none exists.
func (r *Registry) LastChecked(callerID string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lastChecked[callerID]
	if !ok {
		t = r.now().Add(-InitialLookback)
		r.lastChecked[callerID] = t
	}
	return t
}

// Advance moves the caller's watermark forward to t. Watermarks never move
// backwards, so a slow poll cannot undo a newer Subscribe.
func (r *Registry) Advance(callerID string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.lastChecked[callerID]; ok && !t.After(cur) {
		return
	}
	r.lastChecked[callerID] = t
}

// Now returns the registry's current time
func (r *Registry) Now() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now()
}
