// Package flows tracks pending multi-step UI interactions: confirmation
// gates and pagination cursors, keyed by the owning user. Entries expire
// after a TTL so an abandoned prompt cannot pin state forever.
package flows

import (
	"sync"
	"time"
)

type Kind string

const (
	KindConfirmDelete Kind = "confirm_delete"
	KindPaginate      Kind = "paginate"
)

const DefaultTTL = 10 * time.Minute

// Pending is the stored intermediate state of one in-flight flow. Only the
// fields relevant to the kind are set.
type Pending struct {
	OwnerUserID string
	Kind        Kind
	ChannelID   string

	// confirm_delete
	Count int

	// paginate
	Page       int
	TotalPages int

	CreatedAt time.Time
}

type flowKey struct {
	user string
	kind Kind
}

// Registry is the process-wide pending-flow store. One entry per
// (user, kind); a new Put replaces any previous entry for that pair, so a
// user never accumulates concurrent cursors for the same flow.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[flowKey]Pending
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:     ttl,
		entries: make(map[flowKey]Pending),
		now:     time.Now,
	}
}

func (r *Registry) Put(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	r.entries[flowKey{user: p.OwnerUserID, kind: p.Kind}] = p
}

// Get returns the live entry for (user, kind). Expired entries are pruned
// and reported as absent.
func (r *Registry) Get(userID string, kind Kind) (Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(userID, kind)
}

// Take returns and removes the live entry for (user, kind).
func (r *Registry) Take(userID string, kind Kind) (Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.getLocked(userID, kind)
	if ok {
		delete(r.entries, flowKey{user: userID, kind: kind})
	}
	return p, ok
}

func (r *Registry) Remove(userID string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, flowKey{user: userID, kind: kind})
}

// Prune drops every expired entry and reports how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for k, p := range r.entries {
		if r.expiredLocked(p) {
			delete(r.entries, k)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) getLocked(userID string, kind Kind) (Pending, bool) {
	k := flowKey{user: userID, kind: kind}
	p, ok := r.entries[k]
	if !ok {
		return Pending{}, false
	}
	if r.expiredLocked(p) {
		delete(r.entries, k)
		return Pending{}, false
	}
	return p, true
}

func (r *Registry) expiredLocked(p Pending) bool {
	return r.now().Sub(p.CreatedAt) > r.ttl
}

// ClampPage folds a requested page index back into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
