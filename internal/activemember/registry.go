package activemember

import (
	"log"
	"sync"

	"famhealth/internal/models"
	"famhealth/internal/session"
)

// Registry keeps one Store per session id
type Registry struct {
	mu          sync.Mutex
	stores      map[string]*Store
	provider    *session.Provider
	unsubscribe func()
}

// NewRegistry creates a registry watching the given session provider
func NewRegistry(provider *session.Provider) *Registry {
	r := &Registry{stores: make(map[string]*Store), provider: provider}
	r.unsubscribe = provider.Subscribe(r.handle)
	return r
}

// Close stops watching the session provider
func (r *Registry) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

func (r *Registry) handle(e session.Event) {
	switch e.Kind {
	case session.SignedIn, session.Refreshed:
		r.For(e.Session)
	case session.SignedOut:
		r.mu.Lock()
		store, ok := r.stores[e.Session.ID]
		delete(r.stores, e.Session.ID)
		r.mu.Unlock()
		if ok {
			store.clear()
		}
	}
}

// For returns the store for a session, creating and initializing it if the
// registry has not seen the session yet (for example after a restart).
// ok is false when the provider no longer knows the session, so a request
// racing a sign-out cannot leave an orphaned store behind.
func (r *Registry) For(sess models.Session) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.provider.Current(sess.ID); !live {
		return nil, false
	}
	store, ok := r.stores[sess.ID]
	if !ok {
		store = &Store{}
		r.stores[sess.ID] = store
	}
	store.observe(sess)
	return store, true
}

// ResetMember points every store of userID that selected memberID back at
// Self. It returns how many stores changed.
func (r *Registry) ResetMember(userID, memberID string) int {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()

	reset := 0
	for _, s := range stores {
		if s.UserID() != userID {
			continue
		}
		if s.fallBack(memberID) {
			reset++
		}
	}
	if reset > 0 {
		log.Printf("Active member %s removed, %d session(s) reset to Self", memberID, reset)
	}
	return reset
}
