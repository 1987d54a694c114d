// Package session publishes authentication state changes to interested
// components. Listeners are invoked synchronously, in subscription order,
// on the goroutine that published the event.
package session

import (
	"sync"

	"famhealth/internal/models"
)

// EventKind identifies a session state transition
type EventKind int

const (
	// SignedIn fires when a new session is created
	SignedIn EventKind = iota + 1
	// Refreshed fires when an existing session is renewed or re-validated
	Refreshed
	// SignedOut fires when a session is deleted
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case Refreshed:
		return "refreshed"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Event describes one session transition
type Event struct {
	Kind    EventKind
	Session models.Session
}

// Listener receives session events
type Listener func(Event)

// Provider tracks live sessions and fans out events to listeners
type Provider struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	order     []int
	nextID    int
	current   map[string]models.Session
	loading   bool
}

// NewProvider creates a provider in the loading state
func NewProvider() *Provider {
	return &Provider{
		listeners: make(map[int]Listener),
		current:   make(map[string]models.Session),
		loading:   true,
	}
}

// Subscribe registers a listener and returns a function that removes it
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.order = append(p.order, id)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Publish records the transition and notifies every listener
func (p *Provider) Publish(e Event) {
	p.mu.Lock()
	switch e.Kind {
	case SignedIn, Refreshed:
		p.current[e.Session.ID] = e.Session
	case SignedOut:
		delete(p.current, e.Session.ID)
	}
	listeners := make([]Listener, 0, len(p.order))
	for _, id := range p.order {
		listeners = append(listeners, p.listeners[id])
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

// Current returns the last known state of a session
func (p *Provider) Current(sessionID string) (models.Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.current[sessionID]
	return s, ok
}

// Restore seeds the provider with sessions loaded at startup and leaves the
// loading state. Each restored session is published as Refreshed.
func (p *Provider) Restore(sessions []models.Session) {
	for _, s := range sessions {
		p.Publish(Event{Kind: Refreshed, Session: s})
	}
	p.mu.Lock()
	p.loading = false
	p.mu.Unlock()
}

// Loading reports whether the provider is still restoring persisted sessions
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}
