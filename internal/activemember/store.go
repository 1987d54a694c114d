// Package activemember tracks which profile record operations act on.
//
// A Store holds at most one ActiveMember. Stores are only created by a
// Registry, which subscribes to the session provider before handing any
// store out, so a store can never exist without its session watcher.
package activemember

import (
	"sync"

	"famhealth/internal/models"
)

// Store holds the current selection for one session
type Store struct {
	mu     sync.RWMutex
	userID string
	member *models.ActiveMember
}

// Get returns the current selection. ok is false before a session exists.
func (s *Store) Get() (models.ActiveMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.member == nil {
		return models.ActiveMember{}, false
	}
	return *s.member, true
}

// Set replaces the current selection unconditionally.
// Callers pass identifiers they have already resolved.
func (s *Store) Set(member models.ActiveMember) {
	m := member
	s.mu.Lock()
	s.member = &m
	s.mu.Unlock()
}

// UserID returns the account the store belongs to
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// observe applies the initialization rule: a present session selects Self
// only when nothing is selected yet.
func (s *Store) observe(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = sess.UserID
	if s.member == nil {
		self := models.SelfMember(sess.UserID)
		s.member = &self
	}
}

func (s *Store) clear() {
	s.mu.Lock()
	s.member = nil
	s.mu.Unlock()
}

// fallBack resets the selection to Self when it points at memberID
func (s *Store) fallBack(memberID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == nil || s.member.IsSelf() || s.member.ID != memberID {
		return false
	}
	self := models.SelfMember(s.userID)
	s.member = &self
	return true
}
