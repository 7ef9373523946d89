package services

import (
	"sort"
	"sync"
)

type connSet map[string]struct{}

// online is the single definition of presence: a user is online iff it has
// at least one live connection.
func online(set connSet) bool {
	return len(set) > 0
}

// PresenceRegistry maps a user to the set of its live connection ids.
type PresenceRegistry struct {
	mu    sync.RWMutex
	users map[int64]connSet
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{users: make(map[int64]connSet)}
}

// Add registers connID for userID and reports whether this was the user's
// first live connection.
func (p *PresenceRegistry) Add(userID int64, connID string) (cameOnline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.users[userID]
	wasOnline := online(set)
	if set == nil {
		set = make(connSet)
		p.users[userID] = set
	}
	set[connID] = struct{}{}
	return !wasOnline
}

// Remove drops connID and reports whether it was the user's last live
// connection. Removing an unknown connection is a no-op.
func (p *PresenceRegistry) Remove(userID int64, connID string) (wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.users[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if online(set) {
		return false
	}
	delete(p.users, userID)
	return true
}

func (p *PresenceRegistry) IsOnline(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return online(p.users[userID])
}

// Connections returns a snapshot of the user's connection ids.
func (p *PresenceRegistry) Connections(userID int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.users[userID]))
	for id := range p.users[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OnlineUsers returns a sorted snapshot of every online user id.
func (p *PresenceRegistry) OnlineUsers() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int64, 0, len(p.users))
	for id := range p.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns the number of online users.
func (p *PresenceRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// ConnectionCount returns the number of live connections across all users.
func (p *PresenceRegistry) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, set := range p.users {
		n += len(set)
	}
	return n
}
