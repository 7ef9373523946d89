package services

import (
	"sort"
	"sync"
)

// TypingRegistry maps a room to the users currently flagged as typing in it.
type TypingRegistry struct {
	mu    sync.RWMutex
	rooms map[int64]map[int64]struct{}
}

func NewTypingRegistry() *TypingRegistry {
	return &TypingRegistry{rooms: make(map[int64]map[int64]struct{})}
}

func (t *TypingRegistry) Start(roomID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := t.rooms[roomID]
	if users == nil {
		users = make(map[int64]struct{})
		t.rooms[roomID] = users
	}
	users[userID] = struct{}{}
}

// Stop clears the flag and reports whether the user was typing.
func (t *TypingRegistry) Stop(roomID, userID int64) (wasTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(roomID, userID)
}

// ClearUser removes the user from every room and returns the affected rooms.
func (t *TypingRegistry) ClearUser(userID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var cleared []int64
	for roomID := range t.rooms {
		if t.removeLocked(roomID, userID) {
			cleared = append(cleared, roomID)
		}
	}
	sort.Slice(cleared, func(i, j int) bool { return cleared[i] < cleared[j] })
	return cleared
}

func (t *TypingRegistry) IsTyping(roomID, userID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

// TypingUsersIn returns a sorted copy, safe to range over while broadcasting.
func (t *TypingRegistry) TypingUsersIn(roomID int64) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int64, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *TypingRegistry) removeLocked(roomID, userID int64) bool {
	users, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := users[userID]; !ok {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}
