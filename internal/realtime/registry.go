// Package realtime fans group events out to live websocket connections.
//
// Presence here is advisory: the registry is in-memory, per process, and never
// the source of truth for anything the REST read path returns.
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber is a connection that can receive encoded event messages.
// Send must not block; it reports false when the message was not queued.
type Subscriber interface {
	ID() string
	Send(msg []byte) bool
}

// Registry maps group IDs to the subscribers currently viewing them.
// A subscriber is a member of at most one room at a time.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[Subscriber]struct{}
	memberOf map[Subscriber]string
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:    make(map[string]map[Subscriber]struct{}),
		memberOf: make(map[Subscriber]string),
		logger:   logger,
	}
}

// Join moves sub into the room for groupID, leaving any room it was in before
func (r *Registry) Join(sub Subscriber, groupID string) {
	if sub == nil || groupID == "" {
		r.logger.Warn("ignoring join with empty subscriber or group")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberOf[sub]; ok {
		if current == groupID {
			return
		}
		r.removeLocked(sub, current)
	}

	members := r.rooms[groupID]
	if members == nil {
		members = make(map[Subscriber]struct{})
		r.rooms[groupID] = members
	}
	members[sub] = struct{}{}
	r.memberOf[sub] = groupID

	r.logger.Debug("joined room", zap.String("subscriber", sub.ID()), zap.String("group_id", groupID))
}

// Leave removes sub from the room for groupID. Not being a member is a no-op.
func (r *Registry) Leave(sub Subscriber, groupID string) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberOf[sub]; !ok || current != groupID {
		r.logger.Debug("leave for room not joined", zap.String("subscriber", sub.ID()), zap.String("group_id", groupID))
		return
	}
	r.removeLocked(sub, groupID)
}

// Disconnect removes sub from every room it belongs to
func (r *Registry) Disconnect(sub Subscriber) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberOf[sub]; ok {
		r.removeLocked(sub, current)
	}
}

// RoomOf returns the group sub is currently joined to
func (r *Registry) RoomOf(sub Subscriber) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groupID, ok := r.memberOf[sub]
	return groupID, ok
}

// Members returns a snapshot of the subscribers in the room for groupID
func (r *Registry) Members(groupID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Subscriber, 0, len(r.rooms[groupID]))
	for sub := range r.rooms[groupID] {
		members = append(members, sub)
	}
	return members
}

// Stats returns the number of non-empty rooms and of subscribers in them
func (r *Registry) Stats() (rooms, subscribers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), len(r.memberOf)
}

// each calls fn for every member of the room under the read lock
func (r *Registry) each(groupID string, fn func(Subscriber)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sub := range r.rooms[groupID] {
		fn(sub)
	}
}

func (r *Registry) removeLocked(sub Subscriber, groupID string) {
	delete(r.memberOf, sub)

	members := r.rooms[groupID]
	if members == nil {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(r.rooms, groupID)
	}
}
