package chat

import "sync"

// Registry is the process-wide presence map: user id to the set of live
// sessions. Maintained incrementally on connect and disconnect, read by
// the notification dispatcher. An identity with multiple devices has
// multiple sessions here.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]map[*Session]struct{}
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]map[*Session]struct{})}
}

// Add registers a session under its user id.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		r.byUser[s.UserID] = set
	}
	set[s] = struct{}{}
}

// Remove deregisters a session. Removing an absent session is a no-op,
// so teardown is idempotent.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[s.UserID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.byUser, s.UserID)
	}
}

// Sessions returns a snapshot of the user's live sessions.
func (r *Registry) Sessions(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	sessions := make([]*Session, 0, len(set))
	for s := range set {
		sessions = append(sessions, s)
	}
	return sessions
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sessions []*Session
	for _, set := range r.byUser {
		for s := range set {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// Online reports whether the user has at least one live session.
func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}
