package matchmaker

import "sync"

// Registry tracks which connections belong to which session key.
// It holds no knowledge of message content, only membership.
//
// A connection may be a member of several sessions at once: nothing
// stops a client from sending messages under distinct keys, and that
// is treated as intended flexibility rather than an error.
//
// A single coarse lock guards the whole table. Sessions are typically
// two peers, so every operation is near-constant and contention is low.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]map[*Client]struct{}
}

// Farewell pairs a session key with the members left in it after
// somebody's departure, so the caller can notify them.
type Farewell struct {
	Key     string
	Members []*Client
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]map[*Client]struct{})}
}

// Join adds the client to the session, creating the session on first
// reference. Joining twice has no additional effect.
func (r *Registry) Join(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.sessions[key]
	if !ok {
		members = make(map[*Client]struct{}, 2)
		r.sessions[key] = members
	}
	members[c] = struct{}{}
}

// MembersExcluding returns a snapshot of the session members other
// than the given client, in no particular order.
func (r *Registry) MembersExcluding(key string, c *Client) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.sessions[key]
	if len(members) == 0 {
		return nil
	}
	others := make([]*Client, 0, len(members)-1)
	for m := range members {
		if m != c {
			others = append(others, m)
		}
	}
	return others
}

// Leave removes the client from every session it belongs to.
// Sessions left empty are deleted on the spot, the registry never
// keeps a session without members. For each session that survives,
// the remaining members are returned for notification.
func (r *Registry) Leave(c *Client) []Farewell {
	r.mu.Lock()
	defer r.mu.Unlock()
	var farewells []Farewell
	for key, members := range r.sessions {
		if _, ok := members[c]; !ok {
			continue
		}
		delete(members, c)
		if len(members) == 0 {
			delete(r.sessions, key)
			continue
		}
		left := make([]*Client, 0, len(members))
		for m := range members {
			left = append(left, m)
		}
		farewells = append(farewells, Farewell{Key: key, Members: left})
	}
	return farewells
}

// SessionCount returns the number of active sessions.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
