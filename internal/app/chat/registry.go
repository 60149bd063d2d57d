package chat

import (
	"slices"
	"sync"
	"time"

	"floritechat/internal/pkg/errs"
)

// Audience selects the recipients of a broadcast. Empty fields do not filter.
type Audience struct {
	Room      string
	ExcludeID string
}

// Everyone addresses every registered session.
var Everyone = Audience{}

// Registry owns every live session and the set of names held by authenticated sessions.
// All mutation happens under mu; callers receive copies and do I/O after the lock is released.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	online   map[string]string // display name -> session id
	nextSeq  uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		online:   make(map[string]string),
	}
}

// Register adds s. Re-registering a present id is a no-op.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return
	}
	r.nextSeq++
	s.mu.Lock()
	s.seq = r.nextSeq
	s.mu.Unlock()
	r.sessions[s.ID] = s
}

// Unregister removes the session and releases its name. It reports whether the session
// was present, so only the first caller announces the departure.
func (r *Registry) Unregister(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	r.removeLocked(s)
	return s, true
}

// RemoveBatch removes every present session among ids in one critical section and
// returns the removed ones in join order.
func (r *Registry) RemoveBatch(ids []string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			r.removeLocked(s)
			removed = append(removed, s)
		}
	}
	sortBySeq(removed)
	return removed
}

func (r *Registry) removeLocked(s *Session) {
	delete(r.sessions, s.ID)

	s.mu.RLock()
	name, authed := s.name, s.authenticated
	s.mu.RUnlock()

	if authed && r.online[name] == s.ID {
		delete(r.online, name)
	}
}

// Snapshot returns the sessions matching a, in join order.
func (r *Registry) Snapshot(a Audience) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if a.ExcludeID != "" && id == a.ExcludeID {
			continue
		}
		if a.Room != "" && s.Room() != a.Room {
			continue
		}
		out = append(out, s)
	}
	sortBySeq(out)
	return out
}

// ClaimName authenticates s under name. It fails with ErrDuplicateSession when another
// session holds the name and ErrAlreadyLoggedIn when s is already authenticated.
func (r *Registry) ClaimName(s *Session, name, userID, avatar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return errs.NewError(errs.ErrNotLoggedIn)
	}
	if s.Authenticated() {
		return errs.NewError(errs.ErrAlreadyLoggedIn)
	}
	if _, taken := r.online[name]; taken {
		return errs.NewError(errs.ErrDuplicateSession)
	}

	r.online[name] = s.ID

	s.mu.Lock()
	s.name = name
	s.userID = userID
	s.avatar = avatar
	s.authenticated = true
	s.mu.Unlock()

	return nil
}

// MoveRoom changes the room of s and returns the previous one.
func (r *Registry) MoveRoom(s *Session, room string) (previous string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	previous = s.room
	if previous == room {
		return previous, false
	}
	s.room = room
	return previous, true
}

// Touch records inbound activity on s.
func (r *Registry) Touch(s *Session, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	s.lastActivity = at
	s.mu.Unlock()
}

// FindOnline resolves an authenticated display name to its session.
func (r *Registry) FindOnline(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.online[name]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// OnlineNames returns the sorted names of authenticated sessions.
func (r *Registry) OnlineNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.online))
	for name := range r.online {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func sortBySeq(sessions []*Session) {
	slices.SortFunc(sessions, func(a, b *Session) int {
		a.mu.RLock()
		sa := a.seq
		a.mu.RUnlock()
		b.mu.RLock()
		sb := b.seq
		b.mu.RUnlock()
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	})
}
