// Package session holds the in-memory authoritative snapshot of the signed-in
// user together with the lifecycle state and the session version that guards
// wholesale replacements.
package session

import (
	"slices"
	"sync"

	"chitieu/internal/core"
)

type State int

const (
	LoggedOut State = iota
	LoggingIn
	Active
	Syncing
	LoggingOut
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case LoggingIn:
		return "logging_in"
	case Active:
		return "active"
	case Syncing:
		return "syncing"
	case LoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// SignedIn reports whether a user snapshot is loaded. Syncing is a sub-state
// of Active.
func (s State) SignedIn() bool {
	return s == Active || s == Syncing
}

// Session is safe for concurrent use. The lock is only held for in-memory
// work, never across remote or cache calls.
type Session struct {
	mu      sync.Mutex
	state   State
	version uint64
	user    *core.User
}

func New() *Session {
	return &Session{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns a copy of the current user, or false when logged out.
func (s *Session) Snapshot() (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return core.User{}, false
	}
	return s.user.Clone(), true
}

// Transition moves to next when the current state is one of from. It returns
// the previous state, the current version and whether the move happened.
func (s *Session) Transition(next State, from ...State) (State, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	for _, f := range from {
		if f == prev {
			s.state = next
			return prev, s.version, true
		}
	}
	return prev, s.version, false
}

// TransitionIf moves to next only if the version is unchanged and the state
// is one of from.
func (s *Session) TransitionIf(version uint64, next State, from ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	for _, f := range from {
		if f == s.state {
			s.state = next
			return true
		}
	}
	return false
}

// Activate installs u as the signed-in snapshot and starts a new session
// version. It returns the new version.
func (s *Session) Activate(u core.User) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := u.Clone()
	s.user = &c
	s.state = Active
	s.version++
	return s.version
}

// ActivateIf is Activate guarded by the version captured when the caller
// started its remote work and by the states it expects to activate from.
// Moving into LoggingIn keeps the version, so the state check is what stops
// a second activation from landing in the middle of a login.
func (s *Session) ActivateIf(version uint64, u core.User, from ...State) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || !slices.Contains(from, s.state) {
		return s.version, false
	}
	c := u.Clone()
	s.user = &c
	s.state = Active
	s.version++
	return s.version, true
}

// ReplaceIf overwrites the snapshot wholesale when version still matches and
// a user is signed in. The version is kept so the caller's session continues.
func (s *Session) ReplaceIf(version uint64, u core.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || s.user == nil {
		return false
	}
	c := u.Clone()
	s.user = &c
	return true
}

// CompleteSync ends a sync started under version. A non-nil u replaces the
// snapshot wholesale. The state returns to Active only if it is still
// Syncing. It reports whether the session was still current.
func (s *Session) CompleteSync(version uint64, u *core.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || s.user == nil {
		return false
	}
	if u != nil {
		c := u.Clone()
		s.user = &c
	}
	if s.state == Syncing {
		s.state = Active
	}
	return true
}

// Reset clears the snapshot, moves to LoggedOut and invalidates every
// pending replacement.
func (s *Session) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.state = LoggedOut
	s.version++
	return s.version
}

// ResetIf is Reset guarded by version.
func (s *Session) ResetIf(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	s.user = nil
	s.state = LoggedOut
	s.version++
	return true
}

// Mutate applies fn to a copy of the signed-in snapshot and commits the copy
// when fn succeeds. Rejected mutations leave the snapshot untouched.
func (s *Session) Mutate(fn func(u *core.User) error) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || !s.state.SignedIn() {
		return core.User{}, core.ErrNotLoggedIn
	}
	next := s.user.Clone()
	if err := fn(&next); err != nil {
		return core.User{}, err
	}
	s.user = &next
	return next.Clone(), nil
}
