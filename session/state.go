package session

import (
	"time"

	"github.com/jrsteele09/go-directory-session/directory"
)

// State is the authentication state of a session.
type State int

const (
	// StateUnknown is held until startup recovery settles. Observers should
	// treat it as loading.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the session at one point in time.
// AccessExpiry is zero when the session is not authenticated or the access
// token carries no readable exp claim.
type Snapshot struct {
	State           State
	Profile         *directory.UserProfile
	IsAuthenticated bool
	IsAdmin         bool
	AccessExpiry    time.Time
}

func newSnapshot(state State, profile *directory.UserProfile, expiry time.Time) Snapshot {
	snap := Snapshot{State: state}
	if state == StateAuthenticated && profile != nil {
		p := *profile
		snap.Profile = &p
		snap.IsAuthenticated = true
		snap.IsAdmin = p.IsAdmin()
		snap.AccessExpiry = expiry
	}
	return snap
}

func (s Snapshot) clone() Snapshot {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

// Result reports the outcome of a user initiated operation. Message is set
// on failure; Fields holds per-field validation messages when the server
// returned them.
type Result struct {
	Success bool
	Message string
	Fields  map[string]string
}

func success() Result {
	return Result{Success: true}
}

func failure(err error) Result {
	e := directory.Normalize(err)
	return Result{Message: e.Message(), Fields: e.FieldErrors()}
}

// Listener is called with the new snapshot after every state transition.
type Listener func(Snapshot)
