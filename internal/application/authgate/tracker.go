package authgate

import "sync"

// SessionState is the client-side session lifecycle state.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateProfileLoading  SessionState = "profile_loading"
	StateProfileResolved SessionState = "profile_resolved"
)

// Decision is the answer a protected view acts on.
type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
)

// Tracker follows a client's session lifecycle. Authentication and profile
// resolution carry independent loading flags, so "signed in, profile still
// loading" reads as pending rather than denied.
type Tracker struct {
	mu             sync.Mutex
	identity       Identity
	state          SessionState
	authLoading    bool
	profileLoading bool
	onChange       func(SessionState, Identity)
}

// NewTracker starts in the unauthenticated state with authentication loading,
// the way a client looks before its stored session has been checked.
func NewTracker() *Tracker {
	return &Tracker{state: StateUnauthenticated, authLoading: true}
}

// OnChange registers fn to run after every transition.
func (t *Tracker) OnChange(fn func(SessionState, Identity)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// BeginAuth marks an authentication attempt in flight.
func (t *Tracker) BeginAuth() {
	t.update(func() { t.authLoading = true })
}

// SignIn records a successful authentication. The profile is loaded next.
func (t *Tracker) SignIn(id Identity) {
	t.update(func() {
		t.identity = Identity{User: id.User, SessionID: id.SessionID, IsAuthenticated: id.User != nil}
		t.authLoading = false
		if id.User == nil {
			t.state = StateUnauthenticated
			t.profileLoading = false
			return
		}
		t.state = StateProfileLoading
		t.profileLoading = true
	})
}

// AuthFailed ends an authentication attempt without a session.
func (t *Tracker) AuthFailed() {
	t.update(t.reset)
}

// ProfileResolved completes the lifecycle. It is ignored when signed out.
func (t *Tracker) ProfileResolved(id Identity) {
	t.update(func() {
		if !t.identity.IsAuthenticated {
			return
		}
		t.identity = NewIdentity(t.identity.User, id.Profile)
		t.identity.SessionID = id.SessionID
		t.state = StateProfileResolved
		t.profileLoading = false
	})
}

// ProfileFailed keeps the session but without admin capability.
func (t *Tracker) ProfileFailed() {
	t.update(func() {
		if !t.identity.IsAuthenticated {
			return
		}
		t.identity = NewIdentity(t.identity.User, nil)
		t.state = StateProfileResolved
		t.profileLoading = false
	})
}

func (t *Tracker) SignOut() { t.update(t.reset) }

// Expire handles a session that ended on the server side.
func (t *Tracker) Expire() { t.update(t.reset) }

func (t *Tracker) State() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Identity() Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

func (t *Tracker) AuthLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.authLoading
}

func (t *Tracker) ProfileLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profileLoading
}

// Decision answers whether an admin-only view may render.
func (t *Tracker) Decision() Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.authLoading:
		return DecisionPending
	case !t.identity.IsAuthenticated:
		return DecisionDenied
	case t.profileLoading:
		return DecisionPending
	case t.identity.IsAdmin:
		return DecisionAllowed
	default:
		return DecisionDenied
	}
}

func (t *Tracker) reset() {
	t.identity = Identity{}
	t.state = StateUnauthenticated
	t.authLoading = false
	t.profileLoading = false
}

func (t *Tracker) update(fn func()) {
	t.mu.Lock()
	fn()
	state, id, cb := t.state, t.identity, t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb(state, id)
	}
}
