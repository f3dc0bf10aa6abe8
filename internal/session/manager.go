// Package session tracks who is signed in for the lifetime of a client
// process and which role they hold.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/models"
)

type State int

const (
	Unauthenticated State = iota
	// Authenticating means a session is known but its role is still loading.
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Event is a session change; a nil User means signed out.
type Event struct {
	User *User
}

// Source is the auth backend: it owns credentials and reports changes.
type Source interface {
	CurrentSession(ctx context.Context) (*User, error)
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

// ProfileFetcher looks up the role stored on a user's profile.
type ProfileFetcher interface {
	FetchRole(ctx context.Context, userID string) (string, error)
}

type Snapshot struct {
	State State
	User  *User
	Role  string
}

// IsAdmin reports whether the snapshot grants admin pages.
func (s Snapshot) IsAdmin() bool {
	return s.State == Authenticated && s.Role == models.RoleAdmin
}

type Manager struct {
	src      Source
	profiles ProfileFetcher
	log      zerolog.Logger

	mu      sync.Mutex
	state   State
	user    *User
	role    string
	gen     uint64
	changed chan struct{}

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewManager returns a manager in the Authenticating state; Start resolves
// the existing session.
func NewManager(src Source, profiles ProfileFetcher, logger zerolog.Logger) *Manager {
	return &Manager{
		src:      src,
		profiles: profiles,
		log:      logger,
		state:    Authenticating,
		changed:  make(chan struct{}),
	}
}

// Start subscribes to session changes and applies the current session. A
// session that cannot be restored leaves the manager signed out.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.unsubscribe = m.src.Subscribe(func(ev Event) { m.apply(ev.User) })

	u, err := m.src.CurrentSession(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("could not restore session")
		u = nil
	}
	m.apply(u)
}

// Close stops listening for changes and waits for in-flight role lookups.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	return m.src.SignIn(ctx, email, password)
}

// SignOut forgets the user and role before the backend is told, so nothing
// observes a signed-in state once SignOut has been called.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.setLocked(Unauthenticated, nil, "")
	m.mu.Unlock()
	return m.src.SignOut(ctx)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Wait blocks until the role of the current session is known.
func (m *Manager) Wait(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		if m.state != Authenticating {
			s := m.snapshotLocked()
			m.mu.Unlock()
			return s, nil
		}
		ch := m.changed
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		}
	}
}

func (m *Manager) apply(u *User) {
	m.mu.Lock()
	m.gen++
	if u == nil {
		m.setLocked(Unauthenticated, nil, "")
		m.mu.Unlock()
		return
	}
	gen := m.gen
	m.setLocked(Authenticating, u, "")
	m.wg.Add(1)
	m.mu.Unlock()

	go m.resolveRole(gen, u.ID)
}

func (m *Manager) resolveRole(gen uint64, userID string) {
	defer m.wg.Done()

	role, err := m.profiles.FetchRole(m.ctx, userID)
	if err != nil || role == "" {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("role lookup failed, using default role")
		role = models.RoleUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.setLocked(Authenticated, m.user, role)
}

func (m *Manager) setLocked(state State, u *User, role string) {
	m.state, m.user, m.role = state, u, role
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Manager) snapshotLocked() Snapshot {
	var u *User
	if m.user != nil {
		cp := *m.user
		u = &cp
	}
	return Snapshot{State: m.state, User: u, Role: m.role}
}
