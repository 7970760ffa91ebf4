package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"booking/internal/api"
	"booking/internal/auth"
	"booking/internal/logger"
)

var (
	// ErrNotAuthenticated is returned by gates when nobody is signed in.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrAdminRequired is returned by admin gates for non-admin users.
	ErrAdminRequired = errors.New("admin access required")
)

// Authenticator exchanges credentials for a token and user record.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, email, password, name, role string) (*api.AuthResponse, error)
}

// identity is immutable once published; the manager swaps whole values.
type identity struct {
	token string
	user  api.User
}

// Manager holds the process-wide identity and keeps it in sync with the store.
type Manager struct {
	store Store
	auth  Authenticator
	cur   atomic.Pointer[identity]
	now   func() time.Time
	log   zerolog.Logger
}

var _ api.TokenSource = (*Manager)(nil)

// NewManager starts anonymous; call Restore to pick up a persisted session.
func NewManager(store Store, authenticator Authenticator) *Manager {
	return &Manager{
		store: store,
		auth:  authenticator,
		now:   time.Now,
		log:   logger.Component("session"),
	}
}

// Restore initializes the identity from storage. A missing session is not an
// error. A token whose expiry has passed is dropped and the store cleared.
func (m *Manager) Restore(ctx context.Context) error {
	snap, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		m.cur.Store(nil)
		return nil
	}
	if err != nil {
		m.cur.Store(nil)
		return fmt.Errorf("restore session: %w", err)
	}

	if claims, derr := auth.Decode(snap.Token); derr == nil && claims.Expired(m.now()) {
		m.log.Info().Str("email", snap.User.Email).Time("expired_at", claims.Expiry()).Msg("stored session expired")
		m.cur.Store(nil)
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.log.Warn().Err(cerr).Msg("failed to clear expired session")
		}
		return nil
	}

	m.cur.Store(&identity{token: snap.Token, user: snap.User})
	return nil
}

// Login authenticates and replaces the identity.
func (m *Manager) Login(ctx context.Context, email, password string) (api.User, error) {
	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}
	return m.adopt(ctx, resp)
}

// Register creates an account and signs in as it. Role defaults to student.
func (m *Manager) Register(ctx context.Context, email, password, name, role string) (api.User, error) {
	if role == "" {
		role = api.RoleStudent
	}
	resp, err := m.auth.Register(ctx, email, password, name, role)
	if err != nil {
		return api.User{}, err
	}
	return m.adopt(ctx, resp)
}

func (m *Manager) adopt(ctx context.Context, resp *api.AuthResponse) (api.User, error) {
	if resp == nil || resp.AccessToken == "" {
		return api.User{}, errors.New("server returned no access token")
	}
	if err := m.store.Save(ctx, Snapshot{Token: resp.AccessToken, User: resp.User}); err != nil {
		return api.User{}, fmt.Errorf("persist session: %w", err)
	}
	m.cur.Store(&identity{token: resp.AccessToken, user: resp.User})
	m.log.Info().Str("email", resp.User.Email).Str("role", resp.User.Role).Msg("signed in")
	return resp.User, nil
}

// Logout forgets the identity locally. The server is not contacted.
func (m *Manager) Logout(ctx context.Context) error {
	m.cur.Store(nil)
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the signed-in user, if any.
func (m *Manager) CurrentUser() (api.User, bool) {
	id := m.cur.Load()
	if id == nil {
		return api.User{}, false
	}
	return id.user, true
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	id := m.cur.Load()
	if id == nil {
		return ""
	}
	return id.token
}

// IsAuthenticated reports whether someone is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.cur.Load() != nil
}

// IsAdmin reports whether the signed-in user is an admin.
func (m *Manager) IsAdmin() bool {
	u, ok := m.CurrentUser()
	return ok && u.IsAdmin()
}

// RequireUser gates views that need any signed-in user.
func (m *Manager) RequireUser() (api.User, error) {
	u, ok := m.CurrentUser()
	if !ok {
		return api.User{}, ErrNotAuthenticated
	}
	return u, nil
}

// RequireAdmin gates admin-only views.
func (m *Manager) RequireAdmin() (api.User, error) {
	u, err := m.RequireUser()
	if err != nil {
		return api.User{}, err
	}
	if !u.IsAdmin() {
		return api.User{}, ErrAdminRequired
	}
	return u, nil
}
