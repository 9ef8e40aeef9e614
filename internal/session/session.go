// Package session owns the client's authentication state: the bearer token,
// the current user and whether startup hydration has finished.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/storage"
)

// Fallback messages when the backend gives none.
const (
	MsgLoginFailed    = "Unable to log in"
	MsgRegisterFailed = "Unable to register"
)

const defaultLogoutTimeout = 5 * time.Second

// ErrNotAuthenticated is returned by RequireUser when no user is signed in.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Phase tracks startup hydration. It only moves forward.
type Phase int

const (
	Uninitialized Phase = iota
	Hydrating
	Ready
)

func (p Phase) String() string {
	switch p {
	case Hydrating:
		return "hydrating"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Authenticator is the part of the API client the session drives.
type Authenticator interface {
	SetToken(token string)
	ClearScope()
	Login(ctx context.Context, creds panelapi.Credentials) (panelapi.AuthResponse, error)
	Register(ctx context.Context, p panelapi.Profile) (*panelapi.User, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context) (*panelapi.User, error)
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Token string
	User  *panelapi.User
	Phase Phase
	Busy  bool
}

// Initialized reports whether the first hydration attempt has resolved.
func (s Snapshot) Initialized() bool { return s.Phase == Ready }

// IsAuthenticated is derived, never stored: a user and a token must both be
// present.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil && s.Token != "" }

// Role returns the user's role, or "" when signed out.
func (s Snapshot) Role() panelapi.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Result reports the outcome of Login or Register. Message is set when OK is
// false.
type Result struct {
	OK      bool
	Message string
	User    *panelapi.User
}

// Store is the session. Create one per process with New and inject it where
// needed.
type Store struct {
	api   Authenticator
	store storage.Store
	now   func() time.Time

	logoutTimeout time.Duration
	hydrateOnce   sync.Once
	subs          *hub

	mu    sync.Mutex
	token string
	user  *panelapi.User
	phase Phase
	busy  int
}

// Option configures Store.
type Option func(*Store)

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogoutTimeout bounds the best-effort server logout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// New creates an uninitialized session.
func New(api Authenticator, store storage.Store, opts ...Option) *Store {
	s := &Store{
		api:           api,
		store:         store,
		now:           time.Now,
		logoutTimeout: defaultLogoutTimeout,
		subs:          newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Token: s.token, Phase: s.phase, Busy: s.busy > 0}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Subscribe delivers the current snapshot followed by one per state change
// until ctx ends.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs.subscribe(ctx, s.snapshotLocked())
}

// changed must be called with s.mu held.
func (s *Store) changed() {
	s.subs.publish(s.snapshotLocked())
}

// RequireUser returns the signed in user or ErrNotAuthenticated.
func (s *Store) RequireUser() (panelapi.User, error) {
	snap := s.Snapshot()
	if !snap.IsAuthenticated() {
		return panelapi.User{}, ErrNotAuthenticated
	}
	return *snap.User, nil
}

// Hydrate restores the session from the persisted token. Only the first call
// does anything. Every failure degrades to signed out; the session is Ready
// afterwards either way.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() { s.hydrate(ctx) })
}

func (s *Store) hydrate(ctx context.Context) {
	log := obs.Logger()

	token, err := storage.GetOr(ctx, s.store, storage.KeyAuthToken, "")
	if err != nil {
		log.Warn().Err(err).Msg("read persisted token")
	}
	token = strings.TrimSpace(token)

	s.mu.Lock()
	if token == "" || s.phase == Ready {
		s.phase = Ready
		s.changed()
		s.mu.Unlock()
		return
	}
	s.token = token
	s.phase = Hydrating
	s.api.SetToken(token)
	s.changed()
	s.mu.Unlock()

	var user *panelapi.User
	if tokenExpired(token, s.now()) {
		err = errTokenExpired
	} else {
		user, err = s.api.Me(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a login or logout during hydration owns the state now
	if s.token != token {
		if s.phase != Ready {
			s.phase = Ready
			s.changed()
		}
		return
	}
	if err != nil {
		s.token = ""
		s.user = nil
		s.api.SetToken("")
		if derr := s.store.Delete(ctx, storage.KeyAuthToken); derr != nil {
			log.Warn().Err(derr).Msg("clear persisted token")
		}
		log.Info().Err(err).Msg("session hydration failed; signed out")
		logEvent(ctx, "session.hydrate", map[string]any{"ok": false})
	} else {
		s.user = user
		logEvent(obs.WithActor(ctx, user.Username), "session.hydrate", map[string]any{"ok": true, "role": string(user.Role)})
	}
	s.phase = Ready
	s.changed()
}

var errTokenExpired = errors.New("session: token expired")

// tokenExpired inspects the exp claim without verifying the signature. Tokens
// that are not JWTs, or carry no exp, are left to the server.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

func (s *Store) setBusy(delta int) {
	s.mu.Lock()
	before := s.busy > 0
	s.busy += delta
	if (s.busy > 0) != before {
		s.changed()
	}
	s.mu.Unlock()
}

// Login authenticates. On failure the existing session is untouched and the
// server's message, or MsgLoginFailed, is returned.
func (s *Store) Login(ctx context.Context, creds panelapi.Credentials) Result {
	s.setBusy(1)
	defer s.setBusy(-1)

	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		obs.Logger().Debug().Err(err).Str("username", creds.Username).Msg("login failed")
		return Result{Message: panelapi.MessageOr(err, MsgLoginFailed)}
	}
	if strings.TrimSpace(resp.Token) == "" || resp.User == nil {
		return Result{Message: MsgLoginFailed}
	}

	if err := s.store.Set(ctx, storage.KeyAuthToken, resp.Token); err != nil {
		obs.Logger().Warn().Err(err).Msg("persist token")
	}

	s.mu.Lock()
	s.token = resp.Token
	u := *resp.User
	s.user = &u
	s.phase = Ready
	s.api.SetToken(resp.Token)
	s.changed()
	s.mu.Unlock()

	logEvent(obs.WithActor(ctx, u.Username), "session.login", map[string]any{"role": string(u.Role)})
	out := u
	return Result{OK: true, User: &out}
}

// Register creates an account without signing in.
func (s *Store) Register(ctx context.Context, p panelapi.Profile) Result {
	s.setBusy(1)
	defer s.setBusy(-1)

	user, err := s.api.Register(ctx, p)
	if err != nil {
		return Result{Message: panelapi.MessageOr(err, MsgRegisterFailed)}
	}
	logEvent(ctx, "session.register", map[string]any{"username": p.Username})
	return Result{OK: true, User: user}
}

// Logout clears local state and the persisted token, then tells the server
// using the old token. The server call cannot fail the logout.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	old := s.token
	var actor string
	if s.user != nil {
		actor = s.user.Username
	}
	s.token = ""
	s.user = nil
	s.api.SetToken("")
	s.api.ClearScope()
	s.changed()
	s.mu.Unlock()

	if err := s.store.Delete(ctx, storage.KeyAuthToken); err != nil {
		obs.Logger().Warn().Err(err).Msg("clear persisted token")
	}
	logEvent(obs.WithActor(ctx, actor), "session.logout", nil)

	if old == "" {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
	defer cancel()
	if err := s.api.Logout(lctx, old); err != nil {
		obs.Logger().Debug().Err(err).Msg("server logout failed")
	}
}

// logEvent records a session audit event. A rejected event is reported at
// debug level and never fails the session operation.
func logEvent(ctx context.Context, event string, fields map[string]any) {
	if err := obs.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().Debug().Err(err).Str("event", event).Msg("session event not logged")
	}
}
