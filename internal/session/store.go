// Package session owns the console's notion of who is signed in.
//
// DESIGN: One Store per process, created in main and passed explicitly.
// The Store subscribes once to the identity provider. Every notification
// with a principal runs Profile Sync; a nil principal clears the identity.
//
// FILES:
//   - store.go:   Store, State, Phase and the lifecycle operations
//   - bridge.go:  Credential Bridge (provider calls and error translation)
//   - profile.go: Profile Sync (backend profile fetch, create, update)
//
// State is guarded by a mutex that is never held across a provider or
// backend call. Provider notifications run on the goroutine that caused
// them, so a successful Login has already synced the profile on return.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/services"
)

// =============================================================================
// STATE
// =============================================================================

// Phase is the session lifecycle position.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "INITIALIZING"
	case PhaseAuthenticated:
		return "AUTHENTICATED"
	default:
		return "ANONYMOUS"
	}
}

// State is a snapshot of the session.
type State struct {
	Identity *Identity
	Loading  bool
	Error    string
}

// Phase derives the lifecycle position from the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseInitializing
	case s.Identity != nil:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

// =============================================================================
// STORE
// =============================================================================

const (
	defaultSyncTimeout    = 30 * time.Second
	defaultResyncInterval = 30 * time.Second
)

// Store is the single source of truth for the signed-in identity.
type Store struct {
	bridge   *Bridge
	profiles *ProfileSync

	syncTimeout    time.Duration
	resyncInterval time.Duration

	mu          sync.RWMutex
	state       State
	generation  uint64 // bumped on every notification and local profile write
	unsubscribe func()
	closed      bool

	resyncing  atomic.Bool
	lastResync atomic.Int64 // unix nanos
	wg         sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithSyncTimeout bounds each profile sync triggered by a notification.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.syncTimeout = d
	}
}

// WithResyncInterval sets the minimum gap between background re-syncs of a
// synthesized identity. Zero disables the throttle.
func WithResyncInterval(d time.Duration) Option {
	return func(s *Store) {
		s.resyncInterval = d
	}
}

// WithClock overrides the clock used for synthesized timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.profiles.now = now
	}
}

// NewStore creates a Store in the INITIALIZING phase. Call Start to
// subscribe to the provider.
func NewStore(provider identity.Provider, users ProfileClient, opts ...Option) *Store {
	s := &Store{
		bridge:         NewBridge(provider),
		profiles:       NewProfileSync(users),
		syncTimeout:    defaultSyncTimeout,
		resyncInterval: defaultResyncInterval,
		state:          State{Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to provider notifications. The provider replays its
// current state immediately, so the phase has left INITIALIZING on return.
// Calling Start twice is a no-op.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.unsubscribe = func() {}
	s.mu.Unlock()

	unsub := s.bridge.provider.OnStateChange(s.handle)

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
	log.Debug().Str("phase", s.Phase().String()).Msg("session started")
}

// Close unsubscribes from the provider and waits for background re-syncs.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	s.wg.Wait()
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Identity = st.Identity.clone()
	return st
}

// Phase returns the current lifecycle position.
func (s *Store) Phase() Phase {
	return s.State().Phase()
}

// handle is the provider listener.
func (s *Store) handle(p *identity.Principal) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if p == nil {
		s.apply(gen, func(st *State) {
			*st = State{}
		})
		log.Debug().Msg("session anonymous")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	id, err := s.profiles.Fetch(ctx, p)
	s.apply(gen, func(st *State) {
		*st = State{Identity: id}
	})
	log.Debug().Str("uid", p.UID).Bool("synthesized", id.Synthesized).AnErr("sync_error", err).Msg("session authenticated")
}

// apply mutates state unless a newer notification has arrived since gen.
func (s *Store) apply(gen uint64, fn func(st *State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	fn(&s.state)
	return true
}

// commit is apply for local writes that supersede any fetch already in
// flight: on success the generation moves on, so an older re-sync is dropped.
func (s *Store) commit(gen uint64, fn func(st *State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	fn(&s.state)
	s.generation++
	return true
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

// fail records err as the session error and returns it.
func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.state.Error = apierror.Message(err)
	s.mu.Unlock()
	return err
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Login signs in with email and password. On failure the identity is left
// unchanged and the error is both recorded and returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.clearError()
	if err := firstError(services.ValidateEmail(email), services.ValidateLoginPassword(password)); err != nil {
		return s.fail(err)
	}

	p, err := s.bridge.Login(ctx, email, password)
	if err != nil {
		return s.fail(err)
	}
	s.ensureSynced(ctx, p)
	return nil
}

// Signup creates an account and its backend profile.
//
// A display-name failure is reported after the profile has been created;
// the account stays signed in either way.
func (s *Store) Signup(ctx context.Context, email, password, name string) error {
	s.clearError()
	if err := firstError(
		services.ValidateSignupName(name),
		services.ValidateEmail(email),
		services.ValidateSignupPassword(password),
	); err != nil {
		return s.fail(err)
	}

	p, nameErr := s.bridge.Signup(ctx, email, password, name)
	if p == nil {
		return s.fail(nameErr)
	}
	s.ensureSynced(ctx, p)
	gen := s.currentGeneration()

	id, err := s.profiles.Create(ctx, name)
	if err != nil {
		return s.fail(err)
	}
	s.commit(gen, func(st *State) {
		st.Identity = id
		st.Loading = false
	})

	if nameErr != nil {
		return s.fail(nameErr)
	}
	return nil
}

// Logout ends the session.
func (s *Store) Logout(ctx context.Context) error {
	s.clearError()
	if err := s.bridge.Logout(ctx); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	s.generation++
	s.state = State{}
	s.mu.Unlock()
	return nil
}

// ResetPassword requests a password reset email. It succeeds for unknown
// addresses too.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	s.clearError()
	if err := services.ValidateEmail(email); err != nil {
		return s.fail(err)
	}
	if err := s.bridge.ResetPassword(ctx, email); err != nil {
		return s.fail(err)
	}
	return nil
}

// UpdateProfile changes the display name at the provider and the backend,
// then merges the backend response into the identity.
func (s *Store) UpdateProfile(ctx context.Context, name string) error {
	s.clearError()
	if s.bridge.Current() == nil {
		return s.fail(apierror.Unauthenticated())
	}
	if err := services.ValidateProfileName(name); err != nil {
		return s.fail(err)
	}
	if err := s.bridge.UpdateDisplayName(ctx, name); err != nil {
		return s.fail(err)
	}

	gen := s.currentGeneration()
	id, err := s.profiles.Update(ctx, s.State().Identity, name)
	if err != nil {
		return s.fail(err)
	}
	s.commit(gen, func(st *State) {
		st.Identity = id
	})
	return nil
}

// Token returns a bearer token, or "" with no error when nobody is signed in.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.bridge.Token(ctx, false)
}

// ensureSynced runs Profile Sync for p unless the notification already did.
func (s *Store) ensureSynced(ctx context.Context, p *identity.Principal) {
	cur := s.State().Identity
	if cur != nil && cur.UID == p.UID {
		return
	}
	gen := s.currentGeneration()
	id, _ := s.profiles.Fetch(ctx, p)
	s.apply(gen, func(st *State) {
		st.Identity = id
		st.Loading = false
	})
}

// =============================================================================
// RE-SYNC
// =============================================================================

// ResyncIfSynthesized starts one background profile fetch when the identity
// is a synthesized placeholder. It is meant to be called after any
// successful authenticated backend response; concurrent calls collapse into
// one fetch.
func (s *Store) ResyncIfSynthesized() {
	st := s.State()
	if st.Identity == nil || !st.Identity.Synthesized {
		return
	}
	if s.resyncInterval > 0 {
		last := s.lastResync.Load()
		if last != 0 && time.Since(time.Unix(0, last)) < s.resyncInterval {
			return
		}
	}
	if !s.resyncing.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.resyncing.Store(false)
		return
	}
	s.lastResync.Store(time.Now().UnixNano())
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.resyncing.Store(false)
		s.resync()
	}()
}

func (s *Store) resync() {
	p := s.bridge.Current()
	if p == nil {
		return
	}
	gen := s.currentGeneration()

	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	id, err := s.profiles.Fetch(ctx, p)
	if err != nil {
		return
	}
	if s.apply(gen, func(st *State) { st.Identity = id }) {
		log.Info().Str("uid", p.UID).Str("tier", string(id.Tier)).Msg("profile re-synced")
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
