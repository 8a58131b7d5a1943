// Package identity defines the boundary to the identity provider.
//
// DESIGN: The provider owns credentials. It signs principals in and out,
// mints short-lived ID tokens and pushes state changes to subscribers.
// Nothing above this package stores passwords or tokens.
//
// Notification contract:
//   - OnStateChange replays the current state to the new listener before returning.
//   - Every later change (sign-in, sign-up, sign-out, revoked session) is
//     delivered synchronously on the goroutine that caused it, after the
//     provider's own state is updated and before the causing call returns.
//   - Listeners must not call OnStateChange or the returned unsubscribe from
//     inside the callback.
package identity

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Principal is the provider's notion of a signed-in user.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Listener receives state changes. A nil principal means signed out.
type Listener func(p *Principal)

// Provider is the identity provider boundary.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SignUp(ctx context.Context, email, password string) (*Principal, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdateDisplayName(ctx context.Context, name string) error

	// Token returns an ID token for the current principal.
	// forceRefresh bypasses the provider's cached token.
	Token(ctx context.Context, forceRefresh bool) (string, error)

	// Current returns the signed-in principal, or nil.
	Current() *Principal

	OnStateChange(l Listener) (unsubscribe func())
}

// Provider failure causes. Implementations wrap these so callers can match them.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already in use")
	ErrWeakPassword       = errors.New("weak password")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrNoCurrentUser      = errors.New("no current user")
	ErrSessionExpired     = errors.New("session expired")
)

// =============================================================================
// Listener fan-out shared by implementations
// =============================================================================

// Notifier keeps the listener set for a provider.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// Subscribe registers l, replays current to it and returns an unsubscribe func.
func (n *Notifier) Subscribe(l Listener, current *Principal) func() {
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	n.mu.Unlock()

	l(clonePrincipal(current))

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Notify delivers p to every listener in subscription order.
func (n *Notifier) Notify(p *Principal) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	n.mu.Unlock()

	sort.Ints(ids)
	for _, id := range ids {
		n.mu.Lock()
		l, ok := n.listeners[id]
		n.mu.Unlock()
		if ok {
			l(clonePrincipal(p))
		}
	}
}

func clonePrincipal(p *Principal) *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
