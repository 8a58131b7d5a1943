package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/utils"
)

// Bridge adapts identity provider primitives to the console's auth actions.
// Every provider failure leaves here as an AUTHENTICATION_ERROR carrying the
// provider's message.
type Bridge struct {
	provider identity.Provider
}

// NewBridge creates a bridge over provider.
func NewBridge(provider identity.Provider) *Bridge {
	return &Bridge{provider: provider}
}

// Login exchanges credentials for a provider session.
func (b *Bridge) Login(ctx context.Context, email, password string) (*identity.Principal, error) {
	p, err := b.provider.SignIn(ctx, email, password)
	if err != nil {
		log.Debug().Str("email", utils.MaskEmail(email)).Err(err).Msg("sign in rejected")
		return nil, apierror.Authentication(err)
	}
	return p, nil
}

// Signup creates an account, then sets its display name when one is given.
//
// A display-name failure does not undo the account: the principal is
// returned together with an error wrapping apierror.ErrDisplayNameNotSet.
func (b *Bridge) Signup(ctx context.Context, email, password, name string) (*identity.Principal, error) {
	p, err := b.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, apierror.Authentication(err)
	}
	if name == "" {
		return p, nil
	}

	if err := b.provider.UpdateDisplayName(ctx, name); err != nil {
		log.Warn().Str("uid", p.UID).Err(err).Msg("account created but display name not set")
		return p, apierror.Authentication(fmt.Errorf("%w: %w", apierror.ErrDisplayNameNotSet, err))
	}
	p.DisplayName = name
	return p, nil
}

// Logout ends the provider session.
func (b *Bridge) Logout(ctx context.Context) error {
	if err := b.provider.SignOut(ctx); err != nil {
		return apierror.Authentication(err)
	}
	return nil
}

// ResetPassword asks the provider to send a reset email. Success means the
// request was accepted. Unknown addresses are reported as success.
func (b *Bridge) ResetPassword(ctx context.Context, email string) error {
	err := b.provider.SendPasswordReset(ctx, email)
	if err == nil || errors.Is(err, identity.ErrUserNotFound) {
		return nil
	}
	return apierror.Authentication(err)
}

// UpdateDisplayName changes the principal's display name.
func (b *Bridge) UpdateDisplayName(ctx context.Context, name string) error {
	if b.provider.Current() == nil {
		return apierror.Unauthenticated()
	}
	if err := b.provider.UpdateDisplayName(ctx, name); err != nil {
		if errors.Is(err, identity.ErrNoCurrentUser) {
			return apierror.Unauthenticated()
		}
		return apierror.Authentication(err)
	}
	return nil
}

// Token returns a bearer token for the current principal, or "" when
// nobody is signed in.
func (b *Bridge) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if b.provider.Current() == nil {
		return "", nil
	}
	tok, err := b.provider.Token(ctx, forceRefresh)
	if err != nil {
		if errors.Is(err, identity.ErrNoCurrentUser) {
			return "", nil
		}
		return "", apierror.Authentication(err)
	}
	return tok, nil
}

// Current returns the signed-in principal, or nil.
func (b *Bridge) Current() *identity.Principal {
	return b.provider.Current()
}
