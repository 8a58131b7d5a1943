package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// minted is the result of a Secure Token refresh.
type minted struct {
	idToken      string
	refreshToken string
	uid          string
	expiry       time.Time
}

// exchange trades a refresh token for a new ID token through the Secure
// Token endpoint. It speaks the standard refresh_token grant, so the oauth2
// package drives it.
func (p *Provider) exchange(ctx context.Context, refreshToken string) (*minted, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, parseError("refresh", status, re.Body)
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("refresh: response has no id_token")
	}
	uid, _ := tok.Extra("user_id").(string)

	next := tok.RefreshToken
	if next == "" {
		next = refreshToken
	}
	return &minted{
		idToken:      idToken,
		refreshToken: next,
		uid:          uid,
		expiry:       p.expiryOf(idToken, tok.Expiry),
	}, nil
}

// expiryOf reads exp from an ID token without checking its signature.
// Signature checks belong to verify.
func (p *Provider) expiryOf(idToken string, fallback time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if !fallback.IsZero() {
		return fallback
	}
	return p.now().Add(time.Hour)
}

// verify checks an ID token against the provider's published keys when
// verification is enabled.
func (p *Provider) verify(ctx context.Context, idToken, uid string) error {
	if p.verifier == nil {
		return nil
	}
	tok, err := p.verifier.Verify(ctx, idToken)
	if err != nil {
		return fmt.Errorf("verifying id token: %w", err)
	}
	if uid != "" && tok.Subject != uid {
		return fmt.Errorf("id token subject %q does not match account %q", tok.Subject, uid)
	}
	return nil
}

func newVerifier(ctx context.Context, issuer, audience, jwksURL string, keySet oidc.KeySet, now func() time.Time) *oidc.IDTokenVerifier {
	if keySet == nil {
		keySet = oidc.NewRemoteKeySet(ctx, jwksURL)
	}
	return oidc.NewVerifier(issuer, keySet, &oidc.Config{
		ClientID: audience,
		Now:      now,
	})
}
