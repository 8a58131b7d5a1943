// Package firebase implements identity.Provider over the Identity Toolkit
// and Secure Token REST APIs.
//
// FILES:
//   - provider.go: Provider, options, identity.Provider methods
//   - toolkit.go:  Identity Toolkit calls and the HTTP helper
//   - token.go:    Secure Token refresh, ID token expiry and verification
//   - errors.go:   API error codes mapped to identity sentinels
//
// DESIGN: The provider keeps one session in memory: principal, ID token,
// refresh token and expiry. The ID token is reused until shortly before it
// expires. When a CredentialStore is configured the refresh token is
// persisted, and Restore brings the session back on the next run.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/credstore"
	"github.com/aiguard/console/internal/identity"
)

// CredentialStore persists refresh credentials. *credstore.Store satisfies it.
type CredentialStore interface {
	Save(ctx context.Context, c credstore.Credential) error
	Load(ctx context.Context, profile string) (*credstore.Credential, error)
	Delete(ctx context.Context, profile string) error
}

type activeSession struct {
	principal    identity.Principal
	idToken      string
	refreshToken string
	expiry       time.Time
}

// Provider talks to the Identity Toolkit REST API.
type Provider struct {
	apiKey     string
	toolkitURL string
	httpClient *http.Client
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	store      CredentialStore
	keySet     oidc.KeySet
	now        func() time.Time
	leeway     time.Duration

	mu        sync.Mutex
	session   *activeSession
	refreshes uint64 // completed refreshes, guarded by mu

	// refreshMu serializes token refreshes so concurrent callers share one.
	refreshMu sync.Mutex

	notifier identity.Notifier
}

// Option configures the Provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithCredentialStore persists the refresh token across runs.
func WithCredentialStore(s CredentialStore) Option {
	return func(p *Provider) {
		p.store = s
	}
}

// WithKeySet verifies ID tokens against ks instead of the remote JWKS.
func WithKeySet(ks oidc.KeySet) Option {
	return func(p *Provider) {
		p.keySet = ks
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates a provider from cfg.
func New(cfg config.IdentityConfig, opts ...Option) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firebase: api key is required")
	}
	p := &Provider{
		apiKey:     cfg.APIKey,
		toolkitURL: orDefault(cfg.IdentityToolkitURL, config.DefaultIdentityToolkitURL),
		httpClient: &http.Client{Timeout: config.DefaultAPITimeout},
		now:        time.Now,
		leeway:     config.TokenRefreshLeeway,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.oauth = &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  orDefault(cfg.SecureTokenURL, config.DefaultSecureTokenURL) + "?key=" + cfg.APIKey,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if cfg.VerifyTokens {
		if cfg.ProjectID == "" {
			return nil, errors.New("firebase: project id is required to verify tokens")
		}
		ctx := oidc.ClientContext(context.Background(), p.httpClient)
		p.verifier = newVerifier(ctx, cfg.Issuer(), cfg.ProjectID,
			orDefault(cfg.JWKSURL, config.DefaultJWKSURL), p.keySet, p.now)
	}
	return p, nil
}

// profileKey names this provider's row in the credential store.
func (p *Provider) profileKey() string {
	return p.apiKey
}

// =============================================================================
// identity.Provider
// =============================================================================

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Principal, error) {
	resp, err := p.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp)
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*identity.Principal, error) {
	resp, err := p.signUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp)
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	var err error
	if p.store != nil {
		err = p.store.Delete(ctx, p.profileKey())
	}
	p.notifier.Notify(nil)
	return err
}

// SendPasswordReset asks the API to email a reset link.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	return p.sendPasswordReset(ctx, email)
}

func (p *Provider) UpdateDisplayName(ctx context.Context, name string) error {
	idToken, err := p.Token(ctx, false)
	if err != nil {
		return err
	}
	resp, err := p.updateProfile(ctx, idToken, name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	s := p.session
	if s == nil {
		p.mu.Unlock()
		return identity.ErrNoCurrentUser
	}
	s.principal.DisplayName = name
	if resp.IDToken != "" {
		s.idToken = resp.IDToken
		s.expiry = p.expiryOf(resp.IDToken, p.now().Add(resp.lifetime()))
	}
	if resp.RefreshToken != "" {
		s.refreshToken = resp.RefreshToken
	}
	snapshot := *s
	p.mu.Unlock()

	p.persist(ctx, &snapshot)
	return nil
}

// Token returns the cached ID token while it is fresh, otherwise refreshes.
// forceRefresh always refreshes.
func (p *Provider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	seq := p.refreshCount()
	if tok, ok := p.cachedToken(forceRefresh); ok {
		return tok, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Another caller may have refreshed while this one waited.
	if tok, ok := p.cachedToken(forceRefresh); ok {
		return tok, nil
	}
	if tok, ok := p.refreshedSince(seq); ok {
		return tok, nil
	}

	p.mu.Lock()
	s := p.session
	if s == nil {
		p.mu.Unlock()
		return "", identity.ErrNoCurrentUser
	}
	refreshToken := s.refreshToken
	uid := s.principal.UID
	p.mu.Unlock()

	m, err := p.exchange(ctx, refreshToken)
	if err == nil {
		err = p.verify(ctx, m.idToken, uid)
	}
	if err != nil {
		if errors.Is(err, identity.ErrSessionExpired) {
			p.revoke(ctx, err)
		}
		return "", err
	}

	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return "", identity.ErrNoCurrentUser
	}
	s.idToken = m.idToken
	s.refreshToken = m.refreshToken
	s.expiry = m.expiry
	p.refreshes++
	snapshot := *s
	p.mu.Unlock()

	if m.refreshToken != refreshToken {
		p.persist(ctx, &snapshot)
	}
	log.Debug().Str("uid", uid).Bool("forced", forceRefresh).Time("expiry", m.expiry).Msg("id token refreshed")
	return m.idToken, nil
}

func (p *Provider) Current() *identity.Principal {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	pr := p.session.principal
	return &pr
}

func (p *Provider) OnStateChange(l identity.Listener) func() {
	return p.notifier.Subscribe(l, p.Current())
}

// =============================================================================
// Session persistence
// =============================================================================

// Restore brings back a persisted session. A missing credential is not an
// error; a rejected one is deleted and reported.
func (p *Provider) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	cred, err := p.store.Load(ctx, p.profileKey())
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return nil
		}
		return err
	}

	m, err := p.exchange(ctx, cred.RefreshToken)
	if err == nil {
		err = p.verify(ctx, m.idToken, cred.UID)
	}
	if err != nil {
		if errors.Is(err, identity.ErrSessionExpired) {
			_ = p.store.Delete(ctx, p.profileKey())
		}
		return fmt.Errorf("restoring session: %w", err)
	}

	uid := cred.UID
	if m.uid != "" {
		uid = m.uid
	}
	s := &activeSession{
		principal:    identity.Principal{UID: uid, Email: cred.Email, DisplayName: cred.DisplayName},
		idToken:      m.idToken,
		refreshToken: m.refreshToken,
		expiry:       m.expiry,
	}
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	if m.refreshToken != cred.RefreshToken {
		p.persist(ctx, s)
	}
	log.Debug().Str("uid", uid).Msg("session restored")
	p.notifier.Notify(&s.principal)
	return nil
}

func (p *Provider) establish(ctx context.Context, resp *authResponse) (*identity.Principal, error) {
	if err := p.verify(ctx, resp.IDToken, resp.LocalID); err != nil {
		return nil, err
	}
	s := &activeSession{
		principal: identity.Principal{
			UID:         resp.LocalID,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
		},
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		expiry:       p.expiryOf(resp.IDToken, p.now().Add(resp.lifetime())),
	}

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	p.persist(ctx, s)
	pr := s.principal
	p.notifier.Notify(&pr)
	return &pr, nil
}

// revoke drops a session the API no longer accepts.
func (p *Provider) revoke(ctx context.Context, cause error) {
	p.mu.Lock()
	had := p.session != nil
	p.session = nil
	p.mu.Unlock()
	if !had {
		return
	}

	log.Warn().Err(cause).Msg("identity session revoked")
	if p.store != nil {
		_ = p.store.Delete(ctx, p.profileKey())
	}
	p.notifier.Notify(nil)
}

func (p *Provider) persist(ctx context.Context, s *activeSession) {
	if p.store == nil || s.refreshToken == "" {
		return
	}
	err := p.store.Save(ctx, credstore.Credential{
		Profile:      p.profileKey(),
		UID:          s.principal.UID,
		Email:        s.principal.Email,
		DisplayName:  s.principal.DisplayName,
		RefreshToken: s.refreshToken,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to persist identity session")
	}
}

func (p *Provider) cachedToken(forceRefresh bool) (string, bool) {
	if forceRefresh {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.session
	if s == nil || s.idToken == "" {
		return "", false
	}
	if p.now().Add(p.leeway).Before(s.expiry) {
		return s.idToken, true
	}
	return "", false
}

func (p *Provider) refreshCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

// refreshedSince returns the current token when a refresh completed after
// seq was read.
func (p *Provider) refreshedSince(seq uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refreshes == seq || p.session == nil || p.session.idToken == "" {
		return "", false
	}
	return p.session.idToken, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ identity.Provider = (*Provider)(nil)
