package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process identity provider.
// It backs the "memory" provider mode for local development and the tests.
type MemoryProvider struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount // email -> account
	current  *memoryAccount
	token    string
	tokens   map[string]string // token -> uid

	refreshes   int
	resetsSent  []string
	failRefresh error
	failSetName error

	notifier Notifier
}

type memoryAccount struct {
	principal Principal
	password  string
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]*memoryAccount),
		tokens:   make(map[string]string),
	}
}

// AddAccount seeds an account without signing it in.
func (m *MemoryProvider) AddAccount(email, password, displayName string) Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := &memoryAccount{
		principal: Principal{UID: uuid.NewString(), Email: email, DisplayName: displayName},
		password:  password,
	}
	m.accounts[strings.ToLower(email)] = acct
	return acct.principal
}

// FailRefresh makes forced refreshes fail with err until cleared with nil.
func (m *MemoryProvider) FailRefresh(err error) {
	m.mu.Lock()
	m.failRefresh = err
	m.mu.Unlock()
}

// FailDisplayName makes UpdateDisplayName fail with err until cleared with nil.
func (m *MemoryProvider) FailDisplayName(err error) {
	m.mu.Lock()
	m.failSetName = err
	m.mu.Unlock()
}

// Refreshes returns how many forced refreshes were requested.
func (m *MemoryProvider) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

// ResetsSent returns the addresses password reset mails were accepted for.
func (m *MemoryProvider) ResetsSent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resetsSent...)
}

// Verify resolves a token minted by this provider to its uid.
// Tokens replaced by a forced refresh no longer verify.
func (m *MemoryProvider) Verify(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.tokens[token]
	return uid, ok
}

func (m *MemoryProvider) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	m.mu.Lock()
	acct, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("sign in %s: %w", email, ErrUserNotFound)
	}
	if acct.password != password {
		m.mu.Unlock()
		return nil, fmt.Errorf("sign in %s: %w", email, ErrInvalidCredentials)
	}
	p := m.activateLocked(acct)
	m.mu.Unlock()

	m.notifier.Notify(&p)
	return &p, nil
}

func (m *MemoryProvider) SignUp(ctx context.Context, email, password string) (*Principal, error) {
	if len(password) < 6 {
		return nil, fmt.Errorf("sign up %s: %w", email, ErrWeakPassword)
	}

	m.mu.Lock()
	key := strings.ToLower(email)
	if _, exists := m.accounts[key]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("sign up %s: %w", email, ErrEmailExists)
	}
	acct := &memoryAccount{
		principal: Principal{UID: uuid.NewString(), Email: email},
		password:  password,
	}
	m.accounts[key] = acct
	p := m.activateLocked(acct)
	m.mu.Unlock()

	m.notifier.Notify(&p)
	return &p, nil
}

func (m *MemoryProvider) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	if m.token != "" {
		delete(m.tokens, m.token)
		m.token = ""
	}
	m.mu.Unlock()

	m.notifier.Notify(nil)
	return nil
}

// SendPasswordReset accepts any address. Unknown accounts are not reported.
func (m *MemoryProvider) SendPasswordReset(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetsSent = append(m.resetsSent, email)
	return nil
}

func (m *MemoryProvider) UpdateDisplayName(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoCurrentUser
	}
	if m.failSetName != nil {
		return m.failSetName
	}
	m.current.principal.DisplayName = name
	return nil
}

func (m *MemoryProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && m.token != "" {
		return m.token, nil
	}
	if forceRefresh {
		m.refreshes++
		if m.failRefresh != nil {
			return "", m.failRefresh
		}
	}
	m.mintLocked()
	return m.token, nil
}

func (m *MemoryProvider) Current() *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	p := m.current.principal
	return &p
}

func (m *MemoryProvider) OnStateChange(l Listener) func() {
	return m.notifier.Subscribe(l, m.Current())
}

func (m *MemoryProvider) activateLocked(acct *memoryAccount) Principal {
	m.current = acct
	m.mintLocked()
	return acct.principal
}

func (m *MemoryProvider) mintLocked() {
	if m.token != "" {
		delete(m.tokens, m.token)
	}
	m.token = "mem-" + uuid.NewString()
	m.tokens[m.token] = m.current.principal.UID
}

var _ Provider = (*MemoryProvider)(nil)
