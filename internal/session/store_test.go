package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/gateway"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/services"
	"github.com/aiguard/console/internal/session"
)

// =============================================================================
// Fake backend
// =============================================================================

type profileBackend struct {
	provider *identity.MemoryProvider
	down     atomic.Bool

	mu       sync.Mutex
	profiles map[string]services.User
	posts    int
	puts     int

	// holdGet, when set, runs once after a GET has read its row and before
	// the response is written.
	holdGet func()
}

func newProfileBackend(provider *identity.MemoryProvider) *profileBackend {
	return &profileBackend{provider: provider, profiles: make(map[string]services.User)}
}

func (b *profileBackend) seed(u services.User) {
	b.mu.Lock()
	b.profiles[u.UID] = u
	b.mu.Unlock()
}

func (b *profileBackend) counts() (posts, puts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.posts, b.puts
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"type": typ, "message": msg, "statusCode": status},
	})
}

func (b *profileBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.down.Load() {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "backend down")
		return
	}
	if r.URL.Path == "/_api/health" {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
		return
	}

	uid, ok := b.provider.Verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid token")
		return
	}

	var body services.ProfileUpdate
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if r.Method == http.MethodGet {
		b.mu.Lock()
		u, exists := b.profiles[uid]
		hold := b.holdGet
		b.holdGet = nil
		b.mu.Unlock()
		if !exists {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "profile not found")
			return
		}
		if hold != nil {
			hold()
		}
		_ = json.NewEncoder(w).Encode(u)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, exists := b.profiles[uid]
	switch r.Method {
	case http.MethodPost:
		b.posts++
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		u = services.User{UID: uid, Email: "created@example.com", Name: body.Name, Tier: services.TierFree, CreatedAt: now, UpdatedAt: now}
		b.profiles[uid] = u
	case http.MethodPut:
		b.puts++
		if !exists {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "profile not found")
			return
		}
		u.Name = body.Name
		u.UpdatedAt = u.UpdatedAt.Add(time.Hour)
		b.profiles[uid] = u
		// Partial response: only the changed fields.
		_ = json.NewEncoder(w).Encode(map[string]any{"name": u.Name, "updatedAt": u.UpdatedAt})
		return
	}
	_ = json.NewEncoder(w).Encode(u)
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	provider *identity.MemoryProvider
	backend  *profileBackend
	client   *gateway.Client
	store    *session.Store
}

func newHarness(t *testing.T, opts ...session.Option) *harness {
	t.Helper()
	return newHarnessWith(t, identity.NewMemoryProvider(), opts...)
}

func newHarnessWith(t *testing.T, provider *identity.MemoryProvider, opts ...session.Option) *harness {
	t.Helper()
	backend := newProfileBackend(provider)
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client := gateway.NewClient(server.URL, gateway.WithTokenSource(provider))
	store := session.NewStore(provider, services.New(client).Users, opts...)
	t.Cleanup(store.Close)

	return &harness{provider: provider, backend: backend, client: client, store: store}
}

func (h *harness) seedAccount(email, password string, tier services.Tier) identity.Principal {
	p := h.provider.AddAccount(email, password, "Seeded")
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h.backend.seed(services.User{UID: p.UID, Email: email, Name: "Seeded", Tier: tier, CreatedAt: created, UpdatedAt: created})
	return p
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestStart_ResolvesInitializing(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, session.PhaseInitializing, h.store.Phase())
	assert.True(t, h.store.State().Loading)

	h.store.Start(context.Background())
	assert.Equal(t, session.PhaseAnonymous, h.store.Phase())
	assert.False(t, h.store.State().Loading)
}

func TestStart_AlreadySignedIn(t *testing.T) {
	h := newHarness(t)
	p := h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	_, err := h.provider.SignIn(context.Background(), "ops@example.com", "correct-horse")
	require.NoError(t, err)

	h.store.Start(context.Background())

	st := h.store.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, session.PhaseAuthenticated, st.Phase())
	assert.Equal(t, p.UID, st.Identity.UID)
	assert.Equal(t, services.TierPro, st.Identity.Tier)
	assert.False(t, st.Identity.Synthesized)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	h.seedAccount("ops@example.com", "correct-horse", services.TierEnterprise)
	h.store.Start(context.Background())

	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))

	st := h.store.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, "ops@example.com", st.Identity.Email)
	assert.Equal(t, services.TierEnterprise, st.Identity.Tier)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestLogin_InvalidCredentialsLeaveIdentityUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		signedIn bool
		email    string
		password string
	}{
		{"anonymous wrong password", false, "ops@example.com", "wrong-password"},
		{"anonymous unknown account", false, "ghost@example.com", "whatever1"},
		{"signed in wrong password", true, "ops@example.com", "wrong-password"},
		{"anonymous short password", false, "ops@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
			h.store.Start(context.Background())
			if tt.signedIn {
				require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
			}
			before := h.store.State().Identity

			err := h.store.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)

			st := h.store.State()
			assert.NotEmpty(t, st.Error)
			assert.Equal(t, before, st.Identity)
		})
	}
}

func TestLogin_ErrorIsAuthentication(t *testing.T) {
	h := newHarness(t)
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())

	err := h.store.Login(context.Background(), "ops@example.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthentication, apierror.KindOf(err))
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	h := newHarness(t)
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())

	require.Error(t, h.store.Login(context.Background(), "ops@example.com", "wrong-password"))
	require.NotEmpty(t, h.store.State().Error)

	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
	assert.Empty(t, h.store.State().Error)
}

func TestProfileFetchFailureSynthesizesFreeIdentity(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, session.WithClock(func() time.Time { return fixed }))
	p := h.provider.AddAccount("new@example.com", "correct-horse", "Newcomer")
	h.store.Start(context.Background())

	require.NoError(t, h.store.Login(context.Background(), "new@example.com", "correct-horse"))

	st := h.store.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, p.UID, st.Identity.UID)
	assert.Equal(t, services.TierFree, st.Identity.Tier)
	assert.Equal(t, "Newcomer", st.Identity.Name)
	assert.Equal(t, fixed, st.Identity.CreatedAt)
	assert.True(t, st.Identity.Synthesized)
	assert.Empty(t, st.Error)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))

	require.NoError(t, h.store.Logout(context.Background()))

	st := h.store.State()
	assert.Nil(t, st.Identity)
	assert.Equal(t, session.PhaseAnonymous, st.Phase())

	tok, err := h.store.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

// =============================================================================
// Signup
// =============================================================================

func TestSignup_CreatesProfile(t *testing.T) {
	h := newHarness(t)
	h.store.Start(context.Background())

	require.NoError(t, h.store.Signup(context.Background(), "alice@example.com", "Str0ng!pass", "Alice"))

	st := h.store.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, "Alice", st.Identity.Name)
	assert.False(t, st.Identity.Synthesized)
	assert.Equal(t, "Alice", h.provider.Current().DisplayName)

	posts, _ := h.backend.counts()
	assert.Equal(t, 1, posts)
}

func TestSignup_DisplayNameFailureStillCreatesProfile(t *testing.T) {
	h := newHarness(t)
	h.provider.FailDisplayName(errors.New("quota exceeded"))
	h.store.Start(context.Background())

	err := h.store.Signup(context.Background(), "alice@example.com", "Str0ng!pass", "Alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrDisplayNameNotSet)

	st := h.store.State()
	assert.NotEmpty(t, st.Error)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "Alice", st.Identity.Name)
	assert.NotNil(t, h.provider.Current())

	posts, _ := h.backend.counts()
	assert.Equal(t, 1, posts)
}

func TestSignup_Rejected(t *testing.T) {
	h := newHarness(t)
	h.seedAccount("taken@example.com", "correct-horse", services.TierFree)
	h.store.Start(context.Background())

	tests := []struct {
		name     string
		email    string
		password string
		kind     apierror.Kind
	}{
		{"weak password", "bob@example.com", "password", apierror.KindValidation},
		{"bad email", "bob", "Str0ng!pass", apierror.KindValidation},
		{"email exists", "taken@example.com", "Str0ng!pass", apierror.KindAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.store.Signup(context.Background(), tt.email, tt.password, "Bob")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apierror.KindOf(err))
			assert.Nil(t, h.store.State().Identity)
		})
	}
}

func TestSignup_SingleCharacterName(t *testing.T) {
	h := newHarness(t)
	h.store.Start(context.Background())

	require.NoError(t, h.store.Signup(context.Background(), "bo@example.com", "Str0ng!pass", "B"))

	require.NotNil(t, h.provider.Current())
	st := h.store.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, "B", st.Identity.Name)
}

func TestSignup_NameRequired(t *testing.T) {
	h := newHarness(t)
	h.store.Start(context.Background())

	err := h.store.Signup(context.Background(), "bo@example.com", "Str0ng!pass", "  ")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Nil(t, h.provider.Current())
}

// =============================================================================
// Profile update and password reset
// =============================================================================

func TestUpdateProfile_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	h.store.Start(context.Background())

	err := h.store.UpdateProfile(context.Background(), "Alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)
	assert.Equal(t, apierror.KindAuthentication, apierror.KindOf(err))
	assert.Nil(t, h.store.State().Identity)
	assert.NotEmpty(t, h.store.State().Error)

	_, puts := h.backend.counts()
	assert.Equal(t, 0, puts)
}

func TestUpdateProfile_MergesResponse(t *testing.T) {
	h := newHarness(t)
	p := h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
	before := h.store.State().Identity

	require.NoError(t, h.store.UpdateProfile(context.Background(), "Renamed"))

	after := h.store.State().Identity
	require.NotNil(t, after)
	assert.Equal(t, "Renamed", after.Name)
	assert.Equal(t, p.UID, after.UID)
	assert.Equal(t, services.TierPro, after.Tier)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, "Renamed", h.provider.Current().DisplayName)
}

// unknownAccountProvider reports unknown accounts on password reset.
type unknownAccountProvider struct {
	*identity.MemoryProvider
}

func (p unknownAccountProvider) SendPasswordReset(ctx context.Context, email string) error {
	return fmt.Errorf("reset %s: %w", email, identity.ErrUserNotFound)
}

func TestResetPassword_UnknownAccountSucceeds(t *testing.T) {
	provider := identity.NewMemoryProvider()
	store := session.NewStore(unknownAccountProvider{provider}, nil)
	store.Start(context.Background())
	defer store.Close()

	require.NoError(t, store.ResetPassword(context.Background(), "x@y.com"))
	assert.Empty(t, store.State().Error)

	h := newHarness(t)
	h.store.Start(context.Background())
	require.NoError(t, h.store.ResetPassword(context.Background(), "x@y.com"))
	assert.Equal(t, []string{"x@y.com"}, h.provider.ResetsSent())
}

// =============================================================================
// Re-sync
// =============================================================================

func TestSynthesizedIdentityResyncsAfterBackendRecovers(t *testing.T) {
	h := newHarness(t, session.WithResyncInterval(0))
	h.client.OnAuthenticatedSuccess(h.store.ResyncIfSynthesized)
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())

	h.backend.down.Store(true)
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
	require.True(t, h.store.State().Identity.Synthesized)

	h.backend.down.Store(false)
	require.NoError(t, h.client.Get(context.Background(), "/_api/health", nil, nil))

	assert.Eventually(t, func() bool {
		id := h.store.State().Identity
		return id != nil && !id.Synthesized && id.Tier == services.TierPro
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResyncSkippedForBackendIdentity(t *testing.T) {
	h := newHarness(t, session.WithResyncInterval(0))
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))

	h.store.ResyncIfSynthesized()
	h.store.Close()
	assert.False(t, h.store.State().Identity.Synthesized)
}

func TestResyncDoesNotOverwriteNewerProfileUpdate(t *testing.T) {
	h := newHarness(t, session.WithResyncInterval(0))
	h.client.OnAuthenticatedSuccess(h.store.ResyncIfSynthesized)
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())

	h.backend.down.Store(true)
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
	require.True(t, h.store.State().Identity.Synthesized)
	h.backend.down.Store(false)

	fetched := make(chan struct{})
	release := make(chan struct{})
	h.backend.mu.Lock()
	h.backend.holdGet = func() {
		close(fetched)
		<-release
	}
	h.backend.mu.Unlock()

	require.NoError(t, h.client.Get(context.Background(), "/_api/health", nil, nil))
	<-fetched

	require.NoError(t, h.store.UpdateProfile(context.Background(), "Renamed"))
	assert.Equal(t, "Renamed", h.store.State().Identity.Name)

	close(release)
	h.store.Close()
	assert.Equal(t, "Renamed", h.store.State().Identity.Name)
}

func TestResyncAfterCloseIsIgnored(t *testing.T) {
	h := newHarness(t, session.WithResyncInterval(0))
	h.seedAccount("ops@example.com", "correct-horse", services.TierPro)
	h.store.Start(context.Background())

	h.backend.down.Store(true)
	require.NoError(t, h.store.Login(context.Background(), "ops@example.com", "correct-horse"))
	h.backend.down.Store(false)

	h.store.Close()
	h.store.ResyncIfSynthesized()
	h.store.Close()

	id := h.store.State().Identity
	require.NotNil(t, id)
	assert.True(t, id.Synthesized)
}
