package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/gateway"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/services"
	"github.com/aiguard/console/internal/session"
	"github.com/aiguard/console/internal/tui"
)

// =============================================================================
// Fake backend
// =============================================================================

type recorded struct {
	method string
	path   string
	body   string
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []recorded
	replies map[string]string // "METHOD /path" -> JSON
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls = append(b.calls, recorded{r.Method, r.URL.Path, string(body)})
	reply, ok := b.replies[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"NOT_FOUND","message":"no route","statusCode":404}}`))
		return
	}
	_, _ = w.Write([]byte(reply))
}

func (b *fakeBackend) find(method, path string) (recorded, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c.method == method && c.path == path {
			return c, true
		}
	}
	return recorded{}, false
}

const profileJSON = `{"uid":"u1","email":"ada@example.com","name":"Ada","tier":"pro","createdAt":"2025-01-02T00:00:00Z","updatedAt":"2025-01-02T00:00:00Z"}`

// newTestApp wires the real gateway, services and session store against a
// fake backend, with prompts answered from input.
func newTestApp(t *testing.T, replies map[string]string, input string) (*app, *fakeBackend, *bytes.Buffer) {
	t.Helper()

	backend := &fakeBackend{replies: map[string]string{"GET /_api/users/profile": profileJSON}}
	for k, v := range replies {
		backend.replies[k] = v
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	provider := identity.NewMemoryProvider()
	provider.AddAccount("ada@example.com", "secret123", "Ada")

	client := gateway.NewClient(srv.URL, gateway.WithTokenSource(provider))
	svc := services.New(client)
	store := session.NewStore(provider, svc.Users)
	client.OnAuthenticatedSuccess(store.ResyncIfSynthesized)
	store.Start(context.Background())

	a := &app{
		cfg:      config.Default(),
		provider: provider,
		client:   client,
		svc:      svc,
		store:    store,
		prompt:   tui.NewPrompterFrom(strings.NewReader(input), io.Discard),
	}
	t.Cleanup(a.Close)

	var out bytes.Buffer
	prev := tui.Out
	tui.Out = &out
	t.Cleanup(func() { tui.Out = prev })
	return a, backend, &out
}

func signIn(t *testing.T, a *app) {
	t.Helper()
	require.NoError(t, a.store.Login(context.Background(), "ada@example.com", "secret123"))
}

// =============================================================================
// Argument parsing
// =============================================================================

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want globalOptions
		rest []string
	}{
		{"none", []string{"whoami"}, globalOptions{}, []string{"whoami"}},
		{"short", []string{"-c", "x.yaml", "-d", "health"}, globalOptions{configPath: "x.yaml", debug: true}, []string{"health"}},
		{"long after command", []string{"projects", "list", "--json", "--config=y.yaml"}, globalOptions{configPath: "y.yaml", jsonOut: true}, []string{"projects", "list"}},
		{"double dash stops", []string{"profile", "--", "set-name", "--debug"}, globalOptions{}, []string{"profile", "set-name", "--debug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, rest, err := parseGlobalFlags(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)
			assert.Equal(t, tt.rest, rest)
		})
	}

	_, _, err := parseGlobalFlags([]string{"--config"})
	assert.ErrorContains(t, err, "requires a value")
}

func TestParseCmdArgs(t *testing.T) {
	ca, err := parseCmdArgs([]string{"create", "--name", "Alpha", "--description=two words", "--yes"}, "name", "description")
	require.NoError(t, err)
	assert.Equal(t, "create", ca.arg(0))
	assert.Equal(t, "", ca.arg(3))
	name, _ := ca.value("name")
	assert.Equal(t, "Alpha", name)
	desc, _ := ca.value("description")
	assert.Equal(t, "two words", desc)
	assert.True(t, ca.flag("yes"))

	_, err = ca.require("create", "PROJECT")
	assert.ErrorContains(t, err, "missing PROJECT")

	_, err = parseCmdArgs([]string{"--name"}, "name")
	assert.Error(t, err)
	_, err = parseCmdArgs([]string{"--yes=1"})
	assert.Error(t, err)

	ca, err = parseCmdArgs([]string{"--limit", "x"}, "limit")
	require.NoError(t, err)
	_, err = ca.intValue("limit", 10)
	assert.ErrorContains(t, err, "must be a number")

	assert.Equal(t, []string{"api:read", "admin"}, splitList(" api:read, ,admin "))
}

// =============================================================================
// Dispatch
// =============================================================================

func TestRun_HelpAndUnknownCommand(t *testing.T) {
	assert.Equal(t, 0, run([]string{"help"}))
	assert.Equal(t, 2, run([]string{"frobnicate"}))
	assert.Equal(t, 2, run([]string{"--config"}))
}

func TestRun_HealthWithConfigFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_api/health", r.URL.Path)
		assert.Equal(t, gateway.ProviderHeaderValue, r.Header.Get(gateway.ProviderHeader))
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.2.3"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Identity.Provider = config.ProviderMemory
	cfg.Storage.Persist = false
	cfg.Monitoring.Log.Output = filepath.Join(dir, "console.log")
	require.NoError(t, config.Save(cfg, path))

	var out bytes.Buffer
	prev := tui.Out
	tui.Out = &out
	defer func() { tui.Out = prev }()

	assert.Equal(t, 0, run([]string{"--config", path, "health"}))
	assert.Contains(t, out.String(), "is ok")
	assert.Contains(t, out.String(), "version 1.2.3")
}

func TestRun_BadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: ftp://nope\n"), 0600))
	assert.Equal(t, 1, run([]string{"--config", path, "whoami"}))
}

// =============================================================================
// Account commands
// =============================================================================

func TestLoginThenWhoami(t *testing.T) {
	a, _, out := newTestApp(t, nil, "secret123\n")

	require.NoError(t, runLogin(context.Background(), a, []string{"--email", "ada@example.com"}))
	assert.Contains(t, out.String(), "Signed in as ada@example.com")

	out.Reset()
	require.NoError(t, runWhoami(context.Background(), a, nil))
	assert.Contains(t, out.String(), "Pro")
	assert.Contains(t, out.String(), "Ada")
}

func TestLogin_WrongPassword(t *testing.T) {
	a, _, _ := newTestApp(t, nil, "wrong-password\n")
	err := runLogin(context.Background(), a, []string{"--email", "ada@example.com"})
	require.Error(t, err)
	assert.Nil(t, a.store.State().Identity)
	assert.NotEmpty(t, a.store.State().Error)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	a, backend, _ := newTestApp(t, nil, "Str0ng!pass\nStr0ng!diff\n")
	err := runSignup(context.Background(), a, []string{"--email", "new@example.com", "--name", "Newbie"})
	assert.ErrorContains(t, err, "do not match")
	_, posted := backend.find(http.MethodPost, "/_api/users/profile")
	assert.False(t, posted)
}

func TestProfileSetName(t *testing.T) {
	a, backend, out := newTestApp(t, map[string]string{
		"PUT /_api/users/profile": `{"name":"Ada L","updatedAt":"2025-02-01T00:00:00Z"}`,
	}, "")
	signIn(t, a)

	require.NoError(t, runProfile(context.Background(), a, []string{"set-name", "Ada L"}))
	assert.Contains(t, out.String(), "Display name set to Ada L")
	call, ok := backend.find(http.MethodPut, "/_api/users/profile")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Ada L"}`, call.body)
}

func TestResourceCommandsNeedSession(t *testing.T) {
	a, backend, _ := newTestApp(t, nil, "")
	for _, fn := range []commandFunc{runDashboard, runProjects, runTokens} {
		assert.ErrorContains(t, fn(context.Background(), a, nil), "not signed in")
	}
	_, called := backend.find(http.MethodGet, "/_api/projects")
	assert.False(t, called)
}

// =============================================================================
// Resource commands
// =============================================================================

func TestProjectsList_JSON(t *testing.T) {
	a, _, out := newTestApp(t, map[string]string{
		"GET /_api/projects": `{"projects":[{"id":"p1","name":"Alpha","role":"owner"}],"total":1}`,
	}, "")
	signIn(t, a)
	a.jsonOut = true

	require.NoError(t, runProjects(context.Background(), a, []string{"list"}))
	var got []services.Project
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha", got[0].Name)
}

func TestProjectsUpdate_SendsOnlyGivenFields(t *testing.T) {
	a, backend, _ := newTestApp(t, map[string]string{
		"PUT /_api/projects/p1": `{"id":"p1","name":"Alpha","description":"new"}`,
	}, "")
	signIn(t, a)

	require.NoError(t, runProjects(context.Background(), a, []string{"update", "p1", "--description", "new"}))
	call, ok := backend.find(http.MethodPut, "/_api/projects/p1")
	require.True(t, ok)
	assert.JSONEq(t, `{"description":"new"}`, call.body)
}

func TestProjectsDelete_Cancelled(t *testing.T) {
	a, backend, out := newTestApp(t, nil, "n\n")
	signIn(t, a)

	require.NoError(t, runProjects(context.Background(), a, []string{"delete", "p1"}))
	assert.Contains(t, out.String(), "Cancelled")
	_, deleted := backend.find(http.MethodDelete, "/_api/projects/p1")
	assert.False(t, deleted)
}

func TestProjectsQuota(t *testing.T) {
	a, _, out := newTestApp(t, map[string]string{
		"GET /_api/projects/p1/quota": `{"daily":{"used":40,"limit":100,"percentage":40},"monthly":{"used":900,"limit":1000,"percentage":90}}`,
	}, "")
	signIn(t, a)

	require.NoError(t, runProjects(context.Background(), a, []string{"quota", "p1"}))
	assert.Contains(t, out.String(), "40 / 100")
	assert.Contains(t, out.String(), "90.0% used")
}

func TestKeysAdd_UsesProviderEnvVar(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-0123456789abcdef")
	a, backend, out := newTestApp(t, map[string]string{
		"POST /_api/projects/p1/keys": `{"id":"k1","name":"prod","provider":"openai","status":"active"}`,
	}, "")
	signIn(t, a)

	require.NoError(t, runKeys(context.Background(), a, []string{"add", "p1", "--provider", "openai", "--name", "prod"}))
	call, ok := backend.find(http.MethodPost, "/_api/projects/p1/keys")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"prod","provider":"openai","key":"sk-test-0123456789abcdef"}`, call.body)
	assert.Contains(t, out.String(), "sk-test-...cdef")
	assert.NotContains(t, out.String(), "0123456789")
}

func TestMembersUpdate_RequiresRole(t *testing.T) {
	a, _, _ := newTestApp(t, nil, "")
	signIn(t, a)
	err := runMembers(context.Background(), a, []string{"update", "p1", "m1"})
	assert.ErrorContains(t, err, "--role is required")
}

func TestTokensCreate_ShowsSecretOnce(t *testing.T) {
	a, backend, out := newTestApp(t, map[string]string{
		"POST /_api/users/tokens": `{"id":"t1","name":"ci","token":"pat_secret","scopes":["api:read"]}`,
	}, "")
	signIn(t, a)

	require.NoError(t, runTokens(context.Background(), a, []string{"create", "--name", "ci", "--scopes", "api:read", "--expires-in-days", "30"}))
	assert.Contains(t, out.String(), "pat_secret")
	call, ok := backend.find(http.MethodPost, "/_api/users/tokens")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"ci","scopes":["api:read"],"expiresInDays":30}`, call.body)
}

func TestDashboard_UnknownView(t *testing.T) {
	a, _, _ := newTestApp(t, nil, "")
	signIn(t, a)
	assert.ErrorContains(t, runDashboard(context.Background(), a, []string{"pie"}), "unknown dashboard view")
}
