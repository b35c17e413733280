package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/mocks"
	"github.com/Olprog59/ehs-access/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-session-secret-32-characters!!"

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			SessionSecret:        testSecret,
			SessionTokenDuration: time.Hour,
			LoginDelay:           0,
			DefaultRole:          "GMG Admin",
		},
		Session: config.SessionConfig{
			DemoAutologin: true,
			DemoID:        "1",
			DemoEmail:     "demo@gmg.com",
			DemoName:      "John Smith",
			DemoRole:      "GMG Admin",
		},
	}
}

type sessionFixture struct {
	svc     *SessionService
	store   *mocks.MockSessionStore
	metrics *mocks.MockMetrics
	conf    *config.Config
}

func newSessionFixture(t *testing.T, mutate ...func(*config.Config)) *sessionFixture {
	t.Helper()
	conf := testConfig()
	for _, fn := range mutate {
		fn(conf)
	}
	m := mocks.NewMockMetrics()
	store := mocks.NewMockSessionStore()
	svc := NewSessionService(store, NewAccessService(nil, m), conf, m)
	return &sessionFixture{svc: svc, store: store, metrics: m, conf: conf}
}

func TestSessionService_InitialState(t *testing.T) {
	f := newSessionFixture(t)
	state := f.svc.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
	assert.Equal(t, domain.StatusAnonymous, state.Status)
}

func TestSessionService_LoginSuccess(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.svc.Login(context.Background(), "a@b.com", "x"))

	state := f.svc.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.User)
	assert.Equal(t, domain.User{ID: "1", Email: "a@b.com", Name: "Demo User", Role: domain.RoleGMGAdmin}, *state.User)
	assert.Equal(t, 1, f.metrics.Logins("success"))

	// The persisted token reconstructs the same identity.
	persisted, err := auth.ParseSessionToken(f.store.Token(), testSecret)
	require.NoError(t, err)
	assert.Equal(t, *state.User, persisted.User)
}

func TestSessionService_LoginUsesConfiguredDefaultRole(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Auth.DefaultRole = "Area Manager" })
	require.NoError(t, f.svc.Login(context.Background(), "a@b.com", "x"))
	role, ok := f.svc.CurrentRole()
	assert.True(t, ok)
	assert.Equal(t, domain.RoleAreaManager, role)
}

func TestSessionService_LoginEmptyFields(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"both empty", "", ""},
		{"empty identifier", "", "x"},
		{"empty secret", "a@b.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			err := f.svc.Login(context.Background(), tt.identifier, tt.secret)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}

			state := f.svc.State()
			assert.False(t, state.IsAuthenticated)
			assert.False(t, state.IsLoading)
			assert.Equal(t, "Invalid credentials", state.Error)
			assert.Nil(t, state.User)
			assert.Empty(t, f.store.Token())
			assert.Equal(t, 1, f.metrics.Logins("invalid"))
		})
	}
}

func TestSessionService_LoginPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	f := newSessionFixture(t, func(c *config.Config) { c.Auth.PasswordHash = string(hash) })

	assert.ErrorIs(t, f.svc.Login(context.Background(), "a@b.com", "wrong"), ErrInvalidCredentials)
	assert.False(t, f.svc.State().IsAuthenticated)

	assert.NoError(t, f.svc.Login(context.Background(), "a@b.com", "s3cret"))
	assert.True(t, f.svc.State().IsAuthenticated)
}

func TestSessionService_LoginIsLoadingDuringDelay(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Auth.LoginDelay = 200 * time.Millisecond })

	done := make(chan error, 1)
	go func() { done <- f.svc.Login(context.Background(), "a@b.com", "x") }()

	require.Eventually(t, func() bool { return f.svc.State().IsLoading }, time.Second, 5*time.Millisecond)
	state := f.svc.State()
	assert.Equal(t, domain.StatusAuthenticating, state.Status)
	assert.False(t, state.IsAuthenticated)
	assert.False(t, f.svc.Restoring(), "a pending login is not a restore")

	require.NoError(t, <-done)
	assert.True(t, f.svc.State().IsAuthenticated)
}

func TestSessionService_LoginCancelled(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Auth.LoginDelay = time.Minute })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.svc.Login(ctx, "a@b.com", "x")
	assert.ErrorIs(t, err, context.Canceled)

	state := f.svc.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
	assert.Equal(t, 1, f.metrics.Logins("cancelled"))
}

func TestSessionService_LogoutDuringLoginSupersedes(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Auth.LoginDelay = 100 * time.Millisecond })

	done := make(chan error, 1)
	go func() { done <- f.svc.Login(context.Background(), "a@b.com", "x") }()
	require.Eventually(t, func() bool { return f.svc.State().IsLoading }, time.Second, 5*time.Millisecond)

	f.svc.Logout(context.Background())
	assert.ErrorIs(t, <-done, ErrLoginSuperseded)
	assert.False(t, f.svc.State().IsAuthenticated)
}

func TestSessionService_Logout(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.svc.Login(context.Background(), "a@b.com", "x"))
	require.NotEmpty(t, f.store.Token())

	f.svc.Logout(context.Background())

	state := f.svc.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, f.store.Token())
	assert.Equal(t, 1, f.metrics.LogoutCalls)
	assert.False(t, f.svc.HasAccess(domain.ModuleDashboard, domain.ActionView))
}

func TestSessionService_SwitchRoleTakesEffectImmediately(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Login(ctx, "a@b.com", "x"))

	assert.True(t, f.svc.HasAccess(domain.ModuleEmployees, domain.ActionDelete))

	require.NoError(t, f.svc.SwitchRole(ctx, domain.RoleClient))
	assert.False(t, f.svc.HasAccess(domain.ModuleEmployees, domain.ActionView))
	assert.Equal(t, domain.NoAccess(domain.ModuleEmployees), f.svc.GetModuleAccess(domain.ModuleEmployees))

	require.NoError(t, f.svc.SwitchRole(ctx, domain.RoleComplianceCoordinator))
	assert.True(t, f.svc.HasAccess(domain.ModuleEmployees, domain.ActionCreate))
	assert.False(t, f.svc.HasAccess(domain.ModuleEmployees, domain.ActionDelete))

	persisted, err := auth.ParseSessionToken(f.store.Token(), testSecret)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleComplianceCoordinator, persisted.User.Role)
	assert.Equal(t, []string{"Client", "Compliance Coordinator"}, f.metrics.RoleSwitches)
}

func TestSessionService_SwitchRoleUnknownIsDeniedEverywhere(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Login(ctx, "a@b.com", "x"))

	require.NoError(t, f.svc.SwitchRole(ctx, domain.Role(42)))
	assert.True(t, f.svc.State().IsAuthenticated)
	for _, module := range domain.AllModules() {
		for _, action := range domain.AllActions() {
			assert.False(t, f.svc.HasAccess(module, action), "%s/%s", module, action)
		}
	}
}

func TestSessionService_SwitchRoleWhenAnonymous(t *testing.T) {
	f := newSessionFixture(t)
	err := f.svc.SwitchRole(context.Background(), domain.RoleAuditor)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, f.svc.State().IsAuthenticated)
	assert.Zero(t, f.store.SaveCalls)
}

func TestSessionService_PersistenceFailureDoesNotFailTransition(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveError = errors.New("disk full")
	f.store.ClearError = errors.New("disk full")

	require.NoError(t, f.svc.Login(context.Background(), "a@b.com", "x"))
	assert.True(t, f.svc.State().IsAuthenticated)

	require.NoError(t, f.svc.SwitchRole(context.Background(), domain.RoleAuditor))
	role, _ := f.svc.CurrentRole()
	assert.Equal(t, domain.RoleAuditor, role)

	f.svc.Logout(context.Background())
	assert.False(t, f.svc.State().IsAuthenticated)
}

func TestSessionService_RestoreValidToken(t *testing.T) {
	f := newSessionFixture(t)
	user := domain.User{ID: "1", Email: "sam@gmg.com", Name: "Demo User", Role: domain.RoleSiteManager}
	token, _, err := auth.IssueSessionToken(domain.PersistedSession{User: user, LoggedIn: time.Now()}, testSecret, time.Hour)
	require.NoError(t, err)
	f.store.Record = &domain.SessionRecord{Token: token}

	require.NoError(t, f.svc.Restore(context.Background()))

	state := f.svc.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, user, *state.User)
	assert.Equal(t, 1, f.metrics.RestoreOutcomes["restored"])
}

func TestSessionService_RestoreInvalidTokens(t *testing.T) {
	otherKey, _, err := auth.IssueSessionToken(domain.PersistedSession{
		User: domain.User{ID: "1", Role: domain.RoleGMGAdmin},
	}, "a-different-secret-for-signing", time.Hour)
	require.NoError(t, err)

	badRole, _, err := auth.IssueSessionToken(domain.PersistedSession{
		User: domain.User{ID: "1", Role: domain.Role(77)},
	}, testSecret, time.Hour)
	require.NoError(t, err)

	expired, _, err := auth.IssueSessionToken(domain.PersistedSession{
		User:     domain.User{ID: "1", Role: domain.RoleClient},
		LoggedIn: time.Now().Add(-2 * time.Hour),
	}, testSecret, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"tampered signature": otherKey,
		"unknown role":       badRole,
		"expired":            expired,
		"garbage":            "definitely-not-a-jwt",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			f := newSessionFixture(t)
			f.store.Record = &domain.SessionRecord{Token: token}

			require.NoError(t, f.svc.Restore(context.Background()))

			state := f.svc.State()
			assert.False(t, state.IsAuthenticated)
			assert.Nil(t, state.User)
			assert.Nil(t, f.store.Record, "invalid row must be cleared")
			assert.Equal(t, 1, f.metrics.InvalidTokenCalls)
		})
	}
}

func TestSessionService_RestoreEmptyStore(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.svc.Restore(context.Background()))

	state := f.svc.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, domain.User{ID: "1", Email: "demo@gmg.com", Name: "John Smith", Role: domain.RoleGMGAdmin}, *state.User)
	assert.Equal(t, 1, f.metrics.RestoreOutcomes["demo"])

	f = newSessionFixture(t, func(c *config.Config) { c.Session.DemoAutologin = false })
	require.NoError(t, f.svc.Restore(context.Background()))
	assert.False(t, f.svc.State().IsAuthenticated)
	assert.Equal(t, 1, f.metrics.RestoreOutcomes["anonymous"])
}

func TestSessionService_RestoreLoadError(t *testing.T) {
	f := newSessionFixture(t)
	f.store.LoadError = errors.New("connection refused")

	err := f.svc.Restore(context.Background())
	assert.Error(t, err)
	assert.False(t, f.svc.State().IsAuthenticated)
	assert.False(t, f.svc.State().IsLoading)
}

func TestSessionService_SweepExpired(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Login(ctx, "a@b.com", "x"))

	assert.False(t, f.svc.SweepExpired(ctx), "fresh session must survive")

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.True(t, f.svc.SweepExpired(ctx))
	assert.False(t, f.svc.State().IsAuthenticated)
	assert.Empty(t, f.store.Token())
	assert.Equal(t, 1, f.metrics.ExpiredCalls)

	assert.False(t, f.svc.SweepExpired(ctx), "already anonymous")
}

func TestSessionService_ConcurrentReadsDuringSwitch(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Login(ctx, "a@b.com", "x"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			role := domain.AllRoles()[i%len(domain.AllRoles())]
			_ = f.svc.SwitchRole(ctx, role)
		}(i)
		go func() {
			defer wg.Done()
			_ = f.svc.State()
			_ = f.svc.HasAccess(domain.ModuleDashboard, domain.ActionView)
		}()
	}
	wg.Wait()

	// The stored row follows the final in-memory role.
	role, ok := f.svc.CurrentRole()
	require.True(t, ok)
	persisted, err := auth.ParseSessionToken(f.store.Token(), testSecret)
	require.NoError(t, err)
	assert.Equal(t, role, persisted.User.Role)
}
