package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/Olprog59/ehs-access/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginUserID   = "1"
	loginUserName = "Demo User"
)

// SessionMetricsRecorder records session metrics / Enregistre les métriques de session
type SessionMetricsRecorder interface {
	RecordLoginAttempt(status string)
	RecordLogout()
	RecordRoleSwitch(role string)
	RecordSessionRestore(outcome string)
	RecordSessionExpired()
	RecordInvalidToken()
	SetAuthenticated(authenticated bool)
}

// SessionService holds the process-wide session / Contient la session du processus
//
// State moves anonymous -> authenticating -> authenticated -> anonymous. Every
// transition is applied in memory first; persistence to the store follows and
// its failures are only logged.
type SessionService struct {
	mu        sync.RWMutex
	user      *domain.User
	status    domain.SessionStatus
	restoring bool
	errMsg    string
	loggedIn  time.Time
	// gen increments on every transition so a pending login can detect it was superseded
	gen uint64

	// persistMu orders writes to the store so the stored row always tracks the latest state
	persistMu sync.Mutex

	store   ports.SessionStore
	access  *AccessService
	conf    *config.Config
	metrics SessionMetricsRecorder
	now     func() time.Time
}

// NewSessionService creates session service instance / Crée une instance de service de session
func NewSessionService(
	store ports.SessionStore,
	access *AccessService,
	conf *config.Config,
	metrics SessionMetricsRecorder,
) *SessionService {
	return &SessionService{
		status:  domain.StatusAnonymous,
		store:   store,
		access:  access,
		conf:    conf,
		metrics: metrics,
		now:     time.Now,
	}
}

// State returns a snapshot of the session / Retourne un instantané de la session
func (s *SessionService) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.AuthState{
		IsAuthenticated: s.status == domain.StatusAuthenticated,
		IsLoading:       s.status == domain.StatusAuthenticating || s.restoring,
		Error:           s.errMsg,
		Status:          s.status,
	}
	if s.user != nil {
		u := *s.user
		state.User = &u
	}
	return state
}

// Restoring reports whether the startup restore is still running
// Indique si la restauration au démarrage est en cours
func (s *SessionService) Restoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoring
}

// CurrentRole returns the signed-in role / Retourne le rôle connecté
func (s *SessionService) CurrentRole() (domain.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != domain.StatusAuthenticated || s.user == nil {
		return domain.RoleUnknown, false
	}
	return s.user.Role, true
}

// HasAccess evaluates action on module for the current role; false when anonymous
func (s *SessionService) HasAccess(module domain.Module, action domain.Action) bool {
	role, ok := s.CurrentRole()
	if !ok {
		return false
	}
	return s.access.HasAccess(role, module, action)
}

// GetModuleAccess returns the current role's cell; all false when anonymous
func (s *SessionService) GetModuleAccess(module domain.Module) domain.ModuleAccess {
	role, ok := s.CurrentRole()
	if !ok {
		return domain.NoAccess(module)
	}
	return s.access.GetModuleAccess(role, module)
}

// Login signs in after the configured delay / Connecte après le délai configuré
//
// Both fields must be non-empty. When auth.password_hash is set the secret must
// also match it. The resulting identity always carries the configured default role.
func (s *SessionService) Login(ctx context.Context, identifier, secret string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.user = nil
	s.status = domain.StatusAuthenticating
	s.errMsg = ""
	s.mu.Unlock()
	s.metrics.SetAuthenticated(false)

	slog.Debug("login started", "email", identifier, "status", domain.StatusAuthenticating.String())

	if delay := s.conf.Auth.LoginDelay; delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.finishLogin(gen, nil, "")
			s.persistCurrent(ctx)
			s.metrics.RecordLoginAttempt("cancelled")
			slog.Info("login cancelled", "email", identifier)
			return ctx.Err()
		case <-timer.C:
		}
	}

	if identifier == "" || secret == "" || !s.secretMatches(secret) {
		if !s.finishLogin(gen, nil, InvalidCredentialsMessage) {
			return ErrLoginSuperseded
		}
		s.persistCurrent(ctx)
		s.metrics.RecordLoginAttempt("invalid")
		slog.Info("login failed", "email", identifier, "status", domain.StatusAnonymous.String())
		return ErrInvalidCredentials
	}

	user := &domain.User{
		ID:    loginUserID,
		Email: identifier,
		Name:  loginUserName,
		Role:  s.conf.DefaultRole(),
	}
	if !s.finishLogin(gen, user, "") {
		return ErrLoginSuperseded
	}
	s.persistCurrent(ctx)
	s.metrics.RecordLoginAttempt("success")
	s.metrics.SetAuthenticated(true)
	slog.Info("user logged in", "email", identifier, "role", user.Role.String())
	return nil
}

// finishLogin applies the login outcome unless a newer transition happened
func (s *SessionService) finishLogin(gen uint64, user *domain.User, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.user = user
	s.errMsg = errMsg
	if user != nil {
		s.status = domain.StatusAuthenticated
		s.loggedIn = s.now()
	} else {
		s.status = domain.StatusAnonymous
		s.loggedIn = time.Time{}
	}
	return true
}

func (s *SessionService) secretMatches(secret string) bool {
	hash := s.conf.Auth.PasswordHash
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Logout clears the identity and the stored session / Efface l'identité et la session stockée
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	var email string
	if s.user != nil {
		email = s.user.Email
	}
	s.user = nil
	s.status = domain.StatusAnonymous
	s.errMsg = ""
	s.loggedIn = time.Time{}
	s.mu.Unlock()

	s.persistCurrent(ctx)
	s.metrics.RecordLogout()
	s.metrics.SetAuthenticated(false)
	slog.Info("user logged out", "email", email)
}

// SwitchRole replaces the current role in place / Remplace le rôle courant
// The role is not validated here; an unknown role is denied everywhere by the matrix.
func (s *SessionService) SwitchRole(ctx context.Context, role domain.Role) error {
	s.mu.Lock()
	if s.status != domain.StatusAuthenticated || s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.gen++
	previous := s.user.Role
	updated := *s.user
	updated.Role = role
	s.user = &updated
	s.mu.Unlock()

	s.persistCurrent(ctx)
	s.metrics.RecordRoleSwitch(role.String())
	slog.Info("role switched", "from", previous.String(), "role", role.String())
	return nil
}

// Restore loads the persisted session at startup / Restaure la session persistée au démarrage
//
// A valid token restores its identity. An invalid one is cleared. With nothing
// stored, the demo identity is used when session.demo_autologin is on.
func (s *SessionService) Restore(ctx context.Context) error {
	s.mu.Lock()
	s.restoring = true
	gen := s.gen
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.restoring = false
		s.mu.Unlock()
	}()

	rec, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		if s.conf.Session.DemoAutologin {
			demo := s.conf.DemoUser()
			s.applyRestored(gen, &demo, s.now(), "demo")
			return nil
		}
		s.applyRestored(gen, nil, time.Time{}, "anonymous")
		return nil

	case err != nil:
		s.applyRestored(gen, nil, time.Time{}, "error")
		return fmt.Errorf("load persisted session: %w", err)
	}

	session, err := auth.ParseSessionToken(rec.Token, s.conf.Auth.SessionSecret)
	if err != nil {
		s.metrics.RecordInvalidToken()
		slog.Warn("discarding invalid persisted session", "error", err)
		if s.applyRestored(gen, nil, time.Time{}, "invalid") {
			s.persistCurrent(ctx)
		}
		return nil
	}

	s.applyRestored(gen, &session.User, session.LoggedIn, "restored")
	return nil
}

// applyRestored sets the restored state unless a login or logout already happened
func (s *SessionService) applyRestored(gen uint64, user *domain.User, loggedIn time.Time, outcome string) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.gen++
	s.user = user
	s.loggedIn = loggedIn
	s.errMsg = ""
	s.status = domain.StatusAnonymous
	if user != nil {
		s.status = domain.StatusAuthenticated
	}
	s.mu.Unlock()

	s.metrics.RecordSessionRestore(outcome)
	s.metrics.SetAuthenticated(user != nil)
	if user != nil {
		slog.Info("session restored", "outcome", outcome, "email", user.Email, "role", user.Role.String())
	} else {
		slog.Info("session restored", "outcome", outcome, "status", domain.StatusAnonymous.String())
	}
	return true
}

// SweepExpired signs out a session older than auth.session_token_duration
// SweepExpired déconnecte une session expirée
func (s *SessionService) SweepExpired(ctx context.Context) bool {
	ttl := s.conf.Auth.SessionTokenDuration
	if ttl <= 0 {
		return false
	}

	s.mu.Lock()
	expired := s.status == domain.StatusAuthenticated && !s.loggedIn.IsZero() && s.now().Sub(s.loggedIn) >= ttl
	var email string
	if expired {
		email = s.user.Email
		s.gen++
		s.user = nil
		s.status = domain.StatusAnonymous
		s.loggedIn = time.Time{}
	}
	s.mu.Unlock()

	if !expired {
		return false
	}
	s.persistCurrent(ctx)
	s.metrics.RecordSessionExpired()
	s.metrics.SetAuthenticated(false)
	slog.Info("session expired", "email", email)
	return true
}

// persistCurrent writes the latest state to the store; failures are logged only
func (s *SessionService) persistCurrent(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	// Finish the write even when the caller's request is gone.
	ctx = context.WithoutCancel(ctx)

	s.mu.RLock()
	var session *domain.PersistedSession
	if s.status == domain.StatusAuthenticated && s.user != nil {
		session = &domain.PersistedSession{User: *s.user, LoggedIn: s.loggedIn}
	}
	s.mu.RUnlock()

	if session == nil {
		if err := s.store.Clear(ctx); err != nil {
			slog.Error("failed to clear persisted session", "error", err)
		}
		return
	}

	token, _, err := auth.IssueSessionToken(*session, s.conf.Auth.SessionSecret, s.conf.Auth.SessionTokenDuration)
	if err != nil {
		slog.Error("failed to sign session token", "error", err)
		return
	}
	if err := s.store.Save(ctx, &domain.SessionRecord{Token: token}); err != nil {
		slog.Error("failed to persist session", "error", err)
	}
}
