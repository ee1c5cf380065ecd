// Package session holds the process-wide authentication state: the backend
// token and the user profile, mirrored into local storage.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/rogerio-castellano/storefront/internal/storage"
	"github.com/sirupsen/logrus"
)

type Session struct {
	store storage.Store
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	user      *models.User
	listeners []func()
	onLogin   []func()
}

func New(store storage.Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Rehydrate restores the session persisted by a previous run. Expired JWTs
// and unreadable profiles are dropped.
func (s *Session) Rehydrate(ctx context.Context) error {
	token, err := s.store.Get(ctx, storage.KeyToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if Expired(token, s.now()) {
		logrus.Info("Stored session token expired, discarding")
		return s.Clear(ctx)
	}

	var user models.User
	if err := storage.GetJSON(ctx, s.store, storage.KeyUser, &user); err != nil {
		logrus.WithError(err).Warn("Stored user profile unreadable, discarding session")
		return s.Clear(ctx)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	logrus.WithField("username", user.Username).Info("Session restored")
	return nil
}

func (s *Session) Login(ctx context.Context, token string, user models.User) error {
	if err := s.store.Set(ctx, storage.KeyToken, token); err != nil {
		return err
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeyUser, user); err != nil {
		return err
	}

	s.mu.Lock()
	switched := s.token != "" && (s.user == nil || s.user.ID != user.ID)
	s.token = token
	s.user = &user
	listeners := append([]func(){}, s.listeners...)
	hooks := append([]func(){}, s.onLogin...)
	s.mu.Unlock()

	// Logging in over another user's session ends that session first.
	if switched {
		for _, fn := range listeners {
			fn()
		}
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Clear forgets the token and the profile, both in memory and in storage,
// and notifies logout listeners if a session was active.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	wasLoggedIn := s.token != ""
	s.token = ""
	s.user = nil
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	err := errors.Join(
		s.store.Delete(ctx, storage.KeyToken),
		s.store.Delete(ctx, storage.KeyUser),
	)

	if wasLoggedIn {
		for _, fn := range listeners {
			fn()
		}
	}
	return err
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) IsStaff() bool {
	u, ok := s.User()
	return ok && u.IsStaff
}

// OnLogin registers fn to run after every successful Login.
func (s *Session) OnLogin(fn func()) {
	s.mu.Lock()
	s.onLogin = append(s.onLogin, fn)
	s.mu.Unlock()
}

// OnLogout registers fn to run every time an active session is cleared.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) SetRedirect(ctx context.Context, path string) error {
	return s.store.Set(ctx, storage.KeyRedirectAfterLogin, path)
}

// PopRedirect returns and forgets the post-login navigation target.
func (s *Session) PopRedirect(ctx context.Context) string {
	path, err := s.store.Get(ctx, storage.KeyRedirectAfterLogin)
	if err != nil {
		return ""
	}
	_ = s.store.Delete(ctx, storage.KeyRedirectAfterLogin)
	return path
}
