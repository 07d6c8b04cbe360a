// Package auth tracks who is signed in. A Session moves from anonymous
// through authenticating to authenticated, and back to anonymous on a
// failed attempt or a logout.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkmates/sparkmates/internal/config"
	"github.com/sparkmates/sparkmates/internal/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthInProgress     = errors.New("authentication already in progress")
	ErrInvalidToken       = errors.New("invalid or expired token")
	// ErrLoggedOut is returned by a login or register that finished after
	// the session was logged out.
	ErrLoggedOut = errors.New("session logged out")
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Manager creates sessions and checks credentials against the store.
type Manager struct {
	store *db.Store
	cfg   config.AuthConfig
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewManager(store *db.Store, cfg config.AuthConfig, log logrus.FieldLogger) *Manager {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Manager{store: store, cfg: cfg, log: log, now: time.Now}
}

// SetClock replaces the time source used for account and token stamps.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// NewSession returns an anonymous session.
func (m *Manager) NewSession() *Session {
	return &Session{m: m}
}

// Resume rebuilds an authenticated session from a server side session
// token.
func (m *Manager) Resume(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, found, err := m.store.GetUserBySession(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidToken
	}
	return &Session{m: m, state: Authenticated, user: user, token: token}, nil
}

// checkPassword accepts the shared test password for accounts without a
// stored hash and bcrypt for everyone else.
func (m *Manager) checkPassword(u db.User, password string) bool {
	if u.PasswordHash == "" {
		if m.cfg.TestPassword == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(password), []byte(m.cfg.TestPassword)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Session is the authentication state of one client. It is safe for
// concurrent use; only one login or register runs at a time.
type Session struct {
	m *Manager

	mu    sync.Mutex
	state State
	user  db.User
	token string
	// epoch changes on every logout so that an attempt started before it
	// cannot sign the session back in.
	epoch int
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed in user.
func (s *Session) User() (db.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return db.User{}, false
	}
	return s.user, true
}

// Token returns the server side session token, empty unless authenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// begin moves the session to authenticating and returns the previous token
// together with the epoch the attempt belongs to.
func (s *Session) begin() (prevToken string, epoch int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticating {
		return "", 0, ErrAuthInProgress
	}
	prevToken = s.token
	s.state = Authenticating
	s.user = db.User{}
	s.token = ""
	return prevToken, s.epoch, nil
}

func (s *Session) fail(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.state = Anonymous
	}
}

func (s *Session) finish(ctx context.Context, epoch int, user db.User, sess db.Session) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.dropToken(ctx, sess.Token)
		return ErrLoggedOut
	}
	s.state = Authenticated
	s.user = user
	s.token = sess.Token
	s.mu.Unlock()
	return nil
}

func (s *Session) dropToken(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.m.store.DeleteSession(ctx, token); err != nil {
		s.m.log.WithError(err).Warn("delete session")
	}
}

// Login signs in with the first account registered under email whose
// password matches. On failure the session is anonymous and the error is
// ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, email, password string) (db.User, error) {
	prev, epoch, err := s.begin()
	if err != nil {
		return db.User{}, err
	}
	s.dropToken(ctx, prev)

	user, err := s.m.authenticate(ctx, email, password)
	if err != nil {
		s.fail(epoch)
		return db.User{}, err
	}
	sess, err := s.m.store.CreateSession(ctx, user.ID, s.m.cfg.SessionTTL)
	if err != nil {
		s.fail(epoch)
		return db.User{}, err
	}
	if err := s.finish(ctx, epoch, user, sess); err != nil {
		return db.User{}, err
	}
	s.m.log.WithFields(logrus.Fields{"user": user.ID}).Info("user logged in")
	return user, nil
}

func (m *Manager) authenticate(ctx context.Context, email, password string) (db.User, error) {
	users, err := m.store.ListUsersByEmail(ctx, email)
	if err != nil {
		return db.User{}, err
	}
	for _, u := range users {
		if m.checkPassword(u, password) {
			return u, nil
		}
	}
	m.log.WithFields(logrus.Fields{
		"email":    redactEmail(email),
		"accounts": len(users),
	}).Info("login rejected")
	return db.User{}, ErrInvalidCredentials
}

// redactEmail keeps the first letter of the local part and the domain.
func redactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	_, size := utf8.DecodeRuneInString(local)
	return local[:size] + "***@" + domain
}

// Register creates an account and signs it in. Emails are not checked for
// uniqueness.
func (s *Session) Register(ctx context.Context, name, email, password string) (db.User, error) {
	prev, epoch, err := s.begin()
	if err != nil {
		return db.User{}, err
	}
	s.dropToken(ctx, prev)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.m.cfg.BcryptCost)
	if err != nil {
		s.fail(epoch)
		return db.User{}, fmt.Errorf("hash password: %w", err)
	}
	if name == "" {
		name = "New User"
	}
	user, err := s.m.store.CreateUser(ctx, db.User{
		Name:         name,
		Email:        email,
		Role:         "USER",
		PasswordHash: string(hash),
		CreatedAt:    s.m.now().UTC(),
	})
	if err != nil {
		s.fail(epoch)
		return db.User{}, err
	}
	sess, err := s.m.store.CreateSession(ctx, user.ID, s.m.cfg.SessionTTL)
	if err != nil {
		s.fail(epoch)
		return db.User{}, err
	}
	if err := s.finish(ctx, epoch, user, sess); err != nil {
		return db.User{}, err
	}
	s.m.log.WithFields(logrus.Fields{"user": user.ID}).Info("user registered")
	return user, nil
}

// Logout makes the session anonymous and removes its server side token.
// It always succeeds in changing the state; the error reports a failed
// token removal.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	userID := s.user.ID
	s.state = Anonymous
	s.user = db.User{}
	s.token = ""
	s.epoch++
	s.mu.Unlock()

	if token == "" {
		return nil
	}
	if err := s.m.store.DeleteSession(ctx, token); err != nil {
		return err
	}
	s.m.log.WithFields(logrus.Fields{"user": userID}).Info("user logged out")
	return nil
}

// UserPatch holds the profile fields to change. Nil fields are kept.
type UserPatch struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Bio    *string `json:"bio"`
	Role   *string `json:"role"`
	Avatar *string `json:"avatar"`
}

func (p UserPatch) apply(u *db.User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}

// UpdateUser merges patch into the signed in user and stores the result.
// On an anonymous session it does nothing and reports false.
func (s *Session) UpdateUser(ctx context.Context, patch UserPatch) (db.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return db.User{}, false, nil
	}
	updated := s.user
	patch.apply(&updated)
	if err := s.m.store.UpdateUser(ctx, updated); err != nil {
		return db.User{}, false, err
	}
	s.user = updated
	return updated, true, nil
}
