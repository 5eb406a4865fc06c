package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"credential-gate/internal/domain"
	pw "credential-gate/internal/password"
	"credential-gate/internal/repository"
	"credential-gate/internal/session"
)

const (
	defaultLoginPath         = "/login"
	defaultLandingPath       = "/welcome"
	defaultMinPasswordLength = 6
	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
)

// SessionStore is the server-side session storage the gate relies on.
// Read returns session.ErrNoSession when the token names no live session.
type SessionStore interface {
	Create(ctx context.Context, user *domain.User) (*domain.Session, string, error)
	Read(ctx context.Context, token string) (*domain.Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyUser(ctx context.Context, userID int64) (int64, error)
}

// Gate mediates login, authenticated password reset and session-gated access.
// Infrastructure failures come back as errors wrapping ErrStoreUnavailable;
// every other result is an Outcome.
type Gate interface {
	Authenticate(ctx context.Context, username, password string) (Outcome, error)
	RequireSession(ctx context.Context, token string) (Outcome, error)
	ResetPassword(ctx context.Context, sess *domain.Session, newPassword, confirmPassword string) (Outcome, error)
	Logout(ctx context.Context, token string) (Outcome, error)
}

// GateConfig tunes a Gate. Zero values select the defaults.
type GateConfig struct {
	LoginPath         string
	LandingPath       string
	MinPasswordLength int
	Logger            logrus.FieldLogger
}

type gate struct {
	users    repository.UserRepository
	sessions SessionStore
	hasher   pw.Hasher
	cfg      GateConfig
	log      logrus.FieldLogger

	decoyOnce sync.Once
	decoyHash string
}

func NewGate(users repository.UserRepository, sessions SessionStore, hasher pw.Hasher, cfg GateConfig) Gate {
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = defaultLandingPath
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = defaultMinPasswordLength
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &gate{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cfg:      cfg,
		log:      cfg.Logger,
	}
}

func (g *gate) Authenticate(ctx context.Context, username, password string) (Outcome, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	fields := make(map[string]string)
	if username == "" {
		fields[FieldUsername] = MsgUsernameRequired
	}
	if password == "" {
		fields[FieldPassword] = MsgPasswordRequired
	}
	if len(fields) > 0 {
		return validationFailed(fields), nil
	}

	log := g.log.WithField("username", username)

	user, err := g.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.WithError(err).Error("lookup user failed")
			return Outcome{}, storeUnavailable("find user", err)
		}
		// burn a comparable amount of time so unknown users are not cheaper
		g.hasher.Verify(password, g.decoy())
		log.Info("invalid credentials")
		return invalidCredentials(), nil
	}

	if !g.hasher.Verify(password, user.PasswordHash) {
		if pw.IsMalformed(user.PasswordHash) {
			log.WithField("user_id", user.ID).Warn("stored password hash is not a bcrypt hash")
		}
		log.WithField("user_id", user.ID).Info("invalid credentials")
		return invalidCredentials(), nil
	}

	sess, token, err := g.sessions.Create(ctx, user)
	if err != nil {
		log.WithError(err).Error("create session failed")
		return Outcome{}, storeUnavailable("create session", err)
	}

	log.WithField("user_id", user.ID).Info("user logged in")
	return authenticated(sess, token, g.cfg.LandingPath), nil
}

func (g *gate) RequireSession(ctx context.Context, token string) (Outcome, error) {
	sess, err := g.sessions.Read(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return redirect(g.cfg.LoginPath, RedirectUnauthenticated), nil
		}
		g.log.WithError(err).Error("read session failed")
		return Outcome{}, storeUnavailable("read session", err)
	}
	if sess == nil || !sess.LoggedIn {
		return redirect(g.cfg.LoginPath, RedirectUnauthenticated), nil
	}
	return authenticated(sess, "", ""), nil
}

func (g *gate) ResetPassword(ctx context.Context, sess *domain.Session, newPassword, confirmPassword string) (Outcome, error) {
	if sess == nil || !sess.LoggedIn {
		return redirect(g.cfg.LoginPath, RedirectUnauthenticated), nil
	}

	newPassword = strings.TrimSpace(newPassword)
	confirmPassword = strings.TrimSpace(confirmPassword)
	if fields := g.validateReset(newPassword, confirmPassword); len(fields) > 0 {
		return validationFailed(fields), nil
	}

	log := g.log.WithFields(logrus.Fields{"user_id": sess.UserID, "username": sess.Username})

	hash, err := g.hasher.Hash(newPassword)
	if err != nil {
		log.WithError(err).Error("hash new password failed")
		return Outcome{}, storeUnavailable("hash password", err)
	}

	// revoke first: a failed update then leaves the user logged out with the
	// old password, never logged in under a changed one
	revoked, err := g.sessions.DestroyUser(ctx, sess.UserID)
	if err != nil {
		log.WithError(err).Error("destroy sessions before password reset failed")
		return Outcome{}, storeUnavailable("destroy sessions", err)
	}
	sess.LoggedIn = false

	if err := g.users.UpdatePasswordHash(ctx, sess.UserID, hash); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.WithError(err).Error("update password failed")
			return Outcome{}, storeUnavailable("update password", err)
		}
		log.Warn("session refers to a user that no longer exists")
	}

	log.WithField("revoked_sessions", revoked).Info("password reset")
	return redirect(g.cfg.LoginPath, RedirectPasswordChanged), nil
}

func (g *gate) Logout(ctx context.Context, token string) (Outcome, error) {
	if err := g.sessions.Destroy(ctx, token); err != nil {
		g.log.WithError(err).Error("destroy session failed")
		return Outcome{}, storeUnavailable("destroy session", err)
	}
	return redirect(g.cfg.LoginPath, RedirectLoggedOut), nil
}

// validateReset applies the first failing rule per field. The confirmation is
// only compared once the new password itself is acceptable.
func (g *gate) validateReset(newPassword, confirmPassword string) map[string]string {
	fields := make(map[string]string)
	if msg := validateNewPassword(newPassword, g.cfg.MinPasswordLength); msg != "" {
		fields[FieldNewPassword] = msg
	}

	switch {
	case confirmPassword == "":
		fields[FieldConfirmPassword] = MsgConfirmEmpty
	case fields[FieldNewPassword] == "" && !constantTimeEqual(newPassword, confirmPassword):
		fields[FieldConfirmPassword] = MsgPasswordMismatch
	}
	return fields
}

func validateNewPassword(pw string, minLength int) string {
	switch {
	case pw == "":
		return MsgNewPasswordEmpty
	case utf8.RuneCountInString(pw) < minLength:
		return MsgPasswordTooShort(minLength)
	case len(pw) > maxPasswordBytes:
		return MsgPasswordTooLong(maxPasswordBytes)
	}
	return ""
}

func (g *gate) decoy() string {
	g.decoyOnce.Do(func() {
		hash, err := g.hasher.Hash("decoy-password-never-issued")
		if err != nil {
			g.log.WithError(err).Warn("build decoy hash")
			return
		}
		g.decoyHash = hash
	})
	return g.decoyHash
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
