// Package session keeps server-side session state and hands clients an opaque,
// signed token that names it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"credential-gate/internal/domain"
	"credential-gate/internal/repository"
)

// ErrNoSession is returned by Read when the token names no live session.
var ErrNoSession = errors.New("no session")

// Store creates, reads and destroys sessions. The token handed to the client is
// an HS256 JWT whose jti is the session id; the session row is authoritative, the
// signature only lets forged or foreign tokens be rejected without a query.
type Store struct {
	sessions repository.SessionRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// Options configures a Store.
type Options struct {
	Secret []byte
	TTL    time.Duration
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

func NewStore(sessions repository.SessionRepository, opts Options) (*Store, error) {
	if len(opts.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions: sessions,
		secret:   opts.Secret,
		ttl:      opts.TTL,
		now:      opts.Now,
	}, nil
}

type claims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Create persists a logged-in session for user and returns it with its token.
func (s *Store) Create(ctx context.Context, user *domain.User) (*domain.Session, string, error) {
	now := s.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: sess.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	return sess, token, nil
}

// Read resolves token to its live session. Absent, malformed, forged and expired
// tokens all yield ErrNoSession; any other error is a store failure.
func (s *Store) Read(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	id, err := s.parse(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrNoSession
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("drop expired session: %w", err)
		}
		return nil, ErrNoSession
	}
	return sess, nil
}

// Destroy removes the session named by token. Unknown or unparsable tokens are a no-op.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	// an expired token still names a row that should go away
	id, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	return s.DestroyID(ctx, id)
}

// DestroyID removes a session by id.
func (s *Store) DestroyID(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyUser removes every session belonging to userID.
func (s *Store) DestroyUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("destroy user sessions: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes every session whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return n, nil
}

func (s *Store) parse(token string, opts ...jwt.ParserOption) (string, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var c claims
	tok, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !tok.Valid || c.ID == "" {
		return "", errors.New("invalid session token")
	}
	return c.ID, nil
}
