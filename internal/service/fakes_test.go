package service

import (
	"context"
	"fmt"
	"sync"

	"credential-gate/internal/domain"
	"credential-gate/internal/repository"
	"credential-gate/internal/session"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[int64]*domain.User
	nextID  int64
	lookups int
	updates int

	lookupErr error
	updateErr error
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*domain.User)}
}

func (f *fakeUsers) Init(context.Context) error { return nil }

func (f *fakeUsers) Create(_ context.Context, user *domain.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	for _, u := range f.byID {
		if u.Username == user.Username {
			return 0, fmt.Errorf("insert user: %w", repository.ErrAlreadyExists)
		}
	}
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.byID[user.ID] = &cp
	return user.ID, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) hashOf(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].PasswordHash
}

type fakeSessions struct {
	mu             sync.Mutex
	byToken        map[string]*domain.Session
	next           int
	reads          int
	readErr        error
	createErr      error
	destroyUserErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: make(map[string]*domain.Session)}
}

func (f *fakeSessions) Create(_ context.Context, user *domain.User) (*domain.Session, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, "", f.createErr
	}
	f.next++
	token := fmt.Sprintf("tok-%d", f.next)
	sess := &domain.Session{ID: fmt.Sprintf("sid-%d", f.next), UserID: user.ID, Username: user.Username, LoggedIn: true}
	f.byToken[token] = sess
	cp := *sess
	return &cp, token, nil
}

func (f *fakeSessions) Read(_ context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	sess, ok := f.byToken[token]
	if !ok {
		return nil, session.ErrNoSession
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeSessions) Destroy(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DestroyUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyUserErr != nil {
		return 0, f.destroyUserErr
	}
	var n int64
	for tok, sess := range f.byToken {
		if sess.UserID == userID {
			delete(f.byToken, tok)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) put(token string, sess *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byToken[token] = sess
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byToken)
}
