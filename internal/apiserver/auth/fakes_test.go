package auth

import (
	"context"
	"sync"

	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"
)

// ============================================================================
// 测试替身：内存版会话缓存与用户存储
// ============================================================================

type fakeSessions struct {
	mu      sync.Mutex
	access  map[string]string
	refresh map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		access:  make(map[string]string),
		refresh: make(map[string]string),
	}
}

func (f *fakeSessions) SetTokens(ctx context.Context, login, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access[login] = accessToken
	if refreshToken != "" {
		f.refresh[login] = refreshToken
	}
	return nil
}

func (f *fakeSessions) GetAccessToken(ctx context.Context, login string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access[login], nil
}

func (f *fakeSessions) GetRefreshToken(ctx context.Context, login string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh[login], nil
}

func (f *fakeSessions) UnsetTokens(ctx context.Context, login string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.access, login)
	delete(f.refresh, login)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*model.User       // by id
	actions map[string]*model.UserAction // by id
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*model.User),
		actions: make(map[string]*model.UserAction),
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == user.Login {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateUserCapabilities(ctx context.Context, id string, caps map[model.Capability]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Capabilities = caps
	return nil
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, login, passwordHash, salt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			u.Password = passwordHash
			u.Salt = salt
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ActivateUser(ctx context.Context, id string, activatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Activated = activatedAt
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) ListUsersNotActivated(ctx context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.User
	for _, u := range f.users {
		if u.Activated == 0 {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateUserAction(ctx context.Context, action *model.UserAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *action
	f.actions[action.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserAction(ctx context.Context, id string) (*model.UserAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.actions[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserActionByUserID(ctx context.Context, userID string) (*model.UserAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteUserAction(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.actions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.actions, id)
	return nil
}

var _ Store = (*fakeStore)(nil)
