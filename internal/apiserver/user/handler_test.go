package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存版用户存储，足够覆盖本包的路径
type memStore struct {
	users   map[string]*model.User
	actions map[string]*model.UserAction
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*model.User),
		actions: make(map[string]*model.UserAction),
	}
}

func (s *memStore) CreateUser(ctx context.Context, user *model.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users[id], nil
}

func (s *memStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	for _, u := range s.users {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateUserCapabilities(ctx context.Context, id string, caps map[model.Capability]bool) error {
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Capabilities = caps
	return nil
}

func (s *memStore) UpdateUserPassword(ctx context.Context, login, passwordHash, salt string) error {
	return nil
}

func (s *memStore) ActivateUser(ctx context.Context, id string, activatedAt int64) error {
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Activated = activatedAt
	return nil
}

func (s *memStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) ListUsersNotActivated(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range s.users {
		if !u.IsActivated() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) CreateUserAction(ctx context.Context, action *model.UserAction) error {
	s.actions[action.ID] = action
	return nil
}

func (s *memStore) GetUserAction(ctx context.Context, id string) (*model.UserAction, error) {
	return s.actions[id], nil
}

func (s *memStore) GetUserActionByUserID(ctx context.Context, userID string) (*model.UserAction, error) {
	for _, a := range s.actions {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

func (s *memStore) DeleteUserAction(ctx context.Context, id string) error {
	if _, ok := s.actions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.actions, id)
	return nil
}

var _ Store = (*memStore)(nil)

func seedSubject(store *memStore, login string, caps map[model.Capability]bool) *model.User {
	u := &model.User{
		ID:           model.NewID(),
		Email:        login + "@example.com",
		Login:        login,
		Activated:    time.Now().UnixMilli(),
		Capabilities: caps,
	}
	store.users[u.ID] = u
	return u
}

func adminRequest(method, target, body, capability string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if capability != "" {
		req.SetPathValue("capability", capability)
	}
	return req.WithContext(auth.WithAuthUser(req.Context(),
		&auth.AuthUser{Login: "root", IsAdmin: true}))
}

func decodeChanged(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	var resp struct {
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Changed
}

func TestGrantCapabilityIdempotent(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	seedSubject(store, "joe", nil)

	// 首次授予：changed == true
	rec := httptest.NewRecorder()
	h.Grant(rec, adminRequest(http.MethodPost, "/api/v1/users/grant/canAdd", `{"login":"joe"}`, "canAdd"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeChanged(t, rec))

	subject, _ := store.GetUserByLogin(t.Context(), "joe")
	assert.True(t, subject.HasCapability(model.CapabilityCanAdd))

	// 重复授予：成功但无状态变更
	rec = httptest.NewRecorder()
	h.Grant(rec, adminRequest(http.MethodPost, "/api/v1/users/grant/canAdd", `{"login":"joe"}`, "canAdd"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeChanged(t, rec))
}

func TestDenyCapabilityIdempotent(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	seedSubject(store, "joe", map[model.Capability]bool{
		model.CapabilityCanAdd:  true,
		model.CapabilityCanEdit: true,
	})

	rec := httptest.NewRecorder()
	h.Deny(rec, adminRequest(http.MethodPost, "/api/v1/users/deny/canEdit", `{"login":"joe"}`, "canEdit"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeChanged(t, rec))

	subject, _ := store.GetUserByLogin(t.Context(), "joe")
	assert.False(t, subject.HasCapability(model.CapabilityCanEdit))
	// 其他能力不受影响
	assert.True(t, subject.HasCapability(model.CapabilityCanAdd))

	// 未持有时回收：成功但无状态变更
	rec = httptest.NewRecorder()
	h.Deny(rec, adminRequest(http.MethodPost, "/api/v1/users/deny/canEdit", `{"login":"joe"}`, "canEdit"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeChanged(t, rec))
}

func TestMutateCapabilityErrors(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	seedSubject(store, "joe", nil)

	// 未知能力名 → 400
	rec := httptest.NewRecorder()
	h.Grant(rec, adminRequest(http.MethodPost, "/api/v1/users/grant/canFly", `{"login":"joe"}`, "canFly"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 不存在的用户 → 404
	rec = httptest.NewRecorder()
	h.Grant(rec, adminRequest(http.MethodPost, "/api/v1/users/grant/canAdd", `{"login":"ghost"}`, "canAdd"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 缺 login → 400
	rec = httptest.NewRecorder()
	h.Grant(rec, adminRequest(http.MethodPost, "/api/v1/users/grant/canAdd", `{}`, "canAdd"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	seedSubject(store, "joe", map[model.Capability]bool{model.CapabilityCanAdd: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req = req.WithContext(auth.WithAuthUser(req.Context(), &auth.AuthUser{Login: "joe"}))
	rec := httptest.NewRecorder()
	h.Profile(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "joe", resp.Login)
	assert.True(t, resp.Capabilities[model.CapabilityCanAdd])
	// 口令材料绝不进响应
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "salt")
}

func TestListNotActivated(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	seedSubject(store, "active", nil)
	dormant := seedSubject(store, "dormant", nil)
	dormant.Activated = 0

	rec := httptest.NewRecorder()
	h.ListNotActivated(rec, adminRequest(http.MethodGet, "/api/v1/users/not-activated", "", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "dormant", users[0].Login)
}

func TestActivateByID(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)
	dormant := seedSubject(store, "dormant", nil)
	dormant.Activated = 0

	action := &model.UserAction{
		ID:        model.NewID(),
		UserID:    dormant.ID,
		Type:      model.UserActionActivate,
		CreatedAt: time.Now(),
	}
	store.actions[action.ID] = action

	req := adminRequest(http.MethodPost, "/api/v1/users/not-activated/"+dormant.ID+"/activate", "", "")
	req.SetPathValue("id", dormant.ID)
	rec := httptest.NewRecorder()
	h.ActivateByID(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeChanged(t, rec))
	assert.True(t, dormant.IsActivated())

	// 令牌已消费，重复激活 → 404
	rec = httptest.NewRecorder()
	h.ActivateByID(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
