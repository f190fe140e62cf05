// Package user 用户领域 - 能力授予/回收、资料、激活管理
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"
)

// Store 用户领域需要的存储接口
type Store interface {
	storage.UserStore
	storage.UserActionStore
}

// Handler 用户领域 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建用户处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册用户相关路由
// 能力授予/回收和激活管理是管理员专属；profile 只要求已认证
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.Handle("GET /api/v1/users/profile", mw.Authenticate(http.HandlerFunc(h.Profile)))
	mux.Handle("GET /api/v1/users", mw.Authenticate(mw.AdminOnly(h.List)))
	mux.Handle("GET /api/v1/users/not-activated", mw.Authenticate(mw.AdminOnly(h.ListNotActivated)))
	// 通配段不能放在首段，否则与 activate/{token}、grant/{capability} 等模式冲突
	mux.Handle("POST /api/v1/users/not-activated/{id}/activate", mw.Authenticate(mw.AdminOnly(h.ActivateByID)))
	mux.Handle("POST /api/v1/users/grant/{capability}", mw.Authenticate(mw.AdminOnly(h.Grant)))
	mux.Handle("POST /api/v1/users/deny/{capability}", mw.Authenticate(mw.AdminOnly(h.Deny)))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type capabilityRequest struct {
	Login string `json:"login"`
}

type changedResponse struct {
	Changed bool `json:"changed"`
}

// profileResponse 用户资料（不含口令材料）
type profileResponse struct {
	ID           string                    `json:"id"`
	Email        string                    `json:"email"`
	Login        string                    `json:"login"`
	Activated    int64                     `json:"activated,omitempty"`
	IsAdmin      bool                      `json:"isAdmin,omitempty"`
	Capabilities map[model.Capability]bool `json:"capabilities,omitempty"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// Profile 当前用户资料
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByLogin(r.Context(), authUser.Login)
	if err != nil {
		log.Printf("[user.profile] GetUserByLogin error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user with %q login has not been found", authUser.Login))
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:           user.ID,
		Email:        user.Email,
		Login:        user.Login,
		Activated:    user.Activated,
		IsAdmin:      user.IsAdmin,
		Capabilities: user.Capabilities,
	})
}

// List 全部用户（管理员）
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[user.list] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListNotActivated 待激活用户（管理员人工审核用）
func (h *Handler) ListNotActivated(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsersNotActivated(r.Context())
	if err != nil {
		log.Printf("[user.not-activated] ListUsersNotActivated error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ActivateByID 管理员按用户 id 激活（消费该用户的激活令牌）
func (h *Handler) ActivateByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !model.ValidID(id) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	action, err := h.store.GetUserActionByUserID(r.Context(), id)
	if err != nil {
		log.Printf("[user.activate] GetUserActionByUserID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if action == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("not found any request for activation for user %q", id))
		return
	}

	user, err := h.store.GetUserByID(r.Context(), action.UserID)
	if err != nil {
		log.Printf("[user.activate] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("user with id %q does not exist", action.UserID))
		return
	}

	if err := h.store.DeleteUserAction(r.Context(), action.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[user.activate] DeleteUserAction error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user.IsActivated() {
		log.Printf("[user.activate] user %q has already been activated", id)
		writeJSON(w, http.StatusOK, changedResponse{Changed: false})
		return
	}
	if err := h.store.ActivateUser(r.Context(), user.ID, time.Now().UnixMilli()); err != nil {
		log.Printf("[user.activate] ActivateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[user] User %q has been successfully activated", id)
	writeJSON(w, http.StatusOK, changedResponse{Changed: true})
}

// Grant 授予能力（管理员）
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	h.mutateCapability(w, r, true)
}

// Deny 回收能力（管理员）
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.mutateCapability(w, r, false)
}

func (h *Handler) mutateCapability(w http.ResponseWriter, r *http.Request, grant bool) {
	actor := auth.GetAuthUser(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	capability := model.Capability(r.PathValue("capability"))
	if !capability.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown capability %q", capability))
		return
	}

	var req capabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" {
		writeError(w, http.StatusBadRequest, "login is required")
		return
	}

	subject, err := h.store.GetUserByLogin(r.Context(), req.Login)
	if err != nil {
		log.Printf("[user.capability] GetUserByLogin error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if subject == nil {
		writeError(w, http.StatusNotFound, "user with provided login does not exist")
		return
	}

	var changed bool
	if grant {
		changed, err = GrantCapability(r.Context(), h.store, subject, actor.Login, capability)
	} else {
		changed, err = DenyCapability(r.Context(), h.store, subject, actor.Login, capability)
	}
	if err != nil {
		log.Printf("[user.capability] update error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}

// ============================================================================
// 能力集合变更（幂等）
// ============================================================================

// GrantCapability 授予能力：已持有时是 no-op，返回 changed == false
// 授予与回收都带操作者/对象双方身份记入审计日志
func GrantCapability(ctx context.Context, store storage.UserStore, subject *model.User, byLogin string, capability model.Capability) (bool, error) {
	if subject.HasCapability(capability) {
		log.Printf("[user.capability] user %q already has capability %q", subject.Login, capability)
		return false, nil
	}

	caps := make(map[model.Capability]bool, len(subject.Capabilities)+1)
	for c, v := range subject.Capabilities {
		caps[c] = v
	}
	caps[capability] = true

	if err := store.UpdateUserCapabilities(ctx, subject.ID, caps); err != nil {
		return false, err
	}
	log.Printf("[user.capability] User %q has granted capability %q to user %q", byLogin, capability, subject.Login)
	return true, nil
}

// DenyCapability 回收能力：未持有时是 no-op，返回 changed == false
func DenyCapability(ctx context.Context, store storage.UserStore, subject *model.User, byLogin string, capability model.Capability) (bool, error) {
	if !subject.HasCapability(capability) {
		log.Printf("[user.capability] user %q does not have capability %q", subject.Login, capability)
		return false, nil
	}

	caps := make(map[model.Capability]bool, len(subject.Capabilities))
	for c, v := range subject.Capabilities {
		caps[c] = v
	}
	delete(caps, capability)

	if err := store.UpdateUserCapabilities(ctx, subject.ID, caps); err != nil {
		return false, err
	}
	log.Printf("[user.capability] User %q has denied capability %q to user %q", byLogin, capability, subject.Login)
	return true, nil
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
