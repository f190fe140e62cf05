package meal

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"
)

// Handler 菜谱 HTTP 处理器
type Handler struct {
	svc *Service
}

// NewHandler 创建菜谱处理器
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册菜谱相关路由
//
// 读取公开；提交（新增/编辑/删除提案）要求已认证；
// 确认操作和待审列表按轴绑定能力（canAdd/canEdit/canDelete，管理员直通）。
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/meals", h.List)
	mux.HandleFunc("GET /api/v1/meals/{id}", h.Get)

	mux.Handle("POST /api/v1/meals", mw.Authenticate(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/v1/meals/{id}", mw.Authenticate(http.HandlerFunc(h.Edit)))
	mux.Handle("DELETE /api/v1/meals/{id}", mw.Authenticate(http.HandlerFunc(h.Delete)))

	mux.Handle("POST /api/v1/meals/{id}/create",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanAdd, h.ConfirmAdd)))
	mux.Handle("POST /api/v1/meals/{id}/edit",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanEdit, h.ConfirmEdit)))
	mux.Handle("POST /api/v1/meals/{id}/delete",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanDelete, h.ConfirmDelete)))

	mux.Handle("GET /api/v1/meals/soft/added",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanAdd, h.ListSoftAdded)))
	mux.Handle("GET /api/v1/meals/soft/edited",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanEdit, h.ListSoftEdited)))
	mux.Handle("GET /api/v1/meals/soft/deleted",
		mw.Authenticate(mw.RequireCapability(model.CapabilityCanDelete, h.ListSoftDeleted)))
}

// changedResponse 幂等确认操作的"有无状态变更"信号
type changedResponse struct {
	Changed bool `json:"changed"`
}

// List 公开菜谱列表（不含待确认新增）
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	meals, err := h.svc.List(r.Context())
	if err != nil {
		log.Printf("[meal.list] error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// Get 菜谱点查
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	meal, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeMealError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

// Create 提交新菜谱（以待确认状态入库）
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meal, err := h.svc.Create(r.Context(), user.Login, in)
	if err != nil {
		log.Printf("[meal.create] error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create meal")
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

// Edit 提交编辑提案（记录待确认负载，不直接改字段）
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := r.PathValue("id")
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meal, err := h.svc.ProposeEdit(r.Context(), id, user.Login, in)
	if err != nil {
		writeMealError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

// Delete 提交删除提案（标记待确认，实体保留）
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := r.PathValue("id")
	if err := h.svc.ProposeDelete(r.Context(), id, user.Login); err != nil {
		writeMealError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmAdd 确认新增（canAdd 或管理员）
func (h *Handler) ConfirmAdd(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.svc.ConfirmAdd)
}

// ConfirmEdit 确认编辑（canEdit 或管理员）
func (h *Handler) ConfirmEdit(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.svc.ConfirmEdit)
}

// ConfirmDelete 确认删除（canDelete 或管理员）
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.svc.ConfirmDelete)
}

// ListSoftAdded 待确认新增列表
func (h *Handler) ListSoftAdded(w http.ResponseWriter, r *http.Request) {
	h.listSoft(w, r, h.svc.ListSoftAdded)
}

// ListSoftEdited 待确认编辑列表
func (h *Handler) ListSoftEdited(w http.ResponseWriter, r *http.Request) {
	h.listSoft(w, r, h.svc.ListSoftEdited)
}

// ListSoftDeleted 待确认删除列表
func (h *Handler) ListSoftDeleted(w http.ResponseWriter, r *http.Request) {
	h.listSoft(w, r, h.svc.ListSoftDeleted)
}

// ============================================================================
// 工具函数
// ============================================================================

type confirmFunc func(ctx context.Context, id, by string) (bool, error)

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, fn confirmFunc) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := r.PathValue("id")
	changed, err := fn(r.Context(), id, user.Login)
	if err != nil {
		writeMealError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}

type listFunc func(ctx context.Context) ([]*model.Meal, error)

func (h *Handler) listSoft(w http.ResponseWriter, r *http.Request, fn listFunc) {
	meals, err := fn(r.Context())
	if err != nil {
		log.Printf("[meal.list-soft] error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// writeMealError 将存储层领域错误映射成 HTTP 状态
func writeMealError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "provided id is not a correct identifier")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "cannot find a meal with \""+id+"\" id")
	default:
		log.Printf("[meal] storage error for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
