package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"meals-admin/internal/shared/cache"
	"meals-admin/internal/shared/mail"
	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"
)

// Store 认证流程需要的存储接口
type Store interface {
	storage.UserStore
	storage.UserActionStore
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store    Store
	sessions cache.SessionCache
	mailer   mail.Mailer
	cfg      Config
}

// NewHandler 创建认证处理器
func NewHandler(store Store, sessions cache.SessionCache, mailer mail.Mailer, cfg Config) *Handler {
	return &Handler{store: store, sessions: sessions, mailer: mailer, cfg: cfg}
}

// RegisterRoutes 注册认证相关路由
// mw 用于需要已确立身份的路由（logout / password）
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *Middleware) {
	mux.HandleFunc("POST /api/v1/users/register", h.Register)
	mux.HandleFunc("POST /api/v1/users/login", h.Login)
	mux.HandleFunc("POST /api/v1/users/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/users/activate/{token}", h.Activate)
	mux.Handle("POST /api/v1/users/logout", mw.Authenticate(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/users/password", mw.Authenticate(http.HandlerFunc(h.ChangePassword)))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// permissionsResponse 登录结果：客户端需要知道的授权声明
type permissionsResponse struct {
	IsAdmin      bool                      `json:"isAdmin,omitempty"`
	Capabilities map[model.Capability]bool `json:"capabilities,omitempty"`
}

// changedResponse 幂等操作的"有无状态变更"信号
type changedResponse struct {
	Changed bool `json:"changed"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
// 创建未激活账户 + 一次性激活令牌，激活邮件失败不阻断注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, login, password are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// 检查 login 是否已占用
	existing, err := h.store.GetUserByLogin(r.Context(), req.Login)
	if err != nil {
		log.Printf("[auth.register] GetUserByLogin error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("user with %q login already exists", req.Login))
		return
	}

	salt, err := GenerateSalt()
	if err != nil {
		log.Printf("[auth.register] GenerateSalt error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &model.User{
		ID:        model.NewID(),
		Email:     req.Email,
		Login:     req.Login,
		Password:  HashPassword(req.Password, salt, h.cfg.Pepper),
		Salt:      salt,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("user with %q login already exists", req.Login))
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	action := &model.UserAction{
		ID:        model.NewID(),
		UserID:    user.ID,
		Type:      model.UserActionActivate,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateUserAction(r.Context(), action); err != nil {
		log.Printf("[auth.register] CreateUserAction error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create activation token")
		return
	}

	// 邮件对核心流程是 fire-and-forget 的
	if err := h.mailer.SendActivationMail(r.Context(), user.Email, user.Login, action.ID); err != nil {
		log.Printf("[auth.register] activation mail error: %v", err)
	}

	log.Printf("[auth] Created user %q with id %q, activation code %q", user.Login, user.ID, action.ID)
	writeJSON(w, http.StatusCreated, user)
}

// Login 用户登录
// 发一对新令牌并整体覆盖该 login 的会话（并发登录 last-write-wins）
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	user, err := h.store.GetUserByLogin(r.Context(), req.Login)
	if err != nil {
		log.Printf("[auth.login] GetUserByLogin error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		log.Printf("[auth.login] user %q does not exist", req.Login)
		loginsTotal.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %q does not exist", req.Login))
		return
	}
	if !user.IsActivated() {
		log.Printf("[auth.login] user %q is not activated", user.Login)
		loginsTotal.WithLabelValues("not_activated").Inc()
		writeError(w, http.StatusForbidden, fmt.Sprintf("user %q is not a valid account, activate it first", user.Login))
		return
	}
	if !AreEqualPasswords(req.Password, user.Salt, h.cfg.Pepper, user.Password) {
		log.Printf("[auth.login] incorrect credentials for %q", req.Login)
		loginsTotal.WithLabelValues("wrong_password").Inc()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("incorrect credentials for user %q", req.Login))
		return
	}

	accessToken, err := GenerateAccessToken(h.cfg, user)
	if err != nil {
		log.Printf("[auth.login] GenerateAccessToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken, err := GenerateRefreshToken(h.cfg, user.Login)
	if err != nil {
		log.Printf("[auth.login] GenerateRefreshToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.sessions.SetTokens(r.Context(), user.Login, accessToken, refreshToken); err != nil {
		log.Printf("[auth.login] SetTokens error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	SetTokenCookie(w, CookieAccessToken, accessToken)
	SetTokenCookie(w, CookieRefreshToken, refreshToken)

	log.Printf("[auth] User %q has been successfully logged in", user.Login)
	loginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, permissionsResponse{
		IsAdmin:      user.IsAdmin,
		Capabilities: user.Capabilities,
	})
}

// Logout 登出：吊销会话并清除 Cookie（幂等）
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.sessions.UnsetTokens(r.Context(), user.Login); err != nil {
		log.Printf("[auth.logout] UnsetTokens error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ClearTokenCookie(w, CookieAccessToken)
	ClearTokenCookie(w, CookieRefreshToken)

	log.Printf("[auth] User %q has logged out", user.Login)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh 刷新访问令牌
//
// 刷新周期：
//  1. 验证 refreshToken Cookie 并与 Redis 存储值比对（已登出的会话 → 403）
//  2. 重新读取用户，使新 access token 携带最新的授权声明
//  3. refresh token 剩余生命周期过短时机会式换发新的 refresh token
//  4. SetTokens 只写变化的部分（refresh 未换发时传空串保留旧值）
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(CookieRefreshToken)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Not provided refreshToken.")
		return
	}

	claims, err := VerifyRefreshToken(h.cfg, cookie.Value)
	if err != nil {
		log.Printf("[auth.refresh] refresh token verify error: %v", err)
		refreshesTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	stored, err := h.sessions.GetRefreshToken(r.Context(), claims.Login)
	if err != nil {
		log.Printf("[auth.refresh] session lookup error for %s: %v", claims.Login, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if stored == "" || stored != cookie.Value {
		refreshesTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusForbidden, fmt.Sprintf("user %q doesn't have alive refresh token", claims.Login))
		return
	}

	user, err := h.store.GetUserByLogin(r.Context(), claims.Login)
	if err != nil {
		log.Printf("[auth.refresh] GetUserByLogin error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}

	newAccessToken, err := GenerateAccessToken(h.cfg, user)
	if err != nil {
		log.Printf("[auth.refresh] GenerateAccessToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	SetTokenCookie(w, CookieAccessToken, newAccessToken)
	log.Printf("[auth] Access token was renewed for %q", user.Login)

	newRefreshToken := ""
	if TooShortToExpireRefreshToken(h.cfg, claims) {
		newRefreshToken, err = GenerateRefreshToken(h.cfg, user.Login)
		if err != nil {
			log.Printf("[auth.refresh] GenerateRefreshToken error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		SetTokenCookie(w, CookieRefreshToken, newRefreshToken)
		log.Printf("[auth] Refresh token was renewed for %q", user.Login)
	}

	if err := h.sessions.SetTokens(r.Context(), user.Login, newAccessToken, newRefreshToken); err != nil {
		log.Printf("[auth.refresh] SetTokens error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if newRefreshToken != "" {
		refreshesTotal.WithLabelValues("rotated").Inc()
	} else {
		refreshesTotal.WithLabelValues("renewed").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"refreshed": true})
}

// Activate 通过一次性令牌激活账户
// 令牌无论激活成功还是发现账户已激活都会被消费（删除），重复使用 → 404
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("token")

	if !model.ValidID(tokenID) {
		log.Printf("[auth.activate] invalid activation token %q", tokenID)
		writeError(w, http.StatusBadRequest, "invalid activation token")
		return
	}

	action, err := h.store.GetUserAction(r.Context(), tokenID)
	if err != nil {
		log.Printf("[auth.activate] GetUserAction error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if action == nil {
		log.Printf("[auth.activate] no request with %q activation token", tokenID)
		writeError(w, http.StatusNotFound, fmt.Sprintf("not found any request with %q activation token", tokenID))
		return
	}

	user, err := h.store.GetUserByID(r.Context(), action.UserID)
	if err != nil {
		log.Printf("[auth.activate] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		log.Printf("[auth.activate] user %q reported by token %q does not exist", action.UserID, tokenID)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("user with id %q does not exist", action.UserID))
		return
	}

	changed, err := consumeActivation(r.Context(), h.store, user, action)
	if err != nil {
		log.Printf("[auth.activate] %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}

// ChangePassword 修改当前用户口令（新盐 + 新哈希）
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	salt, err := GenerateSalt()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	hash := HashPassword(req.Password, salt, h.cfg.Pepper)
	if err := h.store.UpdateUserPassword(r.Context(), user.Login, hash, salt); err != nil {
		log.Printf("[auth.password] UpdateUserPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	log.Printf("[auth] User %q has successfully changed its password", user.Login)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// consumeActivation 消费激活令牌并在需要时写激活时间戳
// 账户已激活时只删除令牌，报告"无状态变更"
func consumeActivation(ctx context.Context, store Store, user *model.User, action *model.UserAction) (bool, error) {
	if err := store.DeleteUserAction(ctx, action.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("DeleteUserAction: %w", err)
	}
	if user.IsActivated() {
		log.Printf("[auth.activate] user %q has already been activated", user.ID)
		return false, nil
	}
	if err := store.ActivateUser(ctx, user.ID, time.Now().UnixMilli()); err != nil {
		return false, fmt.Errorf("ActivateUser: %w", err)
	}
	log.Printf("[auth] User %q has been successfully activated", user.ID)
	return true, nil
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员用户存在（启动时调用）
// 如果配置了 adminLogin 且数据库中不存在该用户，则自动创建已激活的管理员账户
func EnsureAdminUser(store Store, cfg Config, adminLogin, adminEmail, adminPassword string) error {
	if adminLogin == "" || adminPassword == "" {
		return nil
	}

	ctx := context.Background()
	existing, err := store.GetUserByLogin(ctx, adminLogin)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		log.Printf("[auth] Admin user already exists: %s (%s)", adminLogin, existing.ID)
		return nil
	}

	salt, err := GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate admin salt: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:        model.NewID(),
		Email:     adminEmail,
		Login:     adminLogin,
		Password:  HashPassword(adminPassword, salt, cfg.Pepper),
		Salt:      salt,
		Activated: now.UnixMilli(),
		IsAdmin:   true,
		CreatedAt: now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("[auth] Created admin user: %s (%s)", adminLogin, user.ID)
	return nil
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

// writeAuthError 将领域错误映射为 401/403
func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrForbidden) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeError(w, http.StatusUnauthorized, "not authenticated")
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
