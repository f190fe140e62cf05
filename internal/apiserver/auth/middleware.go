package auth

import (
	"log"
	"net/http"
	"strings"

	"meals-admin/internal/shared/cache"
	"meals-admin/internal/shared/model"
)

// Cookie 名称（HTTP-only, SameSite=None, Secure）
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
)

// Middleware 认证/授权中间件
//
// 管道按短路顺序组合：Authenticate（身份确立，失败 → 401）在前，
// RequireCapability / AdminOnly（能力裁决，失败 → 403）在后。
type Middleware struct {
	cfg      Config
	sessions cache.SessionCache
}

// NewMiddleware 创建认证中间件
func NewMiddleware(cfg Config, sessions cache.SessionCache) *Middleware {
	return &Middleware{cfg: cfg, sessions: sessions}
}

// Authenticate JWT 认证中间件
//
// 依次做三件事：
//  1. 从 accessToken Cookie（或 Authorization: Bearer）提取令牌
//  2. 验证签名与过期时间
//  3. 与 Redis 中该 login 的当前 access token 比对（吊销检查：
//     登出或被新登录顶替的令牌即使签名有效也会被拒绝）
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractAccessToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Not provided accessToken.")
			return
		}

		claims, err := VerifyAccessToken(m.cfg, tokenString)
		if err != nil {
			log.Printf("[auth] token verify error: %v", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		stored, err := m.sessions.GetAccessToken(r.Context(), claims.Login)
		if err != nil {
			log.Printf("[auth] session lookup error for %s: %v", claims.Login, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if stored == "" || stored != tokenString {
			writeError(w, http.StatusUnauthorized, "session revoked")
			return
		}

		user := &AuthUser{
			Login:        claims.Login,
			IsAdmin:      claims.IsAdmin,
			Capabilities: claims.Capabilities,
		}
		next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
	})
}

// RequireCapability 能力门禁中间件，挂在 Authenticate 之后
// 未认证 → 401；已认证但非管理员且不持有能力 → 403
func (m *Middleware) RequireCapability(capability model.Capability, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if err := Authorize(user, capability); err != nil {
			writeAuthError(w, err)
			return
		}
		next(w, r)
	}
}

// AdminOnly 管理员专属路由中间件
func (m *Middleware) AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}

// ExtractAccessToken 从请求提取 access token：Cookie 优先，其次 Bearer
func ExtractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(CookieAccessToken); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// SetTokenCookie 写入 HTTP-only 会话 Cookie
func SetTokenCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearTokenCookie 清除会话 Cookie
func ClearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
