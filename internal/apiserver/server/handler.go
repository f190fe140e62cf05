package server

import (
	"net/http"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/apiserver/meal"
	"meals-admin/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 认证 (Auth):
//   - POST /api/v1/users/register         - 注册（创建未激活账户）
//   - POST /api/v1/users/login            - 登录（发令牌对 + Cookie）
//   - POST /api/v1/users/refresh          - 刷新访问令牌
//   - POST /api/v1/users/activate/{token} - 一次性令牌激活
//   - POST /api/v1/users/logout           - 登出（吊销会话）
//   - POST /api/v1/users/password         - 修改口令
//
// 用户管理 (User):
//   - GET  /api/v1/users/profile             - 当前用户信息
//   - GET  /api/v1/users                     - 列出用户（管理员）
//   - GET  /api/v1/users/not-activated       - 未激活用户（管理员）
//   - POST /api/v1/users/{id}/activate       - 代为激活（管理员）
//   - POST /api/v1/users/grant/{capability}  - 授予能力（管理员）
//   - POST /api/v1/users/deny/{capability}   - 回收能力（管理员）
//
// 菜谱 (Meal):
//   - GET    /api/v1/meals               - 公开列表
//   - GET    /api/v1/meals/{id}          - 点查（读穿透缓存）
//   - POST   /api/v1/meals               - 提交新菜谱（待确认）
//   - PUT    /api/v1/meals/{id}          - 提交编辑提案
//   - DELETE /api/v1/meals/{id}          - 提交删除提案
//   - POST   /api/v1/meals/{id}/create   - 确认新增（canAdd）
//   - POST   /api/v1/meals/{id}/edit     - 确认编辑（canEdit）
//   - POST   /api/v1/meals/{id}/delete   - 确认删除（canDelete）
//   - GET    /api/v1/meals/soft/added    - 待确认新增列表（canAdd）
//   - GET    /api/v1/meals/soft/edited   - 待确认编辑列表（canEdit）
//   - GET    /api/v1/meals/soft/deleted  - 待确认删除列表（canDelete）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// 认证中间件（携带会话缓存做吊销检查）
	mw := auth.NewMiddleware(h.authConfig, h.cache)

	// Auth 接口
	authHandler := auth.NewHandler(h.store, h.cache, h.mailer, h.authConfig)
	authHandler.RegisterRoutes(mux, mw)

	// User 接口
	userHandler := user.NewHandler(h.store)
	userHandler.RegisterRoutes(mux, mw)

	// Meal 接口
	mealService := meal.NewService(h.store, h.cache)
	mealHandler := meal.NewHandler(mealService)
	mealHandler.RegisterRoutes(mux, mw)

	// 应用指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用 CORS 中间件（Cookie 认证需要凭证模式，不能用通配 Origin）
	return corsMiddleware(apiHandler)
}

// corsMiddleware 添加 CORS 头支持跨域请求
// Cookie 会话要求 Access-Control-Allow-Credentials，Origin 必须回显而不是 "*"
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
