// Package server 路由配置与核心基础设施
//
// 本包是所有 HTTP 接口的组装点，将请求分发到各领域独立包：
//   - auth 包: 注册/登录/刷新/激活/登出
//   - user 包: 用户管理与能力授予/回收
//   - meal 包: 菜谱与软状态审核工作流
//
// 文件组织：
//   - common.go: Handler 定义与通用工具函数
//   - handler.go: 路由配置
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"net/http"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/shared/cache"
	"meals-admin/internal/shared/mail"
	"meals-admin/internal/shared/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域处理器
//   - 管理存储层与缓存层连接
//   - 导出 Prometheus 指标
type Handler struct {
	store  storage.PersistentStore // MongoDB 存储层（持久化业务数据）
	cache  cache.Cache             // Redis 缓存层（会话 + 内容缓存）
	mailer mail.Mailer             // 激活邮件发送

	authConfig auth.Config
	metrics    *Metrics
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.PersistentStore, cacheStore cache.Cache, mailer mail.Mailer, authCfg auth.Config) *Handler {
	if mailer == nil {
		mailer = mail.NewNoOpMailer()
	}
	return &Handler{
		store:      store,
		cache:      cacheStore,
		mailer:     mailer,
		authConfig: authCfg,
		metrics:    NewMetrics("meals_admin"),
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
