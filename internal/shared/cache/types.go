// Package cache 缓存层 Key 前缀和 TTL 常量
package cache

import "time"

const (
	// Key 前缀
	KeyAccessToken  = "access_token:"
	KeyRefreshToken = "refresh_token:"
	KeyMeal         = "meal:"

	// TTL 常量
	// 会话键的 TTL 跟随 refresh token 生命周期由调用方配置，这里是兜底默认值
	TTLSession = 14 * 24 * time.Hour
	TTLMeal    = 1 * time.Hour
)

// EncodeMealKey 由查询过滤条件（{_id: id}）和实体种类推导出确定性缓存键
func EncodeMealKey(id string) string {
	return KeyMeal + id
}
