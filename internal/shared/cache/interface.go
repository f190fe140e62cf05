// Package cache 缓存层抽象接口
//
// 提供会话令牌和内容实体的低延迟存取能力，当前由 Redis 实现。
package cache

import (
	"context"

	"meals-admin/internal/shared/model"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// SessionCache 会话令牌缓存接口
//
// 每个 login 至多持有一对有效令牌；重复登录整体覆盖（last-write-wins），
// 旧会话随之隐式失效。
type SessionCache interface {
	// SetTokens 覆盖写入令牌对
	// refreshToken 为空串时保留已存储的 refresh token（机会式轮换语义：只写变化的部分）
	SetTokens(ctx context.Context, login, accessToken, refreshToken string) error
	// GetAccessToken 返回当前有效的 access token，"" 表示没有（已登出）
	GetAccessToken(ctx context.Context, login string) (string, error)
	// GetRefreshToken 返回当前有效的 refresh token，"" 表示没有（已登出）
	GetRefreshToken(ctx context.Context, login string) (string, error)
	// UnsetTokens 吊销会话（幂等：重复调用不是错误）
	UnsetTokens(ctx context.Context, login string) error
}

// MealCache 菜谱实体缓存接口（读穿透 + 写穿透）
type MealCache interface {
	SetMeal(ctx context.Context, meal *model.Meal) error
	// GetMeal 未命中时返回 (nil, nil)
	GetMeal(ctx context.Context, id string) (*model.Meal, error)
	DelMeal(ctx context.Context, id string) error
}

// ============================================================================
// 组合接口
// ============================================================================

// Cache 缓存组合接口
type Cache interface {
	SessionCache
	MealCache
	Close() error
}
