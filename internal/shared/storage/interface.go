// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"

	"meals-admin/internal/shared/model"
)

// ============================================================================
// UserStore
// ============================================================================

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	// UpdateUserCapabilities 整体覆盖能力集合（grant/deny 的写入路径）
	UpdateUserCapabilities(ctx context.Context, id string, caps map[model.Capability]bool) error
	UpdateUserPassword(ctx context.Context, login, passwordHash, salt string) error
	// ActivateUser 设置激活时间戳（毫秒）
	ActivateUser(ctx context.Context, id string, activatedAt int64) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListUsersNotActivated(ctx context.Context) ([]*model.User, error)
}

// ============================================================================
// UserActionStore
// ============================================================================

// UserActionStore 一次性用户操作令牌存储接口
type UserActionStore interface {
	CreateUserAction(ctx context.Context, action *model.UserAction) error
	GetUserAction(ctx context.Context, id string) (*model.UserAction, error)
	GetUserActionByUserID(ctx context.Context, userID string) (*model.UserAction, error)
	// DeleteUserAction 消费令牌（幂等：令牌不存在返回 ErrNotFound）
	DeleteUserAction(ctx context.Context, id string) error
}

// ============================================================================
// MealStore
// ============================================================================

// MealStore 菜谱存储接口
//
// Confirm* 方法是条件更新：过滤条件包含对应的软状态标记，
// 返回 changed == false 表示标记已不存在（已被确认过），调用方按无状态变更的成功处理。
// 并发双重确认因此退化为一次生效 + 一次 no-op，不需要分布式锁。
type MealStore interface {
	CreateMeal(ctx context.Context, meal *model.Meal) error
	GetMealByID(ctx context.Context, id string) (*model.Meal, error)
	// ListMeals 公开列表：排除 softAdded == true 的待确认实体
	ListMeals(ctx context.Context) ([]*model.Meal, error)
	ListMealsSoftAdded(ctx context.Context) ([]*model.Meal, error)
	ListMealsSoftEdited(ctx context.Context) ([]*model.Meal, error)
	ListMealsSoftDeleted(ctx context.Context) ([]*model.Meal, error)

	// MarkMealEdited 记录待确认的编辑负载（覆盖之前未确认的负载）
	MarkMealEdited(ctx context.Context, id string, edit *model.MealEdit) error
	// MarkMealDeleted 标记待确认删除
	MarkMealDeleted(ctx context.Context, id string) error

	ConfirmMealAdded(ctx context.Context, id string) (changed bool, err error)
	ConfirmMealEdited(ctx context.Context, id string, edit *model.MealEdit) (changed bool, err error)
	// ConfirmMealDeleted 物理删除仍带 softDeleted 标记的实体
	ConfirmMealDeleted(ctx context.Context, id string) (changed bool, err error)
}

// ============================================================================
// 组合接口
// ============================================================================

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	UserActionStore
	MealStore
	Close() error
}
