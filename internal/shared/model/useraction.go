package model

import "time"

// UserActionType 用户操作令牌类型
type UserActionType string

const (
	// UserActionActivate 账户激活令牌
	UserActionActivate UserActionType = "activate"
)

// UserAction 一次性用户操作令牌
//
// 通过 UserID 弱引用所属用户。激活成功或发现账户已激活时删除（单次使用），
// 重复使用同一令牌会得到 NotFound。
type UserAction struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Type      UserActionType `json:"type" bson:"type"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}
