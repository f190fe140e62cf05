package model

import "time"

// User 注册用户
//
// 生命周期：
//   - 注册时创建，未激活（Activated == 0）
//   - 通过一次性激活令牌（UserAction）激活，且只激活一次
//   - 能力只能通过 grant/deny 操作变更
//   - 本系统内不做物理删除
type User struct {
	ID           string              `json:"id" bson:"_id"`
	Email        string              `json:"email" bson:"email"`
	Login        string              `json:"login" bson:"login"`
	Password     string              `json:"-" bson:"password"` // never expose in JSON
	Salt         string              `json:"-" bson:"salt"`
	Activated    int64               `json:"activated,omitempty" bson:"activated,omitempty"` // 激活时间戳（毫秒），0 = 未激活
	IsAdmin      bool                `json:"isAdmin,omitempty" bson:"isAdmin,omitempty"`
	Capabilities map[Capability]bool `json:"capabilities,omitempty" bson:"capabilities,omitempty"`
	CreatedAt    time.Time           `json:"created_at" bson:"created_at"`
}

// IsActivated 账户是否已激活
func (u *User) IsActivated() bool {
	return u.Activated != 0
}

// HasCapability 用户是否持有指定能力
func (u *User) HasCapability(c Capability) bool {
	return u.Capabilities[c]
}

// CanPerform 能力裁决：管理员或持有指定能力
func (u *User) CanPerform(c Capability) bool {
	return u.IsAdmin || u.HasCapability(c)
}
