// Package model 定义核心数据模型
package model

// Capability 审核能力（非管理员用户可被授予的具名权限）
//
// 能力集合是固定枚举，不支持层级或继承：
//   - canAdd：确认新增（softAdded → 公开可见）
//   - canEdit：确认编辑（softEdited 待定负载 → 生效）
//   - canDelete：确认删除（softDeleted → 物理删除）
type Capability string

const (
	CapabilityCanAdd    Capability = "canAdd"
	CapabilityCanEdit   Capability = "canEdit"
	CapabilityCanDelete Capability = "canDelete"
)

// AllCapabilities 全部合法能力（顺序稳定，用于校验和展示）
var AllCapabilities = []Capability{
	CapabilityCanAdd,
	CapabilityCanEdit,
	CapabilityCanDelete,
}

// Valid 检查能力名是否属于固定枚举
func (c Capability) Valid() bool {
	switch c {
	case CapabilityCanAdd, CapabilityCanEdit, CapabilityCanDelete:
		return true
	}
	return false
}
