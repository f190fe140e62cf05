package model

import "time"

// MealIngredient 菜谱配料（有序）
type MealIngredient struct {
	Name   string  `json:"name" bson:"name"`
	Amount float64 `json:"amount,omitempty" bson:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty" bson:"unit,omitempty"`
}

// MealEdit 待确认的编辑负载
//
// 字段与 Meal 的可编辑字段一一对应，确认时整体覆盖。
type MealEdit struct {
	Title       string           `json:"title" bson:"title"`
	Description string           `json:"description" bson:"description"`
	Type        string           `json:"type" bson:"type"`
	ImageURL    string           `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Ingredients []MealIngredient `json:"ingredients" bson:"ingredients"`
	ProposedBy  string           `json:"proposed_by" bson:"proposed_by"`
}

// Meal 菜谱实体
//
// 三条独立的软状态轴（创建/编辑/删除）直接内嵌在实体上：
//   - SoftAdded == true 的实体在确认之前不出现在公开列表里
//   - SoftEdited 非空表示存在待确认的编辑负载，只能通过确认生效
//   - SoftDeleted == true 表示待确认删除，确认后物理删除
//
// 编辑轴和删除轴在实践中互斥，但不做结构性约束（保留源数据模型的灵活性）。
type Meal struct {
	ID          string           `json:"id" bson:"_id"`
	Title       string           `json:"title" bson:"title"`
	Description string           `json:"description" bson:"description"`
	Author      string           `json:"author" bson:"author"`
	Type        string           `json:"type" bson:"type"`
	ImageURL    string           `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Ingredients []MealIngredient `json:"ingredients" bson:"ingredients"`
	PostedAt    time.Time        `json:"posted_at" bson:"posted_at"`

	SoftAdded   bool      `json:"softAdded,omitempty" bson:"softAdded,omitempty"`
	SoftEdited  *MealEdit `json:"softEdited,omitempty" bson:"softEdited,omitempty"`
	SoftDeleted bool      `json:"softDeleted,omitempty" bson:"softDeleted,omitempty"`
}

// HasPendingEdit 是否存在待确认的编辑
func (m *Meal) HasPendingEdit() bool {
	return m.SoftEdited != nil
}
