// Package meal 菜谱领域 - 软状态审核工作流与内容缓存
package meal

import (
	"context"
	"fmt"
	"log"
	"time"

	"meals-admin/internal/shared/cache"
	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 审核指标：按轴和结果（applied / noop）计数
var confirmsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "meals_admin",
		Name:      "moderation_confirms_total",
		Help:      "Moderation confirmations by axis and outcome",
	},
	[]string{"axis", "outcome"},
)

// 内容缓存指标：op ∈ {get,set,del}，get 的 result ∈ {hit,miss,error}
var cacheOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "meals_admin",
		Name:      "content_cache_ops_total",
		Help:      "Content cache operations by op and result",
	},
	[]string{"op", "result"},
)

// Service 审核工作流
//
// 三条独立的状态轴：
//   - 创建轴：softAdded=true → confirm-create → softAdded=false（进入公开列表）
//   - 编辑轴：softEdited=负载 → confirm-edit → 负载覆盖字段并清除标记
//   - 删除轴：softDeleted=true → confirm-delete → 物理删除
//
// 确认操作的授权（canAdd/canEdit/canDelete 或管理员）由路由中间件完成；
// 这里只负责状态迁移。已确认实体的再次确认是成功的 no-op。
type Service struct {
	store storage.MealStore
	cache cache.MealCache
}

// NewService 创建审核工作流
func NewService(store storage.MealStore, mealCache cache.MealCache) *Service {
	return &Service{store: store, cache: mealCache}
}

// CreateInput 新建/编辑菜谱的载荷
type CreateInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Type        string                 `json:"type"`
	ImageURL    string                 `json:"image_url,omitempty"`
	Ingredients []model.MealIngredient `json:"ingredients"`
}

// Validate 基本载荷校验
func (in CreateInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(in.Ingredients) == 0 {
		return fmt.Errorf("at least one ingredient is required")
	}
	return nil
}

// Create 提交新菜谱：以 softAdded 状态入库并写穿透缓存
// 在确认之前不出现在公开列表里
func (s *Service) Create(ctx context.Context, author string, in CreateInput) (*model.Meal, error) {
	meal := &model.Meal{
		ID:          model.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Author:      author,
		Type:        in.Type,
		ImageURL:    in.ImageURL,
		Ingredients: in.Ingredients,
		PostedAt:    time.Now().UTC(),
		SoftAdded:   true,
	}
	if err := s.store.CreateMeal(ctx, meal); err != nil {
		return nil, err
	}
	log.Printf("[meal.create] New meal %q by %q with %d ingredients", meal.Title, author, len(meal.Ingredients))

	if err := s.cache.SetMeal(ctx, meal); err != nil {
		log.Printf("[meal.create] cache write error for %s: %v", meal.ID, err)
		cacheOpsTotal.WithLabelValues("set", "error").Inc()
	} else {
		log.Printf("[meal.create] Cached a new meal with %q id", meal.ID)
		cacheOpsTotal.WithLabelValues("set", "ok").Inc()
	}
	return meal, nil
}

// Get 点查（读穿透）：缓存命中直接返回，未命中回源并回填
func (s *Service) Get(ctx context.Context, id string) (*model.Meal, error) {
	if !model.ValidID(id) {
		log.Printf("[meal.find] provided %q that is not a correct id", id)
		return nil, storage.ErrInvalidID
	}

	cached, err := s.cache.GetMeal(ctx, id)
	if err != nil {
		log.Printf("[meal.find] cache read error for %s: %v", id, err)
		cacheOpsTotal.WithLabelValues("get", "error").Inc()
	}
	if cached != nil {
		log.Printf("[meal.find] Fetched meal %q from cache", id)
		cacheOpsTotal.WithLabelValues("get", "hit").Inc()
		return cached, nil
	}
	if err == nil {
		cacheOpsTotal.WithLabelValues("get", "miss").Inc()
	}

	meal, err := s.store.GetMealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		log.Printf("[meal.find] cannot find a meal with %q id", id)
		return nil, storage.ErrNotFound
	}

	if err := s.cache.SetMeal(ctx, meal); err != nil {
		log.Printf("[meal.find] cache write error for %s: %v", id, err)
		cacheOpsTotal.WithLabelValues("set", "error").Inc()
	} else {
		cacheOpsTotal.WithLabelValues("set", "ok").Inc()
	}
	return meal, nil
}

// List 公开列表：排除待确认新增的实体
func (s *Service) List(ctx context.Context) ([]*model.Meal, error) {
	meals, err := s.store.ListMeals(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[meal.list] Found %d meals", len(meals))
	return meals, nil
}

// ProposeEdit 记录待确认的编辑负载（不直接改字段）
func (s *Service) ProposeEdit(ctx context.Context, id, by string, in CreateInput) (*model.Meal, error) {
	meal, err := s.requireMeal(ctx, id)
	if err != nil {
		return nil, err
	}

	edit := &model.MealEdit{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		ImageURL:    in.ImageURL,
		Ingredients: in.Ingredients,
		ProposedBy:  by,
	}
	if err := s.store.MarkMealEdited(ctx, id, edit); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, "meal.edit")

	log.Printf("[meal.edit] User %q introduced edition for meal %q", by, id)
	meal.SoftEdited = edit
	return meal, nil
}

// ProposeDelete 标记待确认删除（不直接删除）
func (s *Service) ProposeDelete(ctx context.Context, id, by string) error {
	if _, err := s.requireMeal(ctx, id); err != nil {
		return err
	}
	if err := s.store.MarkMealDeleted(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id, "meal.delete")

	log.Printf("[meal.delete] User %q marked meal %q as soft-deleted", by, id)
	return nil
}

// ConfirmAdd 确认新增：softAdded → false，实体进入公开列表
// changed == false 表示已被确认过（无状态变更，不是错误）
func (s *Service) ConfirmAdd(ctx context.Context, id, by string) (bool, error) {
	if _, err := s.requireMeal(ctx, id); err != nil {
		return false, err
	}

	changed, err := s.store.ConfirmMealAdded(ctx, id)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, id, "meal.confirm-add")
	confirmsTotal.WithLabelValues("create", outcome(changed)).Inc()

	if changed {
		log.Printf("[meal.confirm-add] User %q confirmed adding meal %q", by, id)
	} else {
		log.Printf("[meal.confirm-add] meal %q was already confirmed", id)
	}
	return changed, nil
}

// ConfirmEdit 确认编辑：应用待定负载并清除标记
func (s *Service) ConfirmEdit(ctx context.Context, id, by string) (bool, error) {
	meal, err := s.requireMeal(ctx, id)
	if err != nil {
		return false, err
	}
	if !meal.HasPendingEdit() {
		log.Printf("[meal.confirm-edit] meal %q has no pending edition", id)
		confirmsTotal.WithLabelValues("edit", outcome(false)).Inc()
		return false, nil
	}

	changed, err := s.store.ConfirmMealEdited(ctx, id, meal.SoftEdited)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, id, "meal.confirm-edit")
	confirmsTotal.WithLabelValues("edit", outcome(changed)).Inc()

	if changed {
		log.Printf("[meal.confirm-edit] User %q confirmed edition of meal %q", by, id)
	}
	return changed, nil
}

// ConfirmDelete 确认删除：物理删除实体并失效缓存
func (s *Service) ConfirmDelete(ctx context.Context, id, by string) (bool, error) {
	meal, err := s.requireMeal(ctx, id)
	if err != nil {
		return false, err
	}
	if !meal.SoftDeleted {
		log.Printf("[meal.confirm-delete] meal %q is not marked for deletion", id)
		confirmsTotal.WithLabelValues("delete", outcome(false)).Inc()
		return false, nil
	}

	changed, err := s.store.ConfirmMealDeleted(ctx, id)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, id, "meal.confirm-delete")
	confirmsTotal.WithLabelValues("delete", outcome(changed)).Inc()

	if changed {
		log.Printf("[meal.confirm-delete] User %q confirmed deletion of meal %q", by, id)
	}
	return changed, nil
}

// ListSoftAdded 待确认新增列表（canAdd 或管理员）
func (s *Service) ListSoftAdded(ctx context.Context) ([]*model.Meal, error) {
	return s.store.ListMealsSoftAdded(ctx)
}

// ListSoftEdited 待确认编辑列表（canEdit 或管理员）
func (s *Service) ListSoftEdited(ctx context.Context) ([]*model.Meal, error) {
	return s.store.ListMealsSoftEdited(ctx)
}

// ListSoftDeleted 待确认删除列表（canDelete 或管理员）
func (s *Service) ListSoftDeleted(ctx context.Context) ([]*model.Meal, error) {
	return s.store.ListMealsSoftDeleted(ctx)
}

// requireMeal 校验 id 并确认实体存在
func (s *Service) requireMeal(ctx context.Context, id string) (*model.Meal, error) {
	if !model.ValidID(id) {
		return nil, storage.ErrInvalidID
	}
	meal, err := s.store.GetMealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, storage.ErrNotFound
	}
	return meal, nil
}

// invalidate 写路径之后失效缓存条目（invalidate-on-write）
// 缓存失效失败只记录日志，下次过期后自然修复
func (s *Service) invalidate(ctx context.Context, id, op string) {
	if err := s.cache.DelMeal(ctx, id); err != nil {
		log.Printf("[%s] cache invalidate error for %s: %v", op, id, err)
		cacheOpsTotal.WithLabelValues("del", "error").Inc()
	} else {
		cacheOpsTotal.WithLabelValues("del", "ok").Inc()
	}
}

func outcome(changed bool) string {
	if changed {
		return "applied"
	}
	return "noop"
}
