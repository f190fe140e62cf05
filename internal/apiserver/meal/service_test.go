package meal

import (
	"context"
	"sync"
	"testing"

	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 测试替身：内存版菜谱存储与缓存
// ============================================================================

type fakeMealStore struct {
	mu    sync.Mutex
	meals map[string]*model.Meal
}

func newFakeMealStore() *fakeMealStore {
	return &fakeMealStore{meals: make(map[string]*model.Meal)}
}

func (f *fakeMealStore) CreateMeal(ctx context.Context, meal *model.Meal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meals[meal.ID]; ok {
		return storage.ErrDuplicate
	}
	cp := *meal
	f.meals[meal.ID] = &cp
	return nil
}

func (f *fakeMealStore) GetMealByID(ctx context.Context, id string) (*model.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.meals[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeMealStore) ListMeals(ctx context.Context) ([]*model.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Meal
	for _, m := range f.meals {
		if !m.SoftAdded {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMealStore) ListMealsSoftAdded(ctx context.Context) ([]*model.Meal, error) {
	return f.listWhere(func(m *model.Meal) bool { return m.SoftAdded })
}

func (f *fakeMealStore) ListMealsSoftEdited(ctx context.Context) ([]*model.Meal, error) {
	return f.listWhere(func(m *model.Meal) bool { return m.SoftEdited != nil })
}

func (f *fakeMealStore) ListMealsSoftDeleted(ctx context.Context) ([]*model.Meal, error) {
	return f.listWhere(func(m *model.Meal) bool { return m.SoftDeleted })
}

func (f *fakeMealStore) listWhere(pred func(*model.Meal) bool) ([]*model.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Meal
	for _, m := range f.meals {
		if pred(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMealStore) MarkMealEdited(ctx context.Context, id string, edit *model.MealEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meals[id]
	if !ok {
		return storage.ErrNotFound
	}
	cp := *edit
	m.SoftEdited = &cp
	return nil
}

func (f *fakeMealStore) MarkMealDeleted(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meals[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.SoftDeleted = true
	return nil
}

func (f *fakeMealStore) ConfirmMealAdded(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meals[id]
	if !ok || !m.SoftAdded {
		return false, nil
	}
	m.SoftAdded = false
	return true, nil
}

func (f *fakeMealStore) ConfirmMealEdited(ctx context.Context, id string, edit *model.MealEdit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meals[id]
	if !ok || m.SoftEdited == nil {
		return false, nil
	}
	pending := m.SoftEdited
	m.Title = pending.Title
	m.Description = pending.Description
	m.Type = pending.Type
	if pending.ImageURL != "" {
		m.ImageURL = pending.ImageURL
	}
	m.Ingredients = pending.Ingredients
	m.SoftEdited = nil
	return true, nil
}

func (f *fakeMealStore) ConfirmMealDeleted(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meals[id]
	if !ok || !m.SoftDeleted {
		return false, nil
	}
	delete(f.meals, id)
	return true, nil
}

var _ storage.MealStore = (*fakeMealStore)(nil)

type fakeMealCache struct {
	mu    sync.Mutex
	items map[string]*model.Meal
	sets  int
	dels  int
}

func newFakeMealCache() *fakeMealCache {
	return &fakeMealCache{items: make(map[string]*model.Meal)}
}

func (f *fakeMealCache) SetMeal(ctx context.Context, meal *model.Meal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *meal
	f.items[meal.ID] = &cp
	f.sets++
	return nil
}

func (f *fakeMealCache) GetMeal(ctx context.Context, id string) (*model.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.items[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeMealCache) DelMeal(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	f.dels++
	return nil
}

func (f *fakeMealCache) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok
}

// ============================================================================
// Tests
// ============================================================================

func newTestService() (*Service, *fakeMealStore, *fakeMealCache) {
	store := newFakeMealStore()
	mc := newFakeMealCache()
	return NewService(store, mc), store, mc
}

func sampleInput() CreateInput {
	return CreateInput{
		Title:       "Pierogi",
		Description: "Polish dumplings",
		Type:        "dinner",
		Ingredients: []model.MealIngredient{
			{Name: "flour", Amount: 500, Unit: "g"},
			{Name: "potatoes", Amount: 1, Unit: "kg"},
		},
	}
}

func TestCreateStartsSoftAdded(t *testing.T) {
	svc, _, mc := newTestService()

	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)
	require.NotEmpty(t, meal.ID)
	assert.True(t, meal.SoftAdded)
	assert.Equal(t, "alice", meal.Author)

	// 写穿透缓存
	assert.True(t, mc.has(meal.ID))

	// 公开列表里看不到待确认的实体
	public, err := svc.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, public)

	pending, err := svc.ListSoftAdded(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, meal.ID, pending[0].ID)

	// 点查对待确认实体仍然可用
	got, err := svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, meal.Title, got.Title)
}

func TestGetReadThrough(t *testing.T) {
	svc, store, mc := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	// 命中缓存时不回源：从存储层删掉实体后点查仍然成功
	store.mu.Lock()
	delete(store.meals, meal.ID)
	store.mu.Unlock()
	got, err := svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, meal.ID, got.ID)

	// 缓存失效且存储层没有 → 404
	require.NoError(t, mc.DelMeal(t.Context(), meal.ID))
	_, err = svc.Get(t.Context(), meal.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetBackfillsCache(t *testing.T) {
	svc, _, mc := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	// 清空缓存，点查后缓存被回填
	require.NoError(t, mc.DelMeal(t.Context(), meal.ID))
	require.False(t, mc.has(meal.ID))

	_, err = svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.True(t, mc.has(meal.ID))
}

// TestGetCountsCacheOps 点查按命中与未命中计入缓存指标
func TestGetCountsCacheOps(t *testing.T) {
	svc, _, mc := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	hitBefore := testutil.ToFloat64(cacheOpsTotal.WithLabelValues("get", "hit"))
	missBefore := testutil.ToFloat64(cacheOpsTotal.WithLabelValues("get", "miss"))

	_, err = svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, hitBefore+1, testutil.ToFloat64(cacheOpsTotal.WithLabelValues("get", "hit")))

	require.NoError(t, mc.DelMeal(t.Context(), meal.ID))
	_, err = svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, missBefore+1, testutil.ToFloat64(cacheOpsTotal.WithLabelValues("get", "miss")))
}

func TestGetInvalidID(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Get(t.Context(), "not-an-id")
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}

func TestConfirmAddLifecycle(t *testing.T) {
	svc, _, mc := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	changed, err := svc.ConfirmAdd(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.True(t, changed)

	// 确认后进入公开列表
	public, err := svc.List(t.Context())
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.False(t, public[0].SoftAdded)

	// 确认后缓存条目失效，等待下一次读回填
	assert.False(t, mc.has(meal.ID))

	// 重复确认是成功的 no-op
	changed, err = svc.ConfirmAdd(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEditLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	edited := sampleInput()
	edited.Title = "Pierogi Ruskie"
	_, err = svc.ProposeEdit(t.Context(), meal.ID, "bob", edited)
	require.NoError(t, err)

	// 提案不直接改字段
	got, err := svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pierogi", got.Title)
	require.NotNil(t, got.SoftEdited)
	assert.Equal(t, "Pierogi Ruskie", got.SoftEdited.Title)
	assert.Equal(t, "bob", got.SoftEdited.ProposedBy)

	pending, err := svc.ListSoftEdited(t.Context())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// 确认后负载生效并清除标记
	changed, err := svc.ConfirmEdit(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.True(t, changed)

	got, err = svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pierogi Ruskie", got.Title)
	assert.Nil(t, got.SoftEdited)

	// 没有待确认编辑时确认是 no-op
	changed, err = svc.ConfirmEdit(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDeleteLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.ProposeDelete(t.Context(), meal.ID, "bob"))

	// 标记后实体仍在
	got, err := svc.Get(t.Context(), meal.ID)
	require.NoError(t, err)
	assert.True(t, got.SoftDeleted)

	pending, err := svc.ListSoftDeleted(t.Context())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// 确认后物理删除
	changed, err := svc.ConfirmDelete(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = svc.Get(t.Context(), meal.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// 已删除实体的再次确认 → 404（实体不存在了）
	_, err = svc.ConfirmDelete(t.Context(), meal.ID, "mod")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestConfirmDeleteNotMarked 未标记删除的实体确认删除是 no-op
func TestConfirmDeleteNotMarked(t *testing.T) {
	svc, _, _ := newTestService()
	meal, err := svc.Create(t.Context(), "alice", sampleInput())
	require.NoError(t, err)

	changed, err := svc.ConfirmDelete(t.Context(), meal.ID, "mod")
	require.NoError(t, err)
	assert.False(t, changed)

	// 实体安然无恙
	_, err = svc.Get(t.Context(), meal.ID)
	assert.NoError(t, err)
}

func TestOperationsOnMissingMeal(t *testing.T) {
	svc, _, _ := newTestService()
	id := model.NewID()

	_, err := svc.ProposeEdit(t.Context(), id, "bob", sampleInput())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.ProposeDelete(t.Context(), id, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.ConfirmAdd(t.Context(), id, "mod")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.ConfirmAdd(t.Context(), "bogus", "mod")
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}

func TestCreateInputValidate(t *testing.T) {
	assert.NoError(t, sampleInput().Validate())

	noTitle := sampleInput()
	noTitle.Title = ""
	assert.Error(t, noTitle.Validate())

	noIngredients := sampleInput()
	noIngredients.Ingredients = nil
	assert.Error(t, noIngredients.Validate())
}
