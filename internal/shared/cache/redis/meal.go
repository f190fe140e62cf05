// Package redis 菜谱实体缓存操作
package redis

import (
	"context"
	"encoding/json"
	"errors"

	"meals-admin/internal/shared/cache"
	"meals-admin/internal/shared/model"

	"github.com/redis/go-redis/v9"
)

// SetMeal 写入菜谱实体（创建时写穿透，读未命中时回填）
func (s *Store) SetMeal(ctx context.Context, meal *model.Meal) error {
	data, err := json.Marshal(meal)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.EncodeMealKey(meal.ID), data, s.mealTTL).Err()
}

// GetMeal 按确定性键读取，未命中返回 (nil, nil)
func (s *Store) GetMeal(ctx context.Context, id string) (*model.Meal, error) {
	data, err := s.client.Get(ctx, cache.EncodeMealKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var meal model.Meal
	if err := json.Unmarshal(data, &meal); err != nil {
		return nil, err
	}
	return &meal, nil
}

// DelMeal 失效缓存条目（确认编辑/删除时调用）
func (s *Store) DelMeal(ctx context.Context, id string) error {
	return s.client.Del(ctx, cache.EncodeMealKey(id)).Err()
}
