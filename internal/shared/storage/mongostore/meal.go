package mongostore

import (
	"context"
	"time"

	"meals-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// MealStore
// ============================================================================

func (s *Store) CreateMeal(ctx context.Context, meal *model.Meal) error {
	return insertOne(ctx, s.col(ColMeals), meal)
}

func (s *Store) GetMealByID(ctx context.Context, id string) (*model.Meal, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return findOne[model.Meal](ctx, s.col(ColMeals), bson.D{{Key: "_id", Value: id}})
}

// ListMeals 公开列表：softAdded 缺失或 false 的实体才可见
func (s *Store) ListMeals(ctx context.Context) ([]*model.Meal, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "softAdded", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "softAdded", Value: false}},
	}}}
	opts := options.Find().SetSort(bson.D{{Key: "posted_at", Value: -1}})
	return findMany[model.Meal](ctx, s.col(ColMeals), filter, opts)
}

func (s *Store) ListMealsSoftAdded(ctx context.Context) ([]*model.Meal, error) {
	return findMany[model.Meal](ctx, s.col(ColMeals), bson.D{{Key: "softAdded", Value: true}})
}

func (s *Store) ListMealsSoftEdited(ctx context.Context) ([]*model.Meal, error) {
	return findMany[model.Meal](ctx, s.col(ColMeals),
		bson.D{{Key: "softEdited", Value: bson.D{{Key: "$exists", Value: true}}}})
}

func (s *Store) ListMealsSoftDeleted(ctx context.Context) ([]*model.Meal, error) {
	return findMany[model.Meal](ctx, s.col(ColMeals), bson.D{{Key: "softDeleted", Value: true}})
}

func (s *Store) MarkMealEdited(ctx context.Context, id string, edit *model.MealEdit) error {
	if err := checkID(id); err != nil {
		return err
	}
	return updateFields(ctx, s.col(ColMeals), id, bson.D{{Key: "softEdited", Value: edit}})
}

func (s *Store) MarkMealDeleted(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return updateFields(ctx, s.col(ColMeals), id, bson.D{{Key: "softDeleted", Value: true}})
}

// ConfirmMealAdded 条件更新：只命中仍带 softAdded 标记的实体
// changed == false 表示标记已被确认过（无状态变更）
func (s *Store) ConfirmMealAdded(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	defer observeQuery("updateOne", s.col(ColMeals), time.Now())
	res, err := s.col(ColMeals).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "softAdded", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "softAdded", Value: false}}}})
	if err != nil {
		return false, wrapError(err)
	}
	return res.MatchedCount > 0, nil
}

// ConfirmMealEdited 条件更新：应用编辑负载并清除 softEdited 标记
// 过滤条件要求 softEdited 仍存在，并发双重确认只会生效一次
func (s *Store) ConfirmMealEdited(ctx context.Context, id string, edit *model.MealEdit) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	defer observeQuery("updateOne", s.col(ColMeals), time.Now())
	set := bson.D{
		{Key: "title", Value: edit.Title},
		{Key: "description", Value: edit.Description},
		{Key: "type", Value: edit.Type},
		{Key: "ingredients", Value: edit.Ingredients},
	}
	if edit.ImageURL != "" {
		set = append(set, bson.E{Key: "image_url", Value: edit.ImageURL})
	}
	res, err := s.col(ColMeals).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "softEdited", Value: bson.D{{Key: "$exists", Value: true}}}},
		bson.D{
			{Key: "$set", Value: set},
			{Key: "$unset", Value: bson.D{{Key: "softEdited", Value: ""}}},
		})
	if err != nil {
		return false, wrapError(err)
	}
	return res.MatchedCount > 0, nil
}

// ConfirmMealDeleted 物理删除仍带 softDeleted 标记的实体
func (s *Store) ConfirmMealDeleted(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	defer observeQuery("deleteOne", s.col(ColMeals), time.Now())
	res, err := s.col(ColMeals).DeleteOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "softDeleted", Value: true}})
	if err != nil {
		return false, wrapError(err)
	}
	return res.DeletedCount > 0, nil
}
