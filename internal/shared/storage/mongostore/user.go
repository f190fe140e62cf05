package mongostore

import (
	"context"
	"time"

	"meals-admin/internal/shared/model"
	"meals-admin/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "login", Value: login}})
}

func (s *Store) UpdateUserCapabilities(ctx context.Context, id string, caps map[model.Capability]bool) error {
	if err := checkID(id); err != nil {
		return err
	}
	defer observeQuery("updateOne", s.col(ColUsers), time.Now())
	// 空集合时整体清除字段，避免文档里残留空对象
	if len(caps) == 0 {
		res, err := s.col(ColUsers).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: id}},
			bson.D{{Key: "$unset", Value: bson.D{{Key: "capabilities", Value: ""}}}})
		if err != nil {
			return wrapError(err)
		}
		if res.MatchedCount == 0 {
			return storage.ErrNotFound
		}
		return nil
	}
	return updateFields(ctx, s.col(ColUsers), id, bson.D{{Key: "capabilities", Value: caps}})
}

func (s *Store) UpdateUserPassword(ctx context.Context, login, passwordHash, salt string) error {
	defer observeQuery("updateOne", s.col(ColUsers), time.Now())
	res, err := s.col(ColUsers).UpdateOne(ctx,
		bson.D{{Key: "login", Value: login}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "salt", Value: salt},
		}}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ActivateUser(ctx context.Context, id string, activatedAt int64) error {
	if err := checkID(id); err != nil {
		return err
	}
	return updateFields(ctx, s.col(ColUsers), id, bson.D{{Key: "activated", Value: activatedAt}})
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{}, opts)
}

func (s *Store) ListUsersNotActivated(ctx context.Context) ([]*model.User, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "activated", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "activated", Value: 0}},
	}}}
	return findMany[model.User](ctx, s.col(ColUsers), filter)
}
