package mongostore

import (
	"context"

	"meals-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// UserActionStore
// ============================================================================

func (s *Store) CreateUserAction(ctx context.Context, action *model.UserAction) error {
	return insertOne(ctx, s.col(ColUserActions), action)
}

func (s *Store) GetUserAction(ctx context.Context, id string) (*model.UserAction, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return findOne[model.UserAction](ctx, s.col(ColUserActions), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserActionByUserID(ctx context.Context, userID string) (*model.UserAction, error) {
	if err := checkID(userID); err != nil {
		return nil, err
	}
	return findOne[model.UserAction](ctx, s.col(ColUserActions), bson.D{{Key: "user_id", Value: userID}})
}

func (s *Store) DeleteUserAction(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return deleteByID(ctx, s.col(ColUserActions), id)
}
