package repo

import (
	"context"
	"errors"
	"fmt"

	"chatline/internal/db"
	"chatline/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.User, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(repo *db.Repository[model.User]) UserRepository {
	return &userRepository{
		mongoRepo: repo,
	}
}

// FindByUserID resolves a participant identity to its display fields,
// or (nil, nil) when the user is unknown.
func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("user_id", userID).Build()
	user, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user failed: %w", err)
	}

	return user, nil
}
