package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetShutdownCredential returns the credential of an active user.
// Inactive users are reported as not found.
func (ur *UserRepository) GetShutdownCredential(ctx context.Context, userID string) (*models.ShutdownCredential, error) {
	user, err := ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive || user.ShutdownSecretHash == "" {
		return nil, utils.ErrUserNotFound
	}

	return &models.ShutdownCredential{
		UserID:           user.ID,
		SecretHash:       user.ShutdownSecretHash,
		TwoFactorEnabled: user.TwoFactorEnabled,
		TwoFactorSecret:  user.TwoFactorSecret,
	}, nil
}
