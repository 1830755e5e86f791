package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// MessageRepository stores the staff mailbox.
type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		collection: db.Collection("staff_messages"),
	}
}

func (mr *MessageRepository) Insert(ctx context.Context, message *models.StaffMessage) error {
	if message.ID == "" {
		message.ID = utils.GenerateUUID()
	}
	if message.DeliveredAt.IsZero() {
		message.DeliveredAt = time.Now().UTC()
	}

	_, err := mr.collection.InsertOne(ctx, message)
	return err
}
