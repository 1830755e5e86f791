package repositories

import (
	"context"
	"eventops/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StaffRepository struct {
	collection *mongo.Collection
}

func NewStaffRepository(db *mongo.Database) *StaffRepository {
	return &StaffRepository{
		collection: db.Collection("event_staff"),
	}
}

func (sr *StaffRepository) ActiveStaff(ctx context.Context, eventID string) ([]models.StaffMember, error) {
	filter := bson.M{
		"eventId":  eventID,
		"isActive": true,
	}
	opts := options.Find().SetSort(bson.M{"_id": 1})

	cursor, err := sr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	staff := []models.StaffMember{}
	err = cursor.All(ctx, &staff)
	return staff, err
}
