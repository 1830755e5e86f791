package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GateRepository struct {
	collection *mongo.Collection
}

func NewGateRepository(db *mongo.Database) *GateRepository {
	return &GateRepository{
		collection: db.Collection("gates"),
	}
}

func (gr *GateRepository) GetByID(ctx context.Context, gateID string) (*models.Gate, error) {
	var gate models.Gate
	err := gr.collection.FindOne(ctx, bson.M{"_id": gateID}).Decode(&gate)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.ErrGateNotFound
		}
		return nil, err
	}

	return &gate, nil
}

func (gr *GateRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Gate, error) {
	opts := options.Find().SetSort(bson.M{"_id": 1})

	cursor, err := gr.collection.Find(ctx, bson.M{"eventId": eventID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	gates := []models.Gate{}
	err = cursor.All(ctx, &gates)
	return gates, err
}

// Close only matches open gates, so the result tells whether anything changed.
func (gr *GateRepository) Close(ctx context.Context, gateID string, at time.Time) (bool, error) {
	result, err := gr.collection.UpdateOne(
		ctx,
		bson.M{"_id": gateID, "status": bson.M{"$ne": models.GateStatusClosed}},
		bson.M{"$set": bson.M{
			"status":    models.GateStatusClosed,
			"updatedAt": at,
		}},
	)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		if _, err := gr.GetByID(ctx, gateID); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}
