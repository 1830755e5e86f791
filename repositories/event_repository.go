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

type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection("events"),
	}
}

func (er *EventRepository) GetByID(ctx context.Context, eventID string) (*models.EventRecord, error) {
	var event models.EventRecord
	err := er.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.ErrEventNotFound
		}
		return nil, err
	}

	event.Config.EmergencyState = event.Config.EmergencyState.Clone()
	return &event, nil
}

// ActivateEmergency is a conditional write: the filter only matches while no
// emergency is active, so two concurrent activations cannot both succeed.
func (er *EventRepository) ActivateEmergency(ctx context.Context, eventID string, state models.EmergencyState, checkinsEnabled bool) error {
	filter := bson.M{
		"_id":                            eventID,
		"config.emergencyState.isActive": bson.M{"$ne": true},
	}
	update := bson.M{"$set": bson.M{
		"config.emergencyState":  state,
		"config.checkinsEnabled": checkinsEnabled,
		"updatedAt":              time.Now().UTC(),
	}}

	result, err := er.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return er.missOrConflict(ctx, eventID, "An emergency is already active for this event")
	}

	return nil
}

func (er *EventRepository) ClearEmergency(ctx context.Context, eventID string) (bool, error) {
	filter := bson.M{
		"_id":                            eventID,
		"config.emergencyState.isActive": true,
	}
	update := bson.M{"$set": bson.M{
		"config.emergencyState":  models.InactiveEmergencyState(),
		"config.checkinsEnabled": true,
		"updatedAt":              time.Now().UTC(),
	}}

	result, err := er.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		if _, err := er.GetByID(ctx, eventID); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

func (er *EventRepository) AddBlockedCategory(ctx context.Context, eventID, category string) (*models.EmergencyState, error) {
	filter := bson.M{
		"_id":                            eventID,
		"config.emergencyState.isActive": true,
	}
	update := bson.M{
		"$addToSet": bson.M{"config.emergencyState.restrictions.blockedCategories": category},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var event models.EventRecord
	err := er.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, er.missOrConflict(ctx, eventID, "No active emergency for this event")
		}
		return nil, err
	}

	state := event.Config.EmergencyState.Clone()
	return &state, nil
}

// missOrConflict tells a missing event apart from one whose emergency state
// did not match the write condition.
func (er *EventRepository) missOrConflict(ctx context.Context, eventID, conflict string) error {
	count, err := er.collection.CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.ErrEventNotFound
	}
	return utils.NewConflictError(conflict)
}
