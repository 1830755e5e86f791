package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditLogRepository is the append-only audit trail. Entries are never
// updated or deleted.
type AuditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(db *mongo.Database) *AuditLogRepository {
	return &AuditLogRepository{
		collection: db.Collection("audit_logs"),
	}
}

func (alr *AuditLogRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err := alr.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry %s: %w", entry.Action, err)
	}
	return nil
}

// ListByEvent returns up to limit entries for eventID, newest first.
func (alr *AuditLogRepository) ListByEvent(ctx context.Context, eventID string, limit int) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := alr.collection.Find(ctx, bson.M{"eventId": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return entries, nil
}
