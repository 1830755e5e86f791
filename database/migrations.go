package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const staffMessageRetention = 30 * 24 * time.Hour

// Migration creates the indexes one collection needs. Versions are applied
// in order and recorded in the migrations collection.
type Migration struct {
	Version     int
	Description string
	Collection  string
	Indexes     []mongo.IndexModel
}

type migrationRecord struct {
	Version     int       `bson:"version"`
	Description string    `bson:"description"`
	AppliedAt   time.Time `bson:"appliedAt"`
}

func index(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Operator accounts",
		Collection:  "users",
		Indexes: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			},
			index("role_active", bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}),
		},
	},
	{
		Version:     2,
		Description: "Events and their emergency state",
		Collection:  "events",
		Indexes: []mongo.IndexModel{
			index("organization", bson.D{{Key: "organizationId", Value: 1}}),
			index("emergency_active", bson.D{{Key: "config.emergencyState.isActive", Value: 1}}),
		},
	},
	{
		Version:     3,
		Description: "Venue gates",
		Collection:  "gates",
		Indexes: []mongo.IndexModel{
			index("event_status", bson.D{{Key: "eventId", Value: 1}, {Key: "status", Value: 1}}),
		},
	},
	{
		Version:     4,
		Description: "Event staff roster",
		Collection:  "event_staff",
		Indexes: []mongo.IndexModel{
			index("event_active", bson.D{{Key: "eventId", Value: 1}, {Key: "isActive", Value: 1}}),
			index("user", bson.D{{Key: "userId", Value: 1}}),
		},
	},
	{
		Version:     5,
		Description: "Audit trail",
		Collection:  "audit_logs",
		Indexes: []mongo.IndexModel{
			index("event_timeline", bson.D{{Key: "eventId", Value: 1}, {Key: "timestamp", Value: -1}}),
			index("action_timeline", bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}}),
			index("actor", bson.D{{Key: "actor", Value: 1}}),
		},
	},
	{
		Version:     6,
		Description: "Staff mailbox",
		Collection:  "staff_messages",
		Indexes: []mongo.IndexModel{
			index("recipient_inbox", bson.D{{Key: "toUserId", Value: 1}, {Key: "deliveredAt", Value: -1}}),
			index("event", bson.D{{Key: "eventId", Value: 1}}),
			{
				Keys: bson.D{{Key: "deliveredAt", Value: 1}},
				Options: options.Index().
					SetName("delivered_ttl").
					SetExpireAfterSeconds(int32(staffMessageRetention.Seconds())),
			},
		},
	},
}

// RunMigrations applies every migration newer than the recorded version.
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	history := db.Collection("migrations")
	current := currentVersion(ctx, history)
	logrus.Infof("📋 Current migration version: %d", current)

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		logrus.WithFields(logrus.Fields{
			"version":    m.Version,
			"collection": m.Collection,
		}).Infof("🔄 Migrating: %s", m.Description)

		if _, err := db.Collection(m.Collection).Indexes().CreateMany(ctx, m.Indexes); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Collection, err)
		}

		if _, err := history.InsertOne(ctx, migrationRecord{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func currentVersion(ctx context.Context, history *mongo.Collection) int {
	var record migrationRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	if err := history.FindOne(ctx, bson.D{}, opts).Decode(&record); err != nil {
		return 0
	}
	return record.Version
}
