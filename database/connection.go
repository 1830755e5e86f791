package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 2 * time.Second
)

var (
	client   *mongo.Client
	database *mongo.Database
)

// Connect opens the operations database and applies pending migrations.
// databaseName is used when the URI does not name one.
//
// Emergency activation relies on conditional updates, so reads go to the
// primary and writes wait for a majority.
func Connect(databaseURL, databaseName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(databaseURL).
		SetAppName("eventops").
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetReadPreference(readpref.Primary()).
		SetWriteConcern(writeconcern.Majority())

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	dbName := resolveDatabaseName(databaseURL, databaseName)
	database = client.Database(dbName)

	logrus.WithField("database", dbName).Info("✅ Connected to MongoDB")

	if err := RunMigrations(database); err != nil {
		logrus.Warnf("Migration warning: %v", err)
	}

	return database, nil
}

// Disconnect closes the MongoDB connection
func Disconnect() error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		logrus.Errorf("Error disconnecting from MongoDB: %v", err)
		return err
	}

	logrus.Info("🔌 Disconnected from MongoDB")
	return nil
}

func IsConnected() bool {
	if client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	return client.Ping(ctx, readpref.Primary()) == nil
}

// resolveDatabaseName prefers the database in the connection string path.
// The "admin" database is never used for application data.
func resolveDatabaseName(uri, fallback string) string {
	cs, err := connstring.Parse(uri)
	if err != nil {
		return fallback
	}
	if cs.Database != "" && cs.Database != "admin" {
		return cs.Database
	}
	return fallback
}

// HealthCheck reports connectivity and how many events currently run under
// an emergency. Used by /health/detailed.
func HealthCheck() map[string]interface{} {
	result := map[string]interface{}{
		"status": "unhealthy",
	}

	if database == nil || !IsConnected() {
		result["error"] = "database connection lost"
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var buildInfo bson.M
	if err := database.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&buildInfo); err != nil {
		result["error"] = fmt.Sprintf("build info check failed: %v", err)
		return result
	}

	active, err := database.Collection("events").CountDocuments(ctx, bson.M{
		"config.emergencyState.isActive": true,
	})
	if err != nil {
		result["error"] = fmt.Sprintf("emergency count failed: %v", err)
		return result
	}

	result["status"] = "healthy"
	result["database"] = database.Name()
	result["version"] = buildInfo["version"]
	result["activeEmergencies"] = active

	return result
}
