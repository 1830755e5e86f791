package database

import (
	"context"
	"eventops/models"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoAdminID    = "usr-demo-admin"
	DemoOperatorID = "usr-demo-operator"
	DemoEventID    = "evt-demo-arena"
)

// Dataset is the development fixture shared by the Mongo seeders and the
// in-memory storage driver.
type Dataset struct {
	Users  []models.User
	Events []models.EventRecord
	Gates  []models.Gate
	Staff  []models.StaffMember
}

// Seeder represents a database seeder
type Seeder struct {
	Name        string
	Description string
	Seed        func(context.Context, *mongo.Database, *Dataset) error
}

// seeders contains all database seeders
var seeders = []Seeder{
	{
		Name:        "demo_users",
		Description: "Create demo operators with shutdown credentials",
		Seed:        seedDemoUsers,
	},
	{
		Name:        "demo_events",
		Description: "Create a demo event with gates",
		Seed:        seedDemoEvents,
	},
	{
		Name:        "demo_staff",
		Description: "Create the demo event staff roster",
		Seed:        seedDemoStaff,
	},
}

// DemoDataset builds the development fixture. adminSecret becomes the demo
// administrator's shutdown secret; an empty value leaves the administrator
// without shutdown credentials.
func DemoDataset(adminSecret string) (*Dataset, error) {
	now := time.Now().UTC()

	admin := models.User{
		ID:        DemoAdminID,
		Email:     "admin@demo.com",
		Name:      "Demo Admin",
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if adminSecret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash shutdown secret: %w", err)
		}
		admin.ShutdownSecretHash = string(hash)
	}

	operator := models.User{
		ID:        DemoOperatorID,
		Email:     "operator@demo.com",
		Name:      "Demo Operator",
		Role:      models.RoleOperator,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	event := models.EventRecord{
		ID:             DemoEventID,
		OrganizationID: "org-demo",
		Name:           "Demo Arena Night",
		Config: models.EventConfig{
			CheckinsEnabled: true,
			Capacity: models.EventCapacity{
				MaxCapacity: 5000,
				CheckedIn:   1200,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	gates := []models.Gate{
		{ID: "gate-demo-north", EventID: DemoEventID, Name: "North Gate", Status: models.GateStatusOpen, UpdatedAt: now},
		{ID: "gate-demo-south", EventID: DemoEventID, Name: "South Gate", Status: models.GateStatusOpen, UpdatedAt: now},
		{ID: "gate-demo-vip", EventID: DemoEventID, Name: "VIP Entrance", Status: models.GateStatusOpen, UpdatedAt: now},
	}

	staff := []models.StaffMember{
		{ID: "stf-demo-1", EventID: DemoEventID, UserID: DemoOperatorID, Name: "Demo Operator", Role: "supervisor", Phone: "+15550000001", IsActive: true},
		{ID: "stf-demo-2", EventID: DemoEventID, UserID: "usr-demo-steward-1", Name: "Steward One", Role: "steward", Phone: "+15550000002", IsActive: true},
		{ID: "stf-demo-3", EventID: DemoEventID, UserID: "usr-demo-steward-2", Name: "Steward Two", Role: "steward", IsActive: true},
		{ID: "stf-demo-4", EventID: DemoEventID, UserID: "usr-demo-former", Name: "Former Steward", Role: "steward", IsActive: false},
	}

	return &Dataset{
		Users:  []models.User{admin, operator},
		Events: []models.EventRecord{event},
		Gates:  gates,
		Staff:  staff,
	}, nil
}

// RunSeeders writes dataset once; later runs are skipped.
func RunSeeders(db *mongo.Database, dataset *Dataset) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Check if seeders have already been run
	seedersCol := db.Collection("seeders")
	count, err := seedersCol.CountDocuments(ctx, bson.M{})
	if err == nil && count > 0 {
		logrus.Info("🌱 Seeders already run, skipping...")
		return nil
	}

	logrus.Info("🌱 Running database seeders...")

	for _, seeder := range seeders {
		logrus.Infof("🔄 Running seeder: %s", seeder.Name)

		if err := seeder.Seed(ctx, db, dataset); err != nil {
			logrus.Errorf("❌ Seeder %s failed: %v", seeder.Name, err)
			continue // Continue with other seeders
		}

		// Record successful seeder
		_, err := seedersCol.InsertOne(ctx, bson.M{
			"name":      seeder.Name,
			"createdAt": time.Now(),
		})
		if err != nil {
			logrus.Warnf("Failed to record seeder %s: %v", seeder.Name, err)
		}

		logrus.Infof("✅ Seeder %s completed", seeder.Name)
	}

	logrus.Info("🌱 All seeders completed")
	return nil
}

func seedDemoUsers(ctx context.Context, db *mongo.Database, dataset *Dataset) error {
	col := db.Collection("users")
	for _, user := range dataset.Users {
		if err := replaceByID(ctx, col, user.ID, user); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoEvents(ctx context.Context, db *mongo.Database, dataset *Dataset) error {
	events := db.Collection("events")
	for _, event := range dataset.Events {
		if err := replaceByID(ctx, events, event.ID, event); err != nil {
			return err
		}
	}

	gates := db.Collection("gates")
	for _, gate := range dataset.Gates {
		if err := replaceByID(ctx, gates, gate.ID, gate); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoStaff(ctx context.Context, db *mongo.Database, dataset *Dataset) error {
	col := db.Collection("event_staff")
	for _, member := range dataset.Staff {
		if err := replaceByID(ctx, col, member.ID, member); err != nil {
			return err
		}
	}
	return nil
}

func replaceByID(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to seed %s/%s: %w", col.Name(), id, err)
	}
	return nil
}
