// routes/routes.go
package routes

import (
	"context"
	"eventops/config"
	"eventops/controllers"
	"eventops/database"
	"eventops/interfaces"
	"eventops/middleware"
	"eventops/repositories"
	"eventops/repositories/memory"
	"eventops/services"
	"eventops/utils"
	"eventops/websocket"
	"eventops/workers"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores bundles the persistence behind the engine.
type Stores struct {
	Events   interfaces.EventRepository
	Gates    interfaces.GateRepository
	Staff    interfaces.StaffDirectory
	Users    interfaces.CredentialStore
	Audit    interfaces.AuditSink
	Messages interfaces.MessageStore
	Tokens   interfaces.TokenStore
	Status   interfaces.StatusStore
}

// NewMongoStores keeps records in MongoDB and the shutdown token table and
// system status in Redis, so every instance shares them.
func NewMongoStores(db *mongo.Database, redis *redis.Client) *Stores {
	return &Stores{
		Events:   repositories.NewEventRepository(db),
		Gates:    repositories.NewGateRepository(db),
		Staff:    repositories.NewStaffRepository(db),
		Users:    repositories.NewUserRepository(db),
		Audit:    repositories.NewAuditLogRepository(db),
		Messages: repositories.NewMessageRepository(db),
		Tokens:   repositories.NewTokenRepository(redis),
		Status:   repositories.NewStatusRepository(redis),
	}
}

// NewMemoryStores keeps everything in process, seeded from dataset when given.
func NewMemoryStores(dataset *database.Dataset) (*Stores, error) {
	events := memory.NewEventStore()
	gates := memory.NewGateStore()
	staff := memory.NewStaffStore()
	users := memory.NewUserStore()

	if dataset != nil {
		ctx := context.Background()
		for _, user := range dataset.Users {
			if err := users.Put(ctx, user); err != nil {
				return nil, err
			}
		}
		for _, event := range dataset.Events {
			if err := events.Put(ctx, event); err != nil {
				return nil, err
			}
		}
		for _, gate := range dataset.Gates {
			if err := gates.Put(ctx, gate); err != nil {
				return nil, err
			}
		}
		for _, member := range dataset.Staff {
			if err := staff.Put(ctx, member); err != nil {
				return nil, err
			}
		}
	}

	return &Stores{
		Events:   events,
		Gates:    gates,
		Staff:    staff,
		Users:    users,
		Audit:    memory.NewAuditLog(),
		Messages: memory.NewMailbox(),
		Tokens:   memory.NewTokenStore(),
		Status:   memory.NewStatusStore(),
	}, nil
}

// Services initialization
type Services struct {
	Emergency  *services.EmergencyService
	Shutdown   *services.ShutdownService
	Authorizer *services.RoleAuthorizer
}

// Notifiers are the optional external delivery legs of the staff mailbox.
type Notifiers struct {
	Push *services.PushService
	SMS  *services.SMSService
}

func InitializeServices(cfg *config.Config, stores *Stores, notifiers Notifiers, hub *websocket.Hub) *Services {
	clock := utils.SystemClock()
	audit := services.NewAuditService(stores.Audit, clock)
	authorizer := services.NewRoleAuthorizer(cfg.AdminRoles...)

	mailbox := services.NewMailboxService(stores.Messages, notifiers.Push, notifiers.SMS, clock)
	alerts := services.NewAlertService(stores.Staff, mailbox, services.AlertServiceConfig{
		Workers:         cfg.AlertWorkers,
		DeliveryTimeout: cfg.AlertDeliveryTimeoutDuration(),
	})

	credentials := services.NewCredentialService(stores.Users, utils.NewPasswordService())

	return &Services{
		Emergency: services.NewEmergencyService(stores.Events, stores.Gates, stores.Staff, alerts, audit, hub, clock),
		Shutdown: services.NewShutdownService(stores.Tokens, stores.Status, credentials, authorizer, audit, hub, clock,
			services.ShutdownServiceConfig{
				DefaultTTL: cfg.ShutdownTokenTTLDuration(),
				MaxTTL:     cfg.ShutdownTokenMaxTTLDuration(),
			}),
		Authorizer: authorizer,
	}
}

// Controllers initialization
type Controllers struct {
	Emergency *controllers.EmergencyController
	Shutdown  *controllers.ShutdownController
	WebSocket *controllers.WebSocketController
	Health    *controllers.HealthController
}

// Options carries what SetupRoutes needs besides the services.
type Options struct {
	Config   *config.Config
	Redis    *redis.Client // nil when Redis is not configured
	Hub      *websocket.Hub
	Sweeper  *workers.TokenSweepWorker
	Database func() map[string]interface{} // nil for the memory driver
}

// SetupRoutes initializes all application routes
func SetupRoutes(svc *Services, opts Options) *gin.Engine {
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()

	validator := utils.NewValidationService()
	ctrls := &Controllers{
		Emergency: controllers.NewEmergencyController(svc.Emergency, validator),
		Shutdown:  controllers.NewShutdownController(svc.Shutdown, validator),
		WebSocket: controllers.NewWebSocketController(opts.Hub, svc.Emergency, svc.Shutdown),
		Health:    controllers.NewHealthController(opts.Hub, opts.Sweeper, opts.Redis, opts.Database),
	}

	authMiddleware := middleware.NewAuthMiddleware(utils.NewJWTService(opts.Config.JWTSecret), svc.Authorizer)
	errorHandler := middleware.NewErrorHandler(opts.Config.Environment, logrus.StandardLogger())

	// Global middleware
	router.Use(errorHandler.Handle())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(opts.Config.Environment, opts.Config.CORSOrigins))

	router.NoRoute(errorHandler.NotFound())
	router.HandleMethodNotAllowed = true
	router.NoMethod(errorHandler.MethodNotAllowed())

	// Public routes
	router.GET("/health", ctrls.Health.HealthCheck)
	router.GET("/health/detailed", ctrls.Health.DetailedHealthCheck)

	// Authenticated routes
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	api.Use(middleware.APIRateLimit(opts.Redis))

	SetupEmergencyRoutes(api, ctrls.Emergency)
	SetupSystemRoutes(api, ctrls.Shutdown)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(authMiddleware.RequireAdmin())

	SetupShutdownRoutes(admin, ctrls.Shutdown, middleware.ShutdownRateLimit(
		opts.Redis,
		opts.Config.RateLimitRequest,
		opts.Config.RateLimitWindowDuration(),
	))

	// WebSocket routes
	SetupWebSocketRoutes(router, ctrls.WebSocket, authMiddleware)

	return router
}
