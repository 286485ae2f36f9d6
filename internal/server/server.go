// Package server contains the HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "jeevandhara/docs" // swagger docs
	"jeevandhara/internal/cache"
	"jeevandhara/internal/config"
	"jeevandhara/internal/featureflags"
	"jeevandhara/internal/identity"
	"jeevandhara/internal/middleware"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// APIVersion is reported by the health endpoint.
const APIVersion = "1.0.0"

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	now            func() time.Time

	verifier     identity.Verifier
	directory    *service.Directory
	sessions     *sessionStore
	featureFlags *featureflags.Manager

	notifier *notifications.Notifier
	notify   *notifications.Service
	hub      *notifications.Hub

	requests         *service.RequestService
	hospitalRequests *service.HospitalRequestService
	ledger           *service.LedgerService
	facilities       *service.FacilityService
	verification     *service.VerificationService
	people           *service.PeopleService
}

// NewServer builds a Server over an already connected database. rdb may be
// nil; caching, rate limits, admin sessions and in-app fan-out then fall
// back to their degraded modes.
func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	donors := repository.NewDonorRepository(db)
	requesters := repository.NewRequesterRepository(db)
	hospitals := repository.NewHospitalRepository(db)
	banks := repository.NewBloodBankRepository(db)
	requests := repository.NewBloodRequestRepository(db)
	hospitalRequests := repository.NewHospitalRequestRepository(db)
	ledger := repository.NewLedgerRepository(db)

	directory := service.NewDirectory(
		service.NewRequesterStore(requesters),
		service.NewDonorStore(donors),
		service.NewHospitalStore(hospitals),
		service.NewBloodBankStore(banks),
	)

	var pusher notifications.Pusher
	if cfg.PushEnabled() {
		fcm, err := notifications.NewFCMClient(notifications.FCMConfig{
			Endpoint:    cfg.FCMEndpoint,
			ProjectID:   cfg.FCMProjectID,
			AccessToken: cfg.FCMAccessToken,
		})
		if err != nil {
			return nil, err
		}
		pusher = fcm
	} else {
		middleware.Logger.Info("FCM credentials not configured; push notifications disabled")
	}

	notifier := notifications.NewNotifier(rdb)
	dispatcher := notifications.NewDispatcher(notifications.DispatcherOptions{
		Workers:      cfg.NotifyWorkers,
		QueueSize:    cfg.NotifyQueueSize,
		ErrorLogSize: cfg.NotifyErrorLogSize,
	})
	notify := notifications.NewService(dispatcher, pusher, notifier, directory)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	gated := service.Gated(notify, flags, map[string]string{
		notifications.EventEmergency: featureflags.EmergencyBroadcast,
		notifications.EventLowStock:  featureflags.LowStockAlerts,
	})

	c := cache.New(rdb)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("jeevandhara-api"),
		now:            time.Now,
		directory:      directory,
		sessions:       newSessionStore(rdb, time.Duration(cfg.AdminSessionTTLHours)*time.Hour),
		featureFlags:   flags,
		notifier:       notifier,
		notify:         notify,
		hub:            notifications.NewHub(),

		requests:         service.NewRequestService(requests, donors, requesters, directory, gated),
		hospitalRequests: service.NewHospitalRequestService(hospitalRequests, hospitals, donors, directory, gated),
		ledger:           service.NewLedgerService(ledger, banks, hospitals, donors, directory, gated, c, cfg.LowStockThreshold),
		facilities:       service.NewFacilityService(hospitals, banks, ledger, hospitalRequests, c),
		verification:     service.NewVerificationService(hospitals, banks, c),
		people:           service.NewPeopleService(donors, requesters, requests, directory, c),
	}

	if cfg.IdentityJWTSecret != "" {
		v, err := identity.NewJWTVerifier(cfg.IdentityJWTSecret, cfg.IdentityIssuer, cfg.IdentityAudience)
		if err != nil {
			return nil, err
		}
		s.verifier = v
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api/v1", s.skipPreflight(middleware.RateLimit(s.redis, middleware.Rules[middleware.LimitAPI])))

	api.Get("/health", s.HealthCheck)
	api.Get("/health/live", s.LivenessCheck)
	api.Get("/health/ready", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Jeevandhara API Metrics",
	}))

	authLimit := middleware.RateLimit(s.redis, middleware.Rules[middleware.LimitAuth])
	emergencyLimit := middleware.RateLimit(s.redis, middleware.Rules[middleware.LimitEmergency])
	createLimit := middleware.RateLimit(s.redis, middleware.Rules[middleware.LimitBloodRequest])

	// Account routes
	auth := api.Group("/auth")
	auth.Get("/profile/:userType/:userId", s.GetPublicProfile)
	auth.Post("/create-user", authLimit, s.IdentityRequired(), s.CreateUser)
	auth.Post("/link-firebase", authLimit, s.IdentityRequired(), s.LinkIdentity)
	auth.Get("/me", s.IdentityRequired(), s.ProfileRequired(), s.GetMe)
	auth.Post("/fcm-token", s.IdentityRequired(), s.ProfileRequired(), s.UpdateFCMToken)
	auth.Put("/profile", s.IdentityRequired(), s.ProfileRequired(), s.UpdateProfile)

	// Blood request lifecycle
	bloodRequests := api.Group("/blood-requests", s.IdentityRequired(), s.ProfileRequired())
	bloodRequests.Post("/", createLimit, s.emergencyLimited(emergencyLimit), s.CreateBloodRequest)
	bloodRequests.Get("/", s.ListBloodRequests)
	// Fixed paths before the generic /:id routes
	bloodRequests.Post("/accept", s.AcceptBloodRequest)
	bloodRequests.Post("/fulfill", s.FulfillBloodRequest)
	bloodRequests.Get("/requester/:requesterId", s.GetRequesterBloodRequests)
	bloodRequests.Get("/donor/:donorId/history", s.GetDonorHistory)
	bloodRequests.Put("/:id/cancel", s.CancelBloodRequest)
	bloodRequests.Get("/:id", s.GetBloodRequest)
	bloodRequests.Put("/:id", s.UpdateBloodRequest)
	bloodRequests.Delete("/:id", s.DeleteBloodRequest)

	// Donor directory
	donors := api.Group("/donors")
	donors.Get("/", s.ListDonors)
	donors.Get("/search", s.SearchDonors)
	donors.Get("/:id", s.GetDonor)
	donors.Put("/:id", s.UpdateDonor)
	donors.Delete("/:id", s.DeleteDonor)

	// Requester directory
	requesters := api.Group("/requesters")
	requesters.Get("/", s.ListRequesters)
	requesters.Get("/:id/blood-requests", s.GetRequesterRequests)
	requesters.Get("/:id", s.GetRequester)
	requesters.Put("/:id", s.UpdateRequester)
	requesters.Delete("/:id", s.DeleteRequester)

	// Hospitals
	hospitals := api.Group("/hospitals")
	hospitals.Post("/register", authLimit, s.RegisterHospital)
	hospitals.Get("/", s.ListHospitals)
	hospitals.Put("/blood-requests/:requestId/delivery-status", s.UpdateDeliveryStatus)
	hospitals.Put("/blood-requests/:requestId", s.UpdateHospitalRequest)
	hospitals.Put("/blood-stock/:stockId", s.UpdateHospitalStock)
	hospitals.Delete("/blood-stock/:stockId", s.DeleteHospitalStock)
	hospitals.Post("/:hospitalId/blood-requests", s.emergencyLimited(emergencyLimit), s.CreateHospitalRequest)
	hospitals.Get("/:hospitalId/blood-requests", s.ListHospitalRequests)
	hospitals.Post("/:hospitalId/blood-stock", s.AddHospitalStock)
	hospitals.Get("/:hospitalId/blood-stock", s.GetHospitalStock)
	hospitals.Get("/:hospitalId/donations", s.GetHospitalDonations)
	hospitals.Get("/:hospitalId", s.GetHospital)

	// Blood banks
	banks := api.Group("/blood-banks")
	banks.Post("/register", authLimit, s.RegisterBloodBank)
	banks.Get("/", s.ListBloodBanks)
	banks.Post("/:id/donations", s.RecordBankDonation)
	banks.Get("/:id/donations", s.GetBankDonations)
	banks.Post("/:id/distributions", s.RecordDistribution)
	banks.Get("/:id/distributions", s.GetDistributions)
	banks.Get("/:id/requests", s.GetBankRequests)
	banks.Get("/:id", s.GetBloodBank)

	// Admin console
	admin := api.Group("/admin")
	admin.Post("/login", authLimit, s.AdminLogin)
	admin.Post("/logout", s.AdminLogout)
	admin.Get("/session", s.AdminSession)

	review := admin.Group("", s.AdminRequired())
	review.Get("/stats", s.GetVerificationStats)
	review.Get("/hospitals/pending", s.listHospitalsByStatus(models.VerificationPending))
	review.Get("/hospitals/verified", s.listHospitalsByStatus(models.VerificationVerified))
	review.Put("/hospitals/:id/verify", s.VerifyHospital)
	review.Put("/hospitals/:id/reject", s.RejectHospital)
	review.Get("/blood-banks/pending", s.listBloodBanksByStatus(models.VerificationPending))
	review.Get("/blood-banks/verified", s.listBloodBanksByStatus(models.VerificationVerified))
	review.Put("/blood-banks/:id/verify", s.VerifyBloodBank)
	review.Put("/blood-banks/:id/reject", s.RejectBloodBank)
	review.Get("/feature-flags", s.GetFeatureFlags)
	review.Get("/notifications/errors", s.GetNotificationErrors)

	// In-app notification stream
	ws := api.Group("/ws", s.IdentityRequired(), s.ProfileRequired())
	ws.Get("/notifications", s.websocketUpgrade, s.NotificationsWebSocket())
}

// skipPreflight never counts CORS preflight requests against a limit.
func (s *Server) skipPreflight(limit fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		return limit(c)
	}
}

// emergencyLimited applies limit only to requests flagged notifyViaEmergency.
func (s *Server) emergencyLimited(limit fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			NotifyViaEmergency bool `json:"notifyViaEmergency"`
		}
		if err := c.BodyParser(&body); err != nil || !body.NotifyViaEmergency {
			return c.Next()
		}
		return limit(c)
	}
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Jeevandhara API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithAppError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// HealthCheck reports that the API is serving.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"version":   APIVersion,
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   s.now().UTC(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis. Redis is
// optional, so its absence does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overall,
		"version": APIVersion,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": s.now().UTC(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, closes sockets, then drains queued
// notifications before releasing the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if err := s.notify.Shutdown(ctx); err != nil && !errors.Is(err, notifications.ErrDispatcherClosed) {
		middleware.Logger.Warn("notification queue not fully drained", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
