// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/tsamuels456/unboundedfigures/docs" // swagger docs
	"github.com/tsamuels456/unboundedfigures/internal/bootstrap"
	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/featureflags"
	"github.com/tsamuels456/unboundedfigures/internal/middleware"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/notifications"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/service"
	"github.com/tsamuels456/unboundedfigures/internal/storage"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	viewRepo       repository.ViewRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	hubs         []wireableHub
	featureFlags *featureflags.Manager
	avatarStore  storage.AvatarStore

	identityService       *service.IdentityService
	submissionService     *service.SubmissionService
	commentService        *service.CommentService
	followService         *service.FollowService
	viewService           *service.ViewService
	recommendationService *service.RecommendationService
	profileService        *service.ProfileService
	avatarService         *service.AvatarService
}

// NewServer connects to the database, Redis and the avatar store and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{EnsureDevFounder: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Avatars)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass sqlite, miniredis and a temp-dir avatar store here.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.AvatarStore) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		userRepo:       repository.NewUserRepository(db),
		submissionRepo: repository.NewSubmissionRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		viewRepo:       repository.NewViewRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		avatarStore:    store,
	}

	observability.L().Info("feature flags loaded", zap.Any("flags", s.featureFlags.Raw()))

	// Realtime delivery needs Redis; without it publishing is skipped.
	var publisher service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		s.hubs = []wireableHub{s.hub}
		publisher = s.notifier
	}

	s.identityService = service.NewIdentityService(s.userRepo)
	s.submissionService = service.NewSubmissionService(s.submissionRepo, s.userRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.submissionRepo, publisher)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo, publisher)
	s.viewService = service.NewViewService(s.viewRepo, s.submissionRepo)
	s.recommendationService = service.NewRecommendationService(s.submissionRepo, s.viewRepo, s.featureFlags)
	s.profileService = service.NewProfileService(s.userRepo, s.submissionRepo, s.commentRepo, s.followRepo)
	s.avatarService = service.NewAvatarService(store, cfg.AvatarFormat, cfg.AvatarMaxUploadMB)

	return s, nil
}

func (s *Server) authConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret:     s.config.AuthJWTSecret,
		Issuer:     s.config.AuthIssuer,
		Audience:   s.config.AuthAudience,
		DevBypass:  s.config.DevAuthBypass,
		DevSubject: s.config.DevSeedAuthID,
	}
}

// NewApp builds a Fiber app with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.AvatarMaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 5
	}
	app := fiber.New(fiber.Config{
		AppName: "UnboundedFigures API",
		// Room above the avatar cap so oversized uploads get the handler's 413 body.
		BodyLimit:    (maxUpload + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Avatars are embedded cross-origin by the frontend.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, DNT, Sec-GPC",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.Authenticate(s.authConfig()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.avatarStore.(*storage.LocalStore); ok {
		app.Static(storage.LocalPublicPrefix, local.Dir(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	identity := middleware.IdentityRequired
	local := s.LocalUserRequired

	// Identity and profile
	api.Post("/me/ensure", identity, s.EnsureMe)
	api.Get("/me", identity, local, s.GetMe)
	api.Patch("/me", identity, local, s.UpdateMe)
	api.Get("/dashboard", identity, local, s.GetDashboard)
	api.Get("/profile/check-username", s.CheckUsername)
	api.Post("/profile/avatar", identity, local,
		middleware.RateLimit(s.redis, 10, 10*time.Minute, "avatar_upload"), s.UploadAvatar)
	api.Get("/users/:username", s.GetPublicProfile)

	// Submissions and comments
	api.Get("/submissions", s.ListSubmissions)
	api.Post("/submissions", identity, local,
		middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_submission"), s.CreateSubmission)
	api.Get("/submissions/:id", s.GetSubmission)
	api.Post("/comments", identity, local,
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	api.Get("/comments/:submissionId", s.ListComments)

	// Social graph, views and feed
	api.Post("/follow", identity, local,
		middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.ToggleFollow)
	api.Post("/views", middleware.RateLimit(s.redis, 120, time.Minute, "views"), s.RecordView)
	api.Get("/recs", s.GetRecommendations)

	// Realtime notifications
	api.Post("/ws/ticket", identity, local, middleware.RateLimit(s.redis, 30, time.Minute, "ws_ticket"), s.IssueWSTicket)
	api.Get("/ws", s.WSTicketRequired, s.WebsocketHandler())

	// Every other method on a known path is a 405.
	for path, methods := range map[string][]string{
		"/me/ensure":              {fiber.MethodPost},
		"/me":                     {fiber.MethodGet, fiber.MethodPatch},
		"/dashboard":              {fiber.MethodGet},
		"/profile/check-username": {fiber.MethodGet},
		"/profile/avatar":         {fiber.MethodPost},
		"/users/:username":        {fiber.MethodGet},
		"/submissions":            {fiber.MethodGet, fiber.MethodPost},
		"/submissions/:id":        {fiber.MethodGet},
		"/comments":               {fiber.MethodPost},
		"/comments/:submissionId": {fiber.MethodGet},
		"/follow":                 {fiber.MethodPost},
		"/views":                  {fiber.MethodPost},
		"/recs":                   {fiber.MethodGet},
		"/ws/ticket":              {fiber.MethodPost},
		"/ws":                     {fiber.MethodGet},
	} {
		api.All(path, methodNotAllowed(methods...))
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler renders errors that escaped a handler. Fiber errors keep their status.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, fe)
	}
	observability.Logger(c.UserContext()).Error("unhandled error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		for _, h := range s.hubs {
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					observability.L().Error("hub wiring failed", zap.String("hub", h.Name()), zap.Error(err))
				}
			}()
		}
	}

	observability.L().Info("server starting", zap.String("port", s.config.Port), zap.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log := observability.L()

	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Warn("error shutting down HTTP server", zap.Error(err))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			log.Warn("error shutting down hub", zap.String("hub", h.Name()), zap.Error(err))
		}
	}

	if closer, ok := s.avatarStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("error closing avatar store", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		log.Warn("error closing database", zap.Error(err))
	}

	if err := cache.Close(); err != nil {
		log.Warn("error closing redis", zap.Error(err))
	}

	log.Info("server shutdown complete")
	return nil
}
