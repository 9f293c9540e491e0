// Package server wires the Atom Video HTTP API: middleware, routes, handlers and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "atomvideo/docs" // swagger docs
	"atomvideo/internal/auth"
	"atomvideo/internal/cache"
	"atomvideo/internal/config"
	"atomvideo/internal/database"
	"atomvideo/internal/featureflags"
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"
	"atomvideo/internal/notifications"
	"atomvideo/internal/repository"
	"atomvideo/internal/service"
	"atomvideo/internal/storage"
	"atomvideo/internal/tasks"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds every dependency the HTTP handlers need.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	tokens      *auth.TokenManager
	revocations *auth.Revocations
	oauth       *auth.Registry
	rateLimiter *middleware.RateLimiter

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Flags
	store        *storage.Store

	authService         *service.AuthService
	userService         *service.UserService
	videoService        *service.VideoService
	commentService      *service.CommentService
	tagService          *service.TagService
	statsService        *service.StatsService
	subscriptionService *service.SubscriptionService
	notificationService *service.NotificationService
}

// NewServer connects to PostgreSQL and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server over already-initialized dependencies.
// redisClient may be nil: revocation, live notifications, email and rate
// limiting then degrade to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	tagRepo := repository.NewTagRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("atomvideo-api"),
		userRepo:       userRepo,
		tokens:         auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		revocations:    auth.NewRevocations(redisClient),
		oauth:          auth.NewRegistryFromConfig(cfg),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.Parse(cfg.FeatureFlags),
	}

	var emails service.EmailDispatcher
	if redisClient != nil {
		// The queue shares the Redis connection, which Shutdown closes.
		emails = tasks.NewDispatcher(asynq.NewClientFromRedisClient(redisClient))
	} else {
		middleware.Logger.Warn("Redis unavailable, outgoing email disabled")
	}

	if cfg.S3Configured() {
		store, err := storage.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("object storage setup failed: %w", err)
		}
		s.store = store
	}

	isAdmin := service.AdminCheckFromUsers(userRepo)
	s.notificationService = service.NewNotificationService(
		notifRepo, subRepo, userRepo, s.notifier, emails, s.featureFlags, cfg.FrontendURL)
	s.authService = service.NewAuthService(userRepo, s.tokens, s.revocations, emails, cfg.FrontendURL)
	s.userService = service.NewUserService(userRepo, videoRepo, subRepo, isAdmin)
	s.videoService = service.NewVideoService(videoRepo, tagRepo, userRepo, s.notificationService, isAdmin)
	s.commentService = service.NewCommentService(commentRepo, s.videoService, s.notificationService, isAdmin)
	s.tagService = service.NewTagService(tagRepo, videoRepo)
	s.statsService = service.NewStatsService(statsRepo)
	s.subscriptionService = service.NewSubscriptionService(subRepo, userRepo, s.notificationService)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Copies request and trace IDs into the user context for slog.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = s.config.FrontendURL
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
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
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// OAuth lives outside /api so provider callback URLs stay short.
	oauth := app.Group("/auth")
	oauth.Get("/:provider/callback", s.OAuthCallback)
	oauth.Get("/:provider", s.OAuthRedirect)

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Atom Video API Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", s.rateLimiter.Limit(5, 10*time.Minute, "signup"), s.Signup)
	authRoutes.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login"), s.Login)
	authRoutes.Get("/providers", s.ListOAuthProviders)
	authRoutes.Get("/verify", s.VerifyEmail)
	authRoutes.Post("/forgot-password", s.rateLimiter.Limit(3, 15*time.Minute, "forgot_password"), s.ForgotPassword)
	authRoutes.Post("/reset-password", s.ResetPassword)
	authRoutes.Get("/me", s.AuthRequired(), s.GetMe)
	authRoutes.Post("/logout", s.AuthRequired(), s.Logout)
	authRoutes.Post("/resend-verification", s.AuthRequired(),
		s.rateLimiter.Limit(3, 15*time.Minute, "resend_verification"), s.ResendVerification)

	// Public video routes. Specific /:id/x routes come before /:id.
	videos := api.Group("/videos")
	videos.Get("/", s.ListVideos)
	videos.Post("/", s.rateLimiter.Limit(20, time.Hour, "create_video"), s.CreateVideo)
	videos.Post("/upload", s.AuthRequired(), s.rateLimiter.Limit(10, time.Hour, "upload"), s.UploadVideo)
	videos.Get("/:id/comments", s.ListComments)
	videos.Post("/:id/comments", s.AuthRequired(), s.rateLimiter.Limit(10, time.Minute, "create_comment"), s.CreateComment)
	videos.Post("/:id/view", s.RecordView)
	videos.Get("/:id/like", s.AuthRequired(), s.GetLikeStatus)
	videos.Post("/:id/like", s.AuthRequired(), s.LikeVideo)
	videos.Delete("/:id/like", s.AuthRequired(), s.UnlikeVideo)
	videos.Put("/:id/tags", s.AuthRequired(), s.SetVideoTags)
	videos.Post("/:id/thumbnail", s.AuthRequired(), s.UploadThumbnail)
	videos.Get("/:id", s.GetVideo)
	videos.Put("/:id", s.AuthRequired(), s.UpdateVideo)
	videos.Delete("/:id", s.AuthRequired(), s.DeleteVideo)

	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Get("/:id/videos", s.ListTagVideos)
	tags.Get("/:id", s.GetTag)
	tags.Post("/", s.AuthRequired(), s.CreateTag)
	tags.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteTag)

	stats := api.Group("/stats")
	stats.Get("/overview", s.GetStatsOverview)
	stats.Get("/top-videos", s.GetTopVideos)
	stats.Get("/tags", s.GetTagUsage)
	stats.Get("/uploads", s.GetUploads)

	users := api.Group("/users")
	users.Get("/", s.AuthRequired(), s.ListUsers)
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/:id/videos", s.ListUserVideos)
	users.Put("/:id/role", s.AuthRequired(), s.AdminRequired(), s.SetUserRole)
	users.Get("/:id", s.GetUserProfile)
	users.Delete("/:id", s.AuthRequired(), s.DeleteUser)

	comments := api.Group("/comments", s.AuthRequired())
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	subs := api.Group("/subscriptions", s.AuthRequired())
	subs.Get("/", s.ListSubscriptions)
	subs.Get("/subscribers", s.ListSubscribers)
	subs.Get("/status/:creatorId", s.GetSubscriptionStatus)
	subs.Post("/", s.rateLimiter.Limit(30, time.Minute, "subscribe"), s.Subscribe)
	subs.Put("/:creatorId", s.UpdateSubscription)
	subs.Delete("/:creatorId", s.Unsubscribe)

	notifs := api.Group("/notifications", s.AuthRequired())
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)
	notifs.Delete("/:id", s.DeleteNotification)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SetFeatureFlag)
	admin.Get("/users", s.ListAdmins)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebSocketUpgrade(), s.NotificationsWebSocket())

	// Unmatched API paths answer 404 instead of falling through to auth.
	api.Use(func(c *fiber.Ctx) error {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Route"))
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings PostgreSQL and Redis. Redis is optional, so a missing
// client reports "disabled" without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403. It must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User no longer exists"))
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// AuthRequired verifies the bearer token (or a WebSocket ticket on /api/ws)
// and stores the caller in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/ws") && c.Query("ticket") != "" {
			userID, err := s.redeemWSTicket(c.UserContext(), c.Query("ticket"))
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			middleware.WithUserID(c, userID)
			return c.Next()
		}

		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := s.revocations.IsRevoked(c.UserContext(), claims.JTI)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		c.Locals("claims", claims)
		middleware.WithUserID(c, claims.UserID)
		return c.Next()
	}
}

// optionalUserID resolves the caller from a bearer token without enforcing it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if id, ok := c.Locals("userID").(uint); ok {
		return id, true
	}
	tokenString := bearerToken(c)
	if tokenString == "" {
		return 0, false
	}
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return 0, false
	}
	if revoked, _ := s.revocations.IsRevoked(c.UserContext(), claims.JTI); revoked {
		return 0, false
	}
	return claims.UserID, true
}

func bearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	bodyLimit := s.config.UploadMaxMB * 1024 * 1024
	if bodyLimit < 4*1024*1024 {
		bodyLimit = 4 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Atom Video API",
		BodyLimit:    bodyLimit,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the server and blocks until it stops listening.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	go func() {
		if err := s.hub.Run(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start notification fan-out: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down notification hub: %v", err)
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
