package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/abuse"
	"github.com/crafted-exteriors/crm-api/internal/config"
	"github.com/crafted-exteriors/crm-api/internal/handler"
	"github.com/crafted-exteriors/crm-api/internal/metrics"
	"github.com/crafted-exteriors/crm-api/internal/middleware"
	"github.com/crafted-exteriors/crm-api/internal/ratelimit"
	"github.com/crafted-exteriors/crm-api/internal/repository"
	"github.com/crafted-exteriors/crm-api/internal/service"
	"github.com/crafted-exteriors/crm-api/internal/storage"
	"github.com/crafted-exteriors/crm-api/internal/turnstile"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	redis      *storage.RedisClient
	postgres   *storage.Postgres
	httpServer *http.Server

	intakeLimiter *ratelimit.Limiter
	adminReadRL   *ratelimit.Limiter
	adminWriteRL  *ratelimit.Limiter
	requestLogs   *middleware.RequestLogWorker
	verifier      *turnstile.Verifier

	authHandler      *handler.AuthHandler
	intakeHandler    *handler.IntakeHandler
	leadHandler      *handler.LeadHandler
	clientHandler    *handler.ClientHandler
	dealHandler      *handler.DealHandler
	settingsHandler  *handler.SettingsHandler
	analyticsHandler *handler.AnalyticsHandler
	authService      *service.AuthService
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// One multi-dimension limiter guards the public intake endpoint.
	// The admin API gets separate read and write limiters keyed by IP.
	intakeLimiter := ratelimit.New(map[ratelimit.Dimension]ratelimit.Config{
		ratelimit.DimensionIP:          {Limit: cfg.RateLimit.IP.Limit, Window: cfg.RateLimit.IP.Window()},
		ratelimit.DimensionFingerprint: {Limit: cfg.RateLimit.Fingerprint.Limit, Window: cfg.RateLimit.Fingerprint.Window()},
		ratelimit.DimensionContact:     {Limit: cfg.RateLimit.Contact.Limit, Window: cfg.RateLimit.Contact.Window()},
	})
	adminReadRL := ratelimit.NewSingle(cfg.RateLimit.AdminRead.Limit, cfg.RateLimit.AdminRead.Window())
	adminWriteRL := ratelimit.NewSingle(cfg.RateLimit.AdminWrite.Limit, cfg.RateLimit.AdminWrite.Window())

	intakeLimiter.StartJanitor(time.Minute)
	adminReadRL.StartJanitor(time.Minute)
	adminWriteRL.StartJanitor(time.Minute)

	m := metrics.New(prometheus.DefaultRegisterer, intakeLimiter.Size)
	abuseLog := abuse.NewLogger(os.Stderr, m)

	verifier := turnstile.New(turnstile.Config{
		SecretKey:     cfg.Turnstile.SecretKey,
		Environment:   cfg.Server.Environment,
		BypassEnabled: cfg.Turnstile.BypassEnabled,
	}, abuseLog)

	leadRepo := repository.NewLeadRepository(postgres)
	activityRepo := repository.NewActivityRepository(postgres)
	clientRepo := repository.NewClientRepository(postgres)
	dealRepo := repository.NewDealRepository(postgres)
	settingsRepo := repository.NewSettingsRepository(postgres)
	userRepo := repository.NewUserRepository(postgres)
	requestLogRepo := repository.NewRequestLogRepository(postgres)

	settingsService := service.NewSettingsService(settingsRepo, redis)
	intakeService := service.NewIntakeService(leadRepo, settingsService)
	leadService := service.NewLeadService(leadRepo, activityRepo, settingsService)
	clientService := service.NewClientService(clientRepo, leadRepo, settingsService)
	dealService := service.NewDealService(dealRepo, clientRepo, settingsService)
	authService := service.NewAuthService(userRepo, redis, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	analyticsService := service.NewAnalyticsService(requestLogRepo, leadRepo)

	s := &Server{
		router:        router,
		config:        cfg,
		redis:         redis,
		postgres:      postgres,
		intakeLimiter: intakeLimiter,
		adminReadRL:   adminReadRL,
		adminWriteRL:  adminWriteRL,
		requestLogs:   middleware.NewRequestLogWorker(requestLogRepo, 1000),
		verifier:      verifier,
		authService:   authService,

		authHandler:      handler.NewAuthHandler(authService),
		intakeHandler:    handler.NewIntakeHandler(intakeService, intakeLimiter, verifier, abuseLog, m),
		leadHandler:      handler.NewLeadHandler(leadService),
		clientHandler:    handler.NewClientHandler(clientService),
		dealHandler:      handler.NewDealHandler(dealService),
		settingsHandler:  handler.NewSettingsHandler(settingsService),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService, settingsService),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(s.requestLogs.Middleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public intake. The handler owns its own multi-dimension limiter
	// so it can report the denying dimension and emit abuse events.
	s.router.POST("/api/leads/intake", s.intakeHandler.Submit)

	auth := s.router.Group("/admin/auth")
	auth.Use(middleware.RateLimit(s.adminWriteRL))
	{
		auth.POST("/login", s.authHandler.Login)
		auth.POST("/register", s.authHandler.Register)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService))
	{
		admin.POST("/auth/logout", s.authHandler.Logout)
		admin.GET("/auth/me", s.authHandler.Me)

		read := admin.Group("")
		read.Use(middleware.RateLimit(s.adminReadRL))
		{
			read.GET("/leads", s.leadHandler.List)
			read.GET("/leads/:id", s.leadHandler.Get)
			read.GET("/leads/:id/activities", s.leadHandler.Activities)
			read.GET("/clients", s.clientHandler.List)
			read.GET("/clients/:id", s.clientHandler.Get)
			read.GET("/deals", s.dealHandler.List)
			read.GET("/deals/pipeline", s.dealHandler.Pipeline)
			read.GET("/deals/:id", s.dealHandler.Get)
			read.GET("/settings/pipeline", s.settingsHandler.Get)
			read.GET("/analytics/summary", s.analyticsHandler.Summary)
			read.GET("/analytics/logs", s.analyticsHandler.Logs)
		}

		write := admin.Group("")
		write.Use(middleware.RateLimit(s.adminWriteRL))
		{
			write.POST("/leads", s.leadHandler.Create)
			write.PUT("/leads/:id", s.leadHandler.Update)
			write.DELETE("/leads/:id", s.leadHandler.Delete)
			write.POST("/leads/:id/notes", s.leadHandler.AddNote)
			write.POST("/leads/:id/convert", s.clientHandler.ConvertLead)
			write.POST("/clients", s.clientHandler.Create)
			write.PUT("/clients/:id", s.clientHandler.Update)
			write.DELETE("/clients/:id", s.clientHandler.Delete)
			write.POST("/deals", s.dealHandler.Create)
			write.PUT("/deals/:id", s.dealHandler.Update)
			write.DELETE("/deals/:id", s.dealHandler.Delete)
			write.PUT("/settings/pipeline", s.settingsHandler.Update)
			write.DELETE("/analytics/logs", s.analyticsHandler.CleanupLogs)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "crm-api",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":     redisHealthy,
			"database":  dbHealthy,
			"turnstile": s.verifier.BreakerState(),
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting CRM API on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	s.intakeLimiter.Stop()
	s.adminReadRL.Stop()
	s.adminWriteRL.Stop()
	s.requestLogs.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
