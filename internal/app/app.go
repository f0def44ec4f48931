package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/avolkhin/storefront-auth/internal/config"
	"github.com/avolkhin/storefront-auth/internal/federation"
	"github.com/avolkhin/storefront-auth/internal/handler"
	"github.com/avolkhin/storefront-auth/internal/repository"
	"github.com/avolkhin/storefront-auth/internal/service"
	"github.com/avolkhin/storefront-auth/internal/token"
	"github.com/avolkhin/storefront-auth/pkg/objectstore"
	"github.com/avolkhin/storefront-auth/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(ctx context.Context, infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	tokens := token.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	var verifier federation.Verifier
	if cfg.Google.ClientID != "" {
		googleVerifier, err := federation.NewGoogleVerifier(ctx, cfg.Google.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize google verifier: %w", err)
		}
		verifier = googleVerifier
	}

	var store service.ObjectStore
	if cfg.Avatar.Bucket != "" {
		s3Store, err := objectstore.New(ctx, objectstore.Config{
			Region:          cfg.Avatar.Region,
			Bucket:          cfg.Avatar.Bucket,
			AccessKeyID:     cfg.Avatar.AccessKeyID,
			SecretAccessKey: cfg.Avatar.SecretKey,
			Endpoint:        cfg.Avatar.Endpoint,
			PublicBaseURL:   cfg.Avatar.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize avatar store: %w", err)
		}
		store = s3Store
	}

	cookiePolicy := service.CookiePolicy{
		HTTPOnly: true,
		Secure:   cfg.CookieSecure(),
		SameSite: cfg.Cookie.SameSiteMode(),
		Path:     cfg.Cookie.Path,
	}

	sessions := service.NewSessionService(
		repos.User,
		tokens,
		verifier,
		store,
		cookiePolicy,
		cfg.Security.BCryptCost,
	)

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)
	authHandler := handler.NewAuthHandler(sessions, infra.Logger())
	userHandler := handler.NewUserHandler(sessions, infra.Logger())

	router := gin.Default()
	router.Use(otelgin.Middleware("storefront-auth"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, userHandler, sessions, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	sessions service.SessionService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.Register,
			)
			auth.POST("/login",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.Login,
			)
			auth.POST("/google",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.GoogleLogin,
			)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", handler.AuthMiddleware(sessions), authHandler.Logout)
			auth.GET("/me", handler.AuthMiddleware(sessions), authHandler.GetMe)
			auth.POST("/change-password", handler.AuthMiddleware(sessions), authHandler.ChangePassword)
			auth.POST("/avatar", handler.AuthMiddleware(sessions), authHandler.UploadAvatar)
		}

		users := api.Group("/users")
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
