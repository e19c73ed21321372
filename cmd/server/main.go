package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/carenest/carenest/internal/config"
	"github.com/carenest/carenest/internal/handler"
	"github.com/carenest/carenest/internal/realtime"
	"github.com/carenest/carenest/internal/repository"
	"github.com/carenest/carenest/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	registry := realtime.NewRegistry(cfg.ConnectionTTL, cfg.SweepInterval)
	defer registry.Close()
	broadcaster := realtime.NewBroadcaster(registry)

	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	forumRepo := repository.NewForumRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	dispatcher := service.NewNotificationDispatcher(notificationRepo, registry, broadcaster)

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, dispatcher, familyRepo)
	messageSvc := service.NewMessageService(conversationRepo, dispatcher, broadcaster)
	careSvc := service.NewCareService(familyRepo, resourceRepo, dispatcher)
	forumSvc := service.NewForumService(forumRepo, familyRepo, dispatcher)

	authHandler := handler.NewAuthHandler(authSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	careHandler := handler.NewCareHandler(careSvc)
	forumHandler := handler.NewForumHandler(forumSvc)
	streamHandler := handler.NewStreamHandler(broadcaster, registry, conversationRepo, cfg.HeartbeatInterval)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(handler.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.GET("/google", authHandler.GoogleRedirect)
	auth.GET("/google/callback", authHandler.GoogleCallback)
	auth.GET("/github", authHandler.GitHubRedirect)
	auth.GET("/github/callback", authHandler.GitHubCallback)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := api.Group("", handler.JWTAuth(authSvc))
	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/notifications", notificationHandler.List)
	protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	protected.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	protected.DELETE("/notifications/:id", notificationHandler.Delete)
	protected.POST("/notifications/announce", notificationHandler.Announce, handler.RequireAdmin())

	protected.POST("/conversations", messageHandler.StartConversation)
	protected.GET("/conversations", messageHandler.ListConversations)
	protected.GET("/conversations/:id/messages", messageHandler.ListMessages)
	protected.POST("/conversations/:id/messages", messageHandler.Send)
	protected.GET("/conversations/:id/stream", streamHandler.Conversation)
	protected.GET("/stream", streamHandler.Personal)

	protected.POST("/families", careHandler.CreateFamily)
	protected.POST("/families/:id/members", careHandler.AddMember, handler.RequireAdmin())
	protected.GET("/families/:id/care-updates", careHandler.ListCareUpdates)
	protected.POST("/families/:id/care-updates", careHandler.PostCareUpdate)
	protected.GET("/families/:id/resources", careHandler.ListResources)
	protected.POST("/families/:id/resources", careHandler.ShareResource)
	protected.DELETE("/resources/:id", careHandler.RemoveResource)
	protected.GET("/families/:id/forum", forumHandler.ListPosts)
	protected.POST("/families/:id/forum", forumHandler.CreatePost)
	protected.POST("/forum/:id/vote", forumHandler.Vote)

	// Expired-notification janitor.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go func() {
		ticker := time.NewTicker(cfg.ExpiryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := notificationSvc.PruneExpired(janitorCtx)
				if err != nil {
					slog.Error("expired notification sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("pruned expired notifications", "removed", removed)
				}
			case <-janitorCtx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     e,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
