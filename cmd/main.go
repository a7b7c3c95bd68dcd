package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/config"
	"github.com/titlescore/titlescore/db"
	"github.com/titlescore/titlescore/handlers"
	"github.com/titlescore/titlescore/identity"
	"github.com/titlescore/titlescore/live"
	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/repositories"
	"github.com/titlescore/titlescore/routes"
	"github.com/titlescore/titlescore/scoring"
	"github.com/titlescore/titlescore/services"
	"github.com/titlescore/titlescore/storage"
)

// Как часто чистятся просроченные одноразовые токены.
const tokenCleanupInterval = time.Hour

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	hub := live.NewHub()
	go hub.Run()
	logger.Info("WebSocket Hub started")

	// Внешние клиенты: relationship store и identity provider.
	authzClient := authz.NewHTTPClient(cfg.AuthzEndpoint, cfg.AuthzToken)
	idProvider := identity.NewHTTPProvider(cfg.IdentityAPIURL, cfg.IdentityAPIKey)

	// Инициализация репозиториев
	contestRepo := repositories.NewPostgresContestRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	contestantRepo := repositories.NewPostgresContestantRepository(dbConn)
	criterionRepo := repositories.NewPostgresCriterionRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	tokenRepo := repositories.NewPostgresSignInTokenRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authorizer := services.NewAuthorizer(authzClient, contestRepo)
	engine := scoring.NewEngine(cfg.QuorumThreshold)

	emailService := services.NewEmailService(cfg.SMTPHost, fmt.Sprint(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	authService := services.NewAuthService(tokenRepo, idProvider, cfg.JWTSecretKey, logger)
	contestService := services.NewContestService(contestRepo, authzClient, authorizer, logger)
	memberService := services.NewMemberService(memberRepo, contestRepo, authzClient, authorizer, idProvider, authService, emailService, cfg.PublicURL, logger)
	contestantService := services.NewContestantService(contestantRepo, authorizer)
	criterionService := services.NewCriterionService(criterionRepo, authorizer)
	standingsService := services.NewStandingsService(scoreRepo, criterionRepo, contestantRepo, authzClient, authorizer, engine, hub, logger)
	scoreService := services.NewScoreService(scoreRepo, criterionRepo, authorizer, standingsService, logger)
	exportService := services.NewExportService(contestRepo, criterionRepo, scoreRepo, authorizer, memberService, standingsService, uploader)
	logger.Info("Services initialized")

	// Фоновая чистка просроченных одноразовых токенов.
	go func() {
		ticker := time.NewTicker(tokenCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			deleted, err := authService.CleanupExpiredTokens(context.Background())
			if err != nil {
				logger.Error("sign-in token cleanup failed", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				logger.Info("expired sign-in tokens removed", slog.Int64("count", deleted))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	routeHandlers := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Contest:    handlers.NewContestHandler(contestService),
		Member:     handlers.NewMemberHandler(memberService),
		Contestant: handlers.NewContestantHandler(contestantService),
		Criterion:  handlers.NewCriterionHandler(criterionService),
		Score:      handlers.NewScoreHandler(scoreService),
		Standings:  handlers.NewStandingsHandler(standingsService, exportService),
		Websocket:  handlers.NewWebsocketHandler(hub, authorizer, logger),
	}
	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := routes.InitRoutes(routeHandlers, authenticator, cfg.PublicURL)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced shutdown failed", slog.Any("error", err))
			}
		}
	}

	logger.Info("server stopped")
}
