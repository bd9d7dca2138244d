package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lukamba/kitadi-backend/internal/config"
	"github.com/lukamba/kitadi-backend/internal/db"
	httpHandlers "github.com/lukamba/kitadi-backend/internal/http/handlers"
	httpRouter "github.com/lukamba/kitadi-backend/internal/http/router"
	"github.com/lukamba/kitadi-backend/internal/logger"
	"github.com/lukamba/kitadi-backend/internal/repository"
	"github.com/lukamba/kitadi-backend/internal/scheduler"
	"github.com/lukamba/kitadi-backend/internal/service"
	"github.com/lukamba/kitadi-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug", true)
	} else {
		logger.Init("info", false)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	confirmationRepo := repository.NewConfirmationRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты: хаб доставляет события и сохраняет уведомления.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))

	authService := service.NewAuthService(userRepo, walletRepo, tokenManager)
	walletService := service.NewWalletService(walletRepo, hub, cfg.DefaultCurrency)

	// Планировщик отложенных проверок контрактов.
	jobStore := scheduler.NewPostgresJobStore(dbConn)
	timerScheduler := scheduler.NewTimerScheduler(ctx, jobStore)

	contractService := service.NewContractService(contractRepo, confirmationRepo, walletRepo, hub, timerScheduler, cfg.LockTimeout, cfg.DefaultCurrency)

	timerScheduler.RegisterHandler(scheduler.JobContractTimeout, contractService.HandleTimeout)
	if err := timerScheduler.RecoverPending(ctx); err != nil {
		log.Fatalf("main: не удалось восстановить отложенные задания: %v", err)
	}

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	contractHandler := httpHandlers.NewContractHandler(contractService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, walletHandler, contractHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
