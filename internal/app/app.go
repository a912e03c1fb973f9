package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"obsp_backend/database"
	"obsp_backend/internal/config"
	"obsp_backend/internal/handlers"
	"obsp_backend/internal/logger"
	"obsp_backend/internal/routes"
	"obsp_backend/internal/services"
	"obsp_backend/internal/validator"
	"obsp_backend/internal/workers"
)

// App - собранное приложение: БД, сервисы, worker пересчета, HTTP-сервер
type App struct {
	cfg      *config.Config
	db       *gorm.DB
	services *services.ServiceContainer
	worker   *workers.RecalculationWorker
	server   *http.Server
}

// New загружает конфигурацию и связывает все слои
func New() (*App, error) {
	config.LoadConfig()
	cfg := config.GetConfig()

	logger.Init(cfg.Server.Env)
	validator.Init()

	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	sc := services.NewServiceContainer(db, cfg)
	router := routes.SetupRouter(db, handlers.NewAppHandlers(sc))

	return &App{
		cfg:      cfg,
		db:       db,
		services: sc,
		worker:   workers.NewRecalculationWorker(db, sc.Bus, sc.Eligibility, cfg.Eligibility.EventWorkers),
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

// Run запускает worker и HTTP-сервер, блокируется до SIGINT/SIGTERM
// и гасит все аккуратно
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.worker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	// Шина закрывается, worker дочитывает буфер
	a.services.Bus.Close()
	a.worker.Wait()

	if err := a.services.SummaryCache.Close(); err != nil {
		logger.Error("summary cache close failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
