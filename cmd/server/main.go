package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "github.com/lib/pq"

	"assetledger/internal/config"
	"assetledger/internal/repository"
	"assetledger/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логирования
	logger := utils.InitLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Logging.Development,
	})
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("name", cfg.Database.Name),
	)

	// Применение схемы
	if err := repository.CreateSchema(db); err != nil {
		logger.Fatal("Failed to create schema", zap.Error(err))
	}

	// Инициализация репозиториев
	repo := repository.New(db, logger.Logger)
	assetRepo := repository.NewAssetRepository(repo)
	orderRepo := repository.NewOrderRepository(repo, assetRepo)
	tradeRepo := repository.NewTradeRepository(repo, assetRepo)

	logStartupCounts(logger.Logger, assetRepo, orderRepo, tradeRepo)

	// Периодические контрольные точки хранилища
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go repo.RunCheckpointLoop(ctx, cfg.Checkpoint.Interval)

	// Эндпоинт метрик Prometheus
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			logger.Info("Starting metrics server", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	// Финальная контрольная точка перед выходом
	if err := repo.Checkpoint(); err != nil {
		logger.Error("Final checkpoint failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// logStartupCounts пишет в лог размеры таблиц при старте. Таблица,
// которую не удалось посчитать, в итоговую строку не попадает
func logStartupCounts(logger *zap.Logger, assets *repository.AssetRepository, orders *repository.OrderRepository, trades *repository.TradeRepository) {
	fields := make([]zap.Field, 0, 3)

	if assetCount, err := assets.Count(); err != nil {
		logger.Warn("Failed to count assets", zap.Error(err))
	} else {
		fields = append(fields, zap.Int("assets", assetCount))
	}

	if orderCount, err := orders.Count(); err != nil {
		logger.Warn("Failed to count asset orders", zap.Error(err))
	} else {
		fields = append(fields, zap.Int("orders", orderCount))
	}

	if tradeCount, err := trades.Count(); err != nil {
		logger.Warn("Failed to count asset trades", zap.Error(err))
	} else {
		fields = append(fields, zap.Int("trades", tradeCount))
	}

	logger.Info("Repository ready", fields...)
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}
