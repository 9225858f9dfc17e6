package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"YadminAPI/internal/changelist"
	"YadminAPI/internal/config"
	"YadminAPI/internal/db"
	"YadminAPI/internal/logger"
	"YadminAPI/internal/model"
	"YadminAPI/internal/router"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	// PostgreSQL
	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("postgres_connected", nil)

	// Redis опционален: без него all-values фильтры ходят в БД напрямую
	db.InitRedis(cfg.RedisAddr)
	if err := db.PingRedis(); err != nil {
		logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
	}

	// Собственные миграции сервиса (журнал действий)
	if err := db.ApplyMigrations(cfg.MigrationsDir, cfg.PostgresDSN); err != nil {
		logger.Error("migrations_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("migrations_applied", nil)

	// Реестр моделей: загрузка, линковка, checks — падаем на старте, не на запросе
	if err := model.InitRegistry(cfg.ModelsDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	changelist.SetChoiceCache(cfg.ChoiceCache.TTLSeconds, cfg.ChoiceCache.MaxValues)
	logger.Info("models_initialized", map[string]any{"count": len(model.Registry)})

	if err := router.InitRoutes(cfg); err != nil {
		logger.Error("router_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
