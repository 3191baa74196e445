package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/pairdaily/pairing-service/internal/app"
	"github.com/pairdaily/pairing-service/internal/cache"
	"github.com/pairdaily/pairing-service/internal/config"
	"github.com/pairdaily/pairing-service/internal/db"
	"github.com/pairdaily/pairing-service/internal/logger"
	"github.com/pairdaily/pairing-service/internal/scheduler"
	"github.com/pairdaily/pairing-service/internal/server"
	"github.com/pairdaily/pairing-service/internal/service/cycle"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	svc := cycle.NewCycleService(appCtx, cycle.Options{
		LookbackDays:   cfg.Cycle.LookbackDays,
		RecencyDays:    cfg.Cycle.RecencyDays,
		MaxFlakeStreak: cfg.Cycle.MaxFlakeStreak,
	})

	sched := scheduler.New(svc, log, cfg.Cycle.HourUTC)
	sched.Start()
	defer sched.Stop()

	if err := server.StartHTTPServer(cfg, appCtx, svc); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
