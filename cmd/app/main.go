package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seongmin-dev/lockerdesk/config"
	"github.com/seongmin-dev/lockerdesk/internal/bootstrap"
	"github.com/seongmin-dev/lockerdesk/internal/cache"
	"github.com/seongmin-dev/lockerdesk/internal/kafka"
	"github.com/seongmin-dev/lockerdesk/internal/notify"
	"github.com/seongmin-dev/lockerdesk/internal/repository"
	"github.com/seongmin-dev/lockerdesk/internal/service/lockers"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Locker.GridCacheTTLSeconds)*time.Second)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	hub := notify.NewHub()
	notifier := notify.NewFanout(hub, producer, cfg.Kafka.EventsTopic)

	store := repository.NewStore(pool)
	lockerRepo := repository.NewLockerRepository(pool)
	appRepo := repository.NewApplicationRepository(pool)

	service := lockers.NewLockerService(store, lockerRepo, appRepo, redisCache, notifier, cfg.Locker.PoolSize)
	if err := service.Init(ctx); err != nil {
		log.Fatalf("init lockers: %v", err)
	}

	log.Printf("serving %d lockers on %s", cfg.Locker.PoolSize, cfg.HTTP.Address)
	if err := bootstrap.Run(ctx, cfg, service, hub, redisCache); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
