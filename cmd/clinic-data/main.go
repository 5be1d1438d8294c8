package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/config"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/database"
	httpapi "github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/http"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/service"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var kv store.KV = store.NewRedisKV(redisClient)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unavailable, preview cache falls back to memory", zap.Error(err))
		kv = store.NewMemoryKV()
	}

	// Repository 装配：DB 可用时用 Postgres，否则退回内存实现（本地联测）
	var (
		db           *sql.DB
		intakeRepo   repository.IntakeRepository
		patientsRepo repository.PatientsRepository
		tagsRepo     repository.TagMembersRepository
		marksRepo    repository.MarksRepository
		fieldsRepo   repository.FieldValuesRepository
		resvRepo     repository.ReservationsRepository
		ordersRepo   repository.OrdersRepository
		reordersRepo repository.ReordersRepository
		bcastRepo    repository.BroadcastsRepository
	)

	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for clinic-data")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		intakeRepo = repository.NewPostgresIntakeRepository(db)
		patientsRepo = repository.NewPostgresPatientsRepository(db)
		tagsRepo = repository.NewPostgresTagMembersRepository(db)
		marksRepo = repository.NewPostgresMarksRepository(db)
		fieldsRepo = repository.NewPostgresFieldValuesRepository(db)
		resvRepo = repository.NewPostgresReservationsRepository(db)
		ordersRepo = repository.NewPostgresOrdersRepository(db)
		reordersRepo = repository.NewPostgresReordersRepository(db)
		bcastRepo = repository.NewPostgresBroadcastsRepository(db)
	} else {
		mem := repository.NewMemoryClinicRepo()
		intakeRepo = mem
		patientsRepo = mem
		tagsRepo = mem
		marksRepo = mem
		fieldsRepo = mem
		resvRepo = mem
		ordersRepo = mem
		reordersRepo = mem
		bcastRepo = repository.NewMemoryBroadcastsRepo()
	}

	metrics := service.NewBehaviorMetricsService(resvRepo, ordersRepo, reordersRepo, logger)
	audience := service.NewAudienceService(intakeRepo, patientsRepo, tagsRepo, marksRepo, fieldsRepo, metrics, logger)
	lineClient := service.NewLineClient(cfg.Line.APIBaseURL, cfg.Line.ChannelToken, logger)
	broadcastService := service.NewBroadcastService(
		audience, metrics, bcastRepo, lineClient, kv,
		cfg.Broadcast.BatchSize, cfg.Broadcast.ReservationFallback, logger,
	)

	router := httpapi.NewRouter(logger)
	router.RegisterBroadcastRoutes(httpapi.NewBroadcastsHandler(broadcastService, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
