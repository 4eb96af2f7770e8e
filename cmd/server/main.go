package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/auth"
	"github.com/quokka-collab/quokka/internal/broker"
	"github.com/quokka-collab/quokka/internal/config"
	deliveryhttp "github.com/quokka-collab/quokka/internal/delivery/http"
	"github.com/quokka-collab/quokka/internal/domain"
	memoryrepo "github.com/quokka-collab/quokka/internal/repository/memory"
	"github.com/quokka-collab/quokka/internal/repository/mongodb"
	"github.com/quokka-collab/quokka/internal/serializer"
	"github.com/quokka-collab/quokka/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	docs, oplog, users, templates, err := buildStores(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	bus, err := buildBroker(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize broker", zap.Error(err))
	}
	defer func() { _ = bus.Close() }()

	authSvc := auth.NewService(users, []byte(cfg.JWTSecret), auth.DefaultTokenTTL)
	worker := serializer.NewWorker(docs, oplog, bus, logger, cfg.LeaseTTL)
	defer func() { _ = worker.Close() }()

	registry := session.NewRegistry(logger)
	sessions := session.NewHandler(docs, authSvc, registry, bus, worker, logger)
	handler := deliveryhttp.NewHandler(docs, oplog, templates, users, authSvc, sessions, logger)

	server := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: deliveryhttp.NewRouter(handler),
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", cfg.BindAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

// buildStores connects MongoDB when configured and falls back to the
// in-memory stores for local development.
func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.DocumentStore, domain.OperationLog, domain.UserStore, domain.TemplateStore, error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		return memoryrepo.NewDocumentStore(), memoryrepo.NewOperationLog(),
			memoryrepo.NewUserStore(), memoryrepo.NewTemplateStore(), nil
	}

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	db := client.Database(cfg.MongoDatabase)

	docs, err := mongodb.NewDocumentStore(ctx, db, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	oplog, err := mongodb.NewOperationLog(ctx, db, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	users, err := mongodb.NewUserStore(ctx, db)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	templates := mongodb.NewTemplateStore(db)
	logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	return docs, oplog, users, templates, nil
}

// buildBroker connects Redis when configured and falls back to the
// in-process broker, which limits the deployment to a single instance.
func buildBroker(cfg *config.Config, logger *zap.Logger) (broker.Broker, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-process broker")
		return broker.NewMemoryBroker(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	bus, err := broker.NewRedisBroker(client, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return bus, nil
}
