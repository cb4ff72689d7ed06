package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
	"github.com/ayush/autos-marketplace/backend/internal/config"
	"github.com/ayush/autos-marketplace/backend/internal/listing"
	"github.com/ayush/autos-marketplace/backend/internal/logging"
	"github.com/ayush/autos-marketplace/backend/internal/middleware"
	"github.com/ayush/autos-marketplace/backend/internal/server"
	"github.com/ayush/autos-marketplace/backend/internal/store"
	"github.com/ayush/autos-marketplace/backend/internal/user"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Logger ───────────────────────────────────────────────
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := store.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database(cfg.MongoDB)
	if err := store.EnsureIndexes(ctx, mongoDB); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}
	users := store.NewUserStore(mongoDB)
	listings := store.NewListingStore(mongoDB)

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	revocations := auth.NewRevocations(rdb)

	// ── MinIO ────────────────────────────────────────────────
	photos, err := store.NewPhotoStore(ctx, store.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		logger.Fatal("minio connect", zap.Error(err))
	}

	// ── Tokens ───────────────────────────────────────────────
	tokens, err := auth.NewTokens(auth.TokenConfig{Secret: cfg.TokenSecret, TTL: cfg.TokenTTL})
	if err != nil {
		logger.Fatal("tokens", zap.Error(err))
	}

	// ── Handlers ─────────────────────────────────────────────
	listingHandler := listing.NewHandler(listings, users, photos, logger, listing.Options{
		OwnerFromToken: cfg.ListingOwnerFromToken,
		MaxPhotoBytes:  cfg.MaxPhotoBytes,
	})
	userHandler := user.NewHandler(users, listings, photos, tokens, revocations, logger, cfg.ListingOwnerFromToken)

	// ── Router ───────────────────────────────────────────────
	r := server.NewRouter(server.Options{
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
		RequireToken: middleware.RequireToken(tokens, revocations, logger),
		Health: func(ctx context.Context) error {
			if err := mongoClient.Ping(ctx, nil); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
	}, listingHandler, userHandler)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
