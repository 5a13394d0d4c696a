/*
Package main is the entry point for the chatroom server.

It is responsible for loading configuration, initializing the global logging system,
connecting the stores (PostgreSQL or memory, S3, Redis), starting the message feed,
setting up the HTTP server and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/db"
	"chatroom/internal/app/identity"
	"chatroom/internal/app/memstore"
	"chatroom/internal/app/render"
	"chatroom/internal/app/storage"
	"chatroom/internal/configs"
	"chatroom/internal/handler"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/metrics"
	"chatroom/internal/pkg/pow"
)

const (
	shutdownTimeout = 10 * time.Second
	redisPingWait   = 5 * time.Second
)

// stores are the persistence backends selected by STORE_DRIVER.
type stores struct {
	accounts identity.AccountStore
	profiles identity.ProfileStore
	messages chat.MessageStore
	close    func()
}

func main() {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARN: Failed to read .env file: %v\n", err)
	}

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("store_driver", cfg.StoreDriver).
		Bool("redis", cfg.RedisAddr != "").
		Bool("avatars", cfg.AvatarsEnabled()).
		Bool("federated", cfg.Federated.Enabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// appCtx outlives the signal so connections can be drained before the feed stops.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open stores")
	}
	defer st.close()

	var (
		sessions identity.SessionStore
		notifier chat.Notifier
	)
	if cfg.RedisAddr != "" {
		rdb, err := openRedis(ctx, cfg)
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis", "addr", cfg.RedisAddr)
		}
		defer rdb.Close()

		sessions = identity.NewRedisSessionStore(rdb)
		notifier = chat.NewRedisNotifier(rdb, cfg.Platform.ProjectID)
	} else {
		sessions = identity.NewMemorySessionStore()
		notifier = chat.NewLocalNotifier()
	}

	var (
		objects      identity.ObjectStore
		localAvatars *memstore.Objects
	)
	switch {
	case cfg.AvatarsEnabled():
		storageService, err := storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize object storage")
		}
		objects = storageService
	case cfg.IsDevelopment():
		localAvatars = memstore.NewObjects("/avatars")
		objects = localAvatars
		logx.Warn("S3_BUCKET_NAME not set. Avatars are kept in memory and served by this process.")
	}

	var verifier identity.FederatedVerifier
	if cfg.Federated.Enabled() {
		v, err := identity.NewJWTVerifier(appCtx, identity.JWTVerifierConfig{
			Provider:     cfg.Federated.Provider,
			Issuer:       cfg.Federated.Issuer,
			Audience:     cfg.Federated.Audience,
			JWKSURL:      cfg.Federated.JWKSURL,
			PublicKeyPEM: cfg.Federated.PublicKey,
			SharedSecret: cfg.Federated.SharedSecret,
		})
		if err != nil {
			logx.Fatal(err, "Failed to configure federated sign-in")
		}
		verifier = v
	}

	m := metrics.New()

	identityService := identity.NewService(identity.Config{
		JWTSecret: cfg.JWTSecret,
		Issuer:    cfg.Platform.ProjectID,
	}, identity.Deps{
		Accounts:  st.accounts,
		Profiles:  st.profiles,
		Objects:   objects,
		Sessions:  sessions,
		Federated: verifier,
		Recorder:  m,
	})

	// Start the message feed
	feed := chat.NewFeed(st.messages, notifier)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		feed.Run(appCtx)
	}()
	m.ObserveSubscriptions(feed.Active)

	presenter := render.NewPresenter(cfg.DisplayLocation())
	manager := chat.NewManager(appCtx, feed, chat.NewComposer(st.messages, notifier), presenter, m)

	// Setup HTTP server and routes
	router := handler.Router(appCtx, &handler.AppDeps{
		Config:       cfg,
		Identity:     identityService,
		Manager:      manager,
		Presenter:    presenter,
		PoW:          pow.NewPoWManager(appCtx, cfg.PowDifficulty),
		Metrics:      m,
		LocalAvatars: localAvatars,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chatroom server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Feed connections did not close in time")
	}

	cancelApp()
	<-feedDone

	logx.Info("Server gracefully stopped.")
}

func openStores(ctx context.Context, cfg *configs.AppConfig) (stores, error) {
	if cfg.StoreDriver == configs.StoreDriverMemory {
		logx.Warn("Using in-memory store. All data is lost on restart.")
		mem := memstore.New()
		return stores{accounts: mem, profiles: mem, messages: mem, close: func() {}}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}

	return stores{
		accounts: db.NewIdentityRepo(pool),
		profiles: db.NewProfileRepo(pool),
		messages: db.NewMessageRepo(pool),
		close:    pool.Close,
	}, nil
}

func openRedis(ctx context.Context, cfg *configs.AppConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingWait)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
