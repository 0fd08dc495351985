package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clubconnect/clubconnect/internal/api"
	"github.com/clubconnect/clubconnect/internal/api/handler"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/core/service"
	"github.com/clubconnect/clubconnect/internal/infrastructure/auth"
	"github.com/clubconnect/clubconnect/internal/infrastructure/auth/supabase"
	mongodb "github.com/clubconnect/clubconnect/internal/infrastructure/db/mongo"
	"github.com/clubconnect/clubconnect/internal/infrastructure/db/postgres"
	redisdb "github.com/clubconnect/clubconnect/internal/infrastructure/db/redis"
	"github.com/clubconnect/clubconnect/internal/infrastructure/queue"
	"github.com/clubconnect/clubconnect/internal/pkg/config"
	"github.com/clubconnect/clubconnect/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
	localTokenTTL   = 24 * time.Hour
)

// @title        ClubConnect session API
// @version      1.0
// @description  Backend-for-frontend that keeps each device's signed-in user and profile in step.
// @BasePath     /
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "clubconnect",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ready := map[string]handler.Pinger{}

	// --- Session store ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	sessions := redisdb.NewSessionStore(rdb, cfg.Session.TTL)

	// --- MongoDB (mongo profile store or local auth) ---
	var mdb *mongo.Database
	if cfg.NeedsMongo() {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			AppName:     "clubconnect",
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		})
		if err != nil {
			return err
		}
		defer func() { _ = mongodb.Disconnect(client, shutdownTimeout) }()
		mdb = db
		ready["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}

	// --- Profile store ---
	var profiles ports.ProfileRepository
	switch cfg.Profiles.Store {
	case config.ProfileStorePostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Profiles.DatabaseURL})
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := postgres.NewProfileRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		profiles = repo
	default:
		profiles = mongodb.NewProfileRepository(mdb)
	}
	ready["profiles"] = profiles.Ping

	// --- Auth provider ---
	provider, verifier, err := newAuth(ctx, cfg, mdb, log)
	if err != nil {
		return err
	}

	// --- Devices ---
	resolver := service.NewProfileResolver(profiles, logger.Component("profiles"))
	registry := service.NewDeviceRegistry(ctx, resolver, sessions, service.RegistryConfig{
		ReconcileTimeout: cfg.Session.ReconcileTimeout,
		IdleTTL:          cfg.Session.DeviceIdleTTL,
	}, logger.Component("devices"))
	registry.StartJanitor(ctx, janitorInterval)
	defer registry.Close()

	revocations := queue.NewDispatcher(0, provider, logger.Component("revocations"))
	revocations.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Provider:         provider,
		Verifier:         verifier,
		Devices:          registry,
		Revoker:          revocations,
		Ready:            ready,
		OAuthRedirectURL: cfg.Auth.OAuthRedirectURL,
		AllowedOrigins:   cfg.AllowedOrigins,
		CookieSecure:     cfg.Session.CookieSecure,
		Log:              logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("auth_provider", cfg.Auth.Provider).Str("profile_store", cfg.Profiles.Store).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	revocations.Wait()
	return nil
}

func newAuth(ctx context.Context, cfg *config.Config, mdb *mongo.Database, log zerolog.Logger) (ports.AuthProvider, *auth.TokenVerifier, error) {
	if cfg.Auth.Provider == config.AuthProviderLocal {
		repo := mongodb.NewAuthRepository(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		provider := service.NewAuthService(repo, cfg.Auth.JWTSecret, localTokenTTL)
		return provider, auth.NewTokenVerifier(cfg.Auth.JWTSecret, nil), nil
	}

	base := strings.TrimRight(cfg.Auth.SupabaseURL, "/")
	provider := supabase.NewClient(base, cfg.Auth.SupabaseAnonKey, nil, logger.Component("supabase"))
	jwks := auth.NewJWKSProvider(base+"/auth/v1/.well-known/jwks.json", nil)
	log.Debug().Bool("hs256_enabled", cfg.Auth.JWTSecret != "").Msg("supabase token verification configured")
	return provider, auth.NewTokenVerifier(cfg.Auth.JWTSecret, jwks), nil
}

