// cmd/server is the application entry point. It wires together all
// layers and starts the HTTP server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/johnamet/faithvibe/internal/auth"
	"github.com/johnamet/faithvibe/internal/cache"
	"github.com/johnamet/faithvibe/internal/config"
	"github.com/johnamet/faithvibe/internal/database"
	"github.com/johnamet/faithvibe/internal/handler"
	"github.com/johnamet/faithvibe/internal/logging"
	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/repository"
	"github.com/johnamet/faithvibe/internal/service"
	"github.com/johnamet/faithvibe/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	st := store.NewPostgres(pool)

	mutations := service.NewMutationService(st, log)
	gate := service.NewGate(st, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	if cfg.AdminSeed != "" {
		if err := seedAdmin(ctx, st, cfg.AdminSeed); err != nil {
			log.Error("admin seed failed", "uid", cfg.AdminSeed, "error", err)
			os.Exit(1)
		}
		log.Info("admin seeded", "uid", cfg.AdminSeed)
	}

	h := handler.New(
		mutations,
		gate,
		repository.NewEventRepository(pool),
		repository.NewProductRepository(pool),
		repository.NewOrderRepository(pool),
		repository.NewPrayerRepository(pool),
		repository.NewDevotionalRepository(pool),
		repository.NewUserRepository(pool),
		log,
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)
	r.Use(middleware.Authenticate(tokens))
	r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Handler)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, response cache disabled", "error", err)
		} else {
			responseCache := cache.New(rdb, cfg.CacheTTL, log)
			go responseCache.RunInvalidator(ctx, st)
			r.Use(responseCache.Handler)
			log.Info("response cache enabled", "addr", cfg.RedisAddr)
		}
	}

	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// seedAdmin grants the admin role to the configured UID so a fresh
// deployment has at least one administrator.
func seedAdmin(ctx context.Context, st store.Store, uid string) error {
	tx, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	role, err := tx.Role(ctx, uid)
	if errors.Is(err, store.ErrNotExist) {
		role = &model.UserRole{UserID: uid}
	} else if err != nil {
		return err
	}
	role.IsAdmin = true
	if err := tx.PutRole(ctx, role); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
