package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/auth"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/seed"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	kv, dbh, ping, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("store open failed", "driver", cfg.StoreDriver, "error", err)
	}
	if dbh != nil {
		defer dbh.Close()
	}

	quizzes := quiz.NewStore(kv, log)
	attempts := quiz.NewAttemptStore(kv, log)
	dir := auth.NewDirectory(kv)

	var events *syncx.EventRepo
	if dbh != nil {
		events = syncx.NewEventRepo(dbh, "")
	}

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, dir, quizzes, log); err != nil {
			log.Fatal("demo seed failed", "error", err)
		}
	}

	registry := session.NewRegistry(cfg.SessionTTL, log)
	go registry.Run(ctx, time.Minute)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Auth:      authmw.NewAuthService(cfg.AuthHMACSecret),
		Directory: dir,
		GuestAuth: cfg.EnableGuestAuth,
		Quizzes:   quizzes,
		Attempts:  attempts,
		Registry:  registry,
		Events:    events,
		Log:       log,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			log.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
}

// openStore builds the KV backend named by STORE_DRIVER. The *sql.DB is
// returned for SQL backends so the event log can share it.
func openStore(ctx context.Context, cfg config.Config) (storage.KV, *sql.DB, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.StoreDriver {
	case "memory":
		return storage.NewMemoryStore(), nil, noop, nil

	case "fs":
		s, err := storage.NewFSStore(cfg.StorePath)
		return s, nil, noop, err

	case "sqlite", "postgres":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dbh, err := db.Open(openCtx, db.Driver(cfg.StoreDriver), cfg.StoreDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return storage.NewSQLStore(dbh), dbh, dbh.PingContext, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		if err := ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return storage.NewRedisStore(client, cfg.RedisPrefix), nil, ping, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
