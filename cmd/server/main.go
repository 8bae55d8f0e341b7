package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"urlshort/internal/config"
	"urlshort/internal/handler"
	"urlshort/internal/logger"
	"urlshort/internal/repository"
	"urlshort/internal/service"
)

func main() {
	logger.Initialize()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file loaded")
	}

	cfg := config.MustLoad()
	if cfg.Database.DSN == "" {
		log.Fatal().Msg("SHORTURL_DATABASE_DSN not set")
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db ping")
	}

	repo := repository.NewRepo(db)
	if err := repo.Migrate(cfg.Database.Migrations); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	// Redis optional
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed, continuing without cache")
			rdb = nil
		} else {
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	links := service.NewLinks(repo)
	users := service.NewUsers(repo, rdb)
	h := handler.NewHandler(links, users, cfg.Server.BaseURL)

	r := h.Routes()

	// CORS
	allowed := handlers.AllowedOrigins(cfg.CORS.AllowedOrigins)
	allowedHeaders := handlers.AllowedHeaders([]string{"Content-Type", handler.APIKeyHeader})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handlers.CORS(allowed, allowedHeaders, allowedMethods)(r),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	_ = db.Close()
	log.Info().Msg("server gracefully stopped")
}
