package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"appointment-management-api/internal/auth"
	"appointment-management-api/internal/blob"
	"appointment-management-api/internal/config"
	"appointment-management-api/internal/handler"
	"appointment-management-api/internal/middleware"
	"appointment-management-api/internal/query"
	"appointment-management-api/internal/realtime"
	"appointment-management-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}

	ctx := context.Background()

	// database
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("db ping")
	}
	log.Info("connected to postgres")

	// run migrations
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		log.WithError(err).Warn("migration file not found, skipping")
	} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
		log.WithError(err).Warn("migration")
	} else {
		log.Info("migration applied")
	}

	st := store.New(pool)
	engine := query.NewEngine(st, cfg.Listing.PageSize)
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	hub := realtime.NewHub()
	listener := realtime.NewListener(pool, hub)
	listenCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	go func() {
		if err := listener.Run(listenCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("notification listener stopped")
		}
	}()

	var blobs blob.Uploader
	if cfg.Storage.SupabaseURL != "" {
		blobs, err = blob.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.AudioBucket)
		if err != nil {
			log.WithError(err).Fatal("blob store")
		}
		log.WithField("bucket", cfg.Storage.AudioBucket).Info("audio storage enabled")
	} else {
		log.Warn("SUPABASE_URL not set, audio attachments disabled")
	}

	h := handler.New(st, engine, tokens, hub, blobs, cfg.Auth.RefreshTokenTTL, cfg.Listing.SearchQuiet)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS(cfg.CORS.AllowedOrigins))

	rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	h.Register(router, rl)

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info("shutting down")

	stopListener()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
