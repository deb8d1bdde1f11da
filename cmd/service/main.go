package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tastingroom/internal/session"
	"tastingroom/internal/tasting"
)

func main() {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("tasting-service: pg: %v", err)
	}
	defer pool.Close()

	if err := tasting.AutoMigrate(ctx, pool); err != nil {
		log.Fatalf("tasting-service: migrate: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("tasting-service: invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	tastingSrv := tasting.NewServer(pool, rdb)

	hub := session.NewHub()
	loader := tasting.NewSessionLoader(pool)
	sessionSrv := session.NewServer(hub, rdb, loader, ctx)

	go hub.Run()
	go sessionSrv.RunRedisSubscriber()

	base := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		requestLogMiddleware,
		middleware.Recoverer,
		corsMiddleware,
		bodySizeLimitMiddleware(cfg.MaxBodyBytes),
	}

	r := chi.NewRouter()
	r.Use(base...)

	// Editor routes require a host token; session playback and websocket
	// routes are open to participants.
	r.Mount("/", tastingSrv.Router(jwtAuthMiddleware(cfg.JWTSecret)))
	r.Mount("/live", sessionSrv.Router())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("tasting-service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("tasting-service: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("tasting-service: shutdown: %v", err)
	}
}
