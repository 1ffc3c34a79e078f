package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	server "estate_api/internal/adapters/http_server"
	"estate_api/internal/adapters/imagekit"
	"estate_api/internal/adapters/observability"
	redisad "estate_api/internal/adapters/redis"
	"estate_api/internal/adapters/token"
	"estate_api/internal/app"
	"estate_api/internal/domain"
	"estate_api/internal/shared"
	"estate_api/internal/storage/sqlstore"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, dialect, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	log.Info().Str("driver", dialect.Name()).Msg("database connection ok")
	repo := sqlstore.New(db, dialect)

	reg := observability.InitRegistry(collectors.NewDBStatsCollector(db, dialect.Name()))
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	var cache domain.Cache = redisad.Nop{}
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; caching disabled")
			_ = rc.Close()
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	jwt, err := token.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt setup failed")
	}

	var media domain.MediaStore
	if cfg.ImageKitPrivateKey != "" {
		ik, err := imagekit.New(imagekit.Options{
			PrivateKey:  cfg.ImageKitPrivateKey,
			Folder:      cfg.ImageKitFolder,
			URLEndpoint: cfg.ImageKitURLEndpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("imagekit setup failed")
		}
		media = ik
	}

	svc := app.NewServices(repo, cache, jwt, media, app.Options{CacheTTL: cfg.CacheTTL})

	// http
	srv := server.New(server.Options{Timeout: cfg.RequestTimeout, CORSOrigin: cfg.CORSOrigin})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Services: svc,
		Limiter:  server.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Ready:    func(r *http.Request) error { return repo.Ping(r.Context()) },
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
