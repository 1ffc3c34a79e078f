package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	redisad "estate_api/internal/adapters/redis"
	"estate_api/internal/app"
	"estate_api/internal/domain"
	"estate_api/internal/storage/sqlstore"
)

// stack bundles what every subcommand needs.
type stack struct {
	db    *sql.DB
	repo  *sqlstore.Repo
	svc   *app.Services
	close []func() error
}

// openStack opens and migrates the database. Redis is optional and only
// used so imports invalidate what the API has cached.
func openStack(ctx context.Context, v *viper.Viper) (*stack, error) {
	db, d, err := sqlstore.Open(v.GetString(keyDBDriver), v.GetString(keyDBDSN))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	rt := &stack{db: db, close: []func() error{db.Close}}
	if err := db.PingContext(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db, d); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rt.repo = sqlstore.New(db, d)

	var cache domain.Cache = redisad.Nop{}
	if addr := v.GetString(keyRedisAddr); addr != "" {
		rc := redisad.New(addr, v.GetString(keyRedisPass), v.GetInt(keyRedisDB))
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable; cache not invalidated")
			_ = rc.Close()
		} else {
			rt.close = append(rt.close, rc.Close)
			cache = rc
		}
	}

	rt.svc = app.NewServices(rt.repo, cache, nil, nil, app.Options{CacheTTL: cacheTTL(v)})
	return rt, nil
}

func (rt *stack) Close() error {
	var first error
	for i := len(rt.close) - 1; i >= 0; i-- {
		if err := rt.close[i](); err != nil && first == nil {
			first = err
		}
	}
	rt.close = nil
	return first
}
