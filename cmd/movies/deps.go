package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/movie-catalog/internal/config"
	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// deps holds the clients shared by every command.
type deps struct {
	cfg       *config.Config
	redis     *redis.Client
	client    *catalog.Client
	probe     connectivity.Probe
	favorites *favorites.Service
}

func newDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{cfg: cfg}

	var cmdable redis.Cmdable
	if opts := cfg.RedisOptions(); opts != nil {
		d.redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.redis.Ping(pingCtx).Err(); err != nil {
			d.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		cmdable = d.redis
	}

	client, err := catalog.New(cfg.CatalogClientConfig(cmdable))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.client = client

	if mc, ok := cfg.MonitorConfig(); ok {
		m := connectivity.NewMonitor(mc)
		m.Start(ctx)
		d.probe = m
	} else {
		d.probe = connectivity.NewStatic(true)
	}

	var store favorites.Store
	if cmdable != nil {
		store = favorites.NewRedisStore(cmdable, cfg.Redis.FavoritesKey)
	} else {
		log.Debug().Msg("No redis configured - favorites are kept in memory")
		store = favorites.NewMemoryStore()
	}
	d.favorites = favorites.NewService(store)

	return d, nil
}

// Close releases the clients.
func (d *deps) Close() {
	if d.client != nil {
		d.client.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
}

func loadDeps(ctx context.Context) (*deps, error) {
	return newDeps(ctx, cfgManager.Get())
}
