// Package server wires the storefront service from environment configuration.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulseritas/storefront/internal/auth"
	"github.com/pulseritas/storefront/internal/blob/fsblob"
	catalogsqlite "github.com/pulseritas/storefront/internal/catalog/storage/sqlite"
	"github.com/pulseritas/storefront/internal/pagecache"
	cachememdb "github.com/pulseritas/storefront/internal/pagecache/memdb"
	"github.com/pulseritas/storefront/internal/pagecache/sqlitekv"
	"github.com/pulseritas/storefront/internal/platform/config"
	"github.com/pulseritas/storefront/internal/platform/otel"
	"github.com/pulseritas/storefront/internal/web"
)

// Config holds the storefront server configuration.
type Config struct {
	HTTPAddr      string        `env:"PULSERITAS_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath        string        `env:"PULSERITAS_DB_PATH" envDefault:"data/catalog.db"`
	CacheBackend  string        `env:"PULSERITAS_CACHE_BACKEND" envDefault:"sqlite"`
	CacheDBPath   string        `env:"PULSERITAS_CACHE_DB_PATH" envDefault:"data/pagecache.db"`
	CacheTTL      time.Duration `env:"PULSERITAS_CACHE_TTL"`
	SweepInterval time.Duration `env:"PULSERITAS_SWEEP_INTERVAL" envDefault:"1h"`
	ImagesDir     string        `env:"PULSERITAS_IMAGES_DIR" envDefault:"data/images"`
	ImagesBaseURL string        `env:"PULSERITAS_IMAGES_BASE_URL" envDefault:"http://localhost:8080/images"`
	SessionSecret string        `env:"PULSERITAS_SESSION_SECRET,required"`
	SessionIssuer string        `env:"PULSERITAS_SESSION_ISSUER" envDefault:"pulseritas"`
	SessionTTL    time.Duration `env:"PULSERITAS_SESSION_TTL"`
	AdminUserID   string        `env:"PULSERITAS_ADMIN_USER_ID" envDefault:"admin"`
	AdminEmail    string        `env:"PULSERITAS_ADMIN_EMAIL,required"`
	AdminPassHash string        `env:"PULSERITAS_ADMIN_PASSWORD_HASH,required"`
}

// LoadConfig reads the server configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the storefront service and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "pulseritas-storefront")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	items, err := catalogsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer func() {
		if err := items.Close(); err != nil {
			log.Printf("close catalog store: %v", err)
		}
	}()

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	blobs, err := fsblob.New(cfg.ImagesDir, cfg.ImagesBaseURL)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}

	sessions, err := auth.NewSessions(auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		Issuer: cfg.SessionIssuer,
		TTL:    cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}
	credentials, err := auth.NewCredentials(cfg.AdminUserID, cfg.AdminEmail, cfg.AdminPassHash)
	if err != nil {
		return fmt.Errorf("init admin credentials: %w", err)
	}

	httpServer, err := web.NewServer(web.Config{
		HTTPAddr:    cfg.HTTPAddr,
		Sessions:    sessions,
		Credentials: credentials,
		Items:       items,
		Blobs:       blobs,
		Cache:       cache,
		ImagesDir:   blobs.Root(),
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return httpServer.ListenAndServe(ctx)
	})
	group.Go(func() error {
		sweepLoop(ctx, cache, cfg.SweepInterval)
		return nil
	})
	return group.Wait()
}

// openCache builds the page cache over the configured backend.
func openCache(cfg Config) (*pagecache.Cache, func(), error) {
	var opts []pagecache.Option
	if cfg.CacheTTL > 0 {
		opts = append(opts, pagecache.WithTTL(cfg.CacheTTL))
	}

	switch cfg.CacheBackend {
	case "sqlite":
		kv, err := sqlitekv.Open(cfg.CacheDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open page cache store: %w", err)
		}
		closeKV := func() {
			if err := kv.Close(); err != nil {
				log.Printf("close page cache store: %v", err)
			}
		}
		return pagecache.New(kv, opts...), closeKV, nil
	case "memory":
		kv, err := cachememdb.New()
		if err != nil {
			return nil, nil, fmt.Errorf("open page cache store: %w", err)
		}
		return pagecache.New(kv, opts...), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// sweepLoop evicts expired cache pages on a timer until the context ends.
func sweepLoop(ctx context.Context, cache *pagecache.Cache, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.SweepExpired(ctx)
		}
	}
}
