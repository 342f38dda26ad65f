package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/models"
	"github.com/taskquest/taskquest/internal/request"
)

// defaultRatelimitRate applies when the database holds no rate limit config.
const defaultRatelimitRate = "5-S"

// RateLimitReloader rate-limits requests per client IP using ulule/limiter
// backed by Redis, and hot-reloads the rate from the database so operators
// can change it without a restart.
type RateLimitReloader struct {
	base        http.Handler
	store       limiter.Store
	repo        *database.RatelimitConfigRepository
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
	limited     atomic.Pointer[http.Handler]
}

// NewRateLimitReloader builds the reloader. Returns nil when the Redis
// store cannot be created; callers treat that as a fatal startup error.
func NewRateLimitReloader(redisClient *redis.Client, repo *database.RatelimitConfigRepository, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		log.Error("failed_to_create_redis_store_for_rate_limiter", zap.Error(err))
		return nil
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware wraps next with the rate limiter and performs the initial load.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.base = next
		r.reload(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after
// Middleware() has been applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

// reload resolves the current rate and swaps in a limiter built from it.
// The Redis store is reused; only the limiter instance is rebuilt.
func (r *RateLimitReloader) reload(ctx context.Context) {
	if r.base == nil {
		return
	}

	rate, err := limiter.NewRateFromFormatted(r.resolveRate(ctx))
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		rate, err = limiter.NewRateFromFormatted(r.defaultRate)
		if err != nil {
			r.log.Error("failed_to_parse_default_rate_limit",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
			return
		}
	}

	mw := stdlibmw.NewMiddleware(
		limiter.New(r.store, rate),
		stdlibmw.WithKeyGetter(func(req *http.Request) string {
			return request.ClientIP(req)
		}),
	)
	h := mw.Handler(r.base)
	r.limited.Store(&h)
}

// resolveRate reads the configured rate from the database, seeding the
// default row when none exists yet.
func (r *RateLimitReloader) resolveRate(ctx context.Context) string {
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return r.defaultRate
	}
	if cfg != nil && cfg.Rate != "" {
		return cfg.Rate
	}
	if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("failed_to_save_default_ratelimit_config",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	}
	return r.defaultRate
}

// ServeHTTP implements http.Handler.
func (r *RateLimitReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h := r.limited.Load(); h != nil {
		(*h).ServeHTTP(w, req)
		return
	}
	if r.base != nil {
		r.base.ServeHTTP(w, req)
	}
}
