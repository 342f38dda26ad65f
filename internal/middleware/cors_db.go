package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/database"
)

// CORSReloader serves CORS through rs/cors with a policy loaded from the
// database and refreshed on an interval, so origin changes take effect
// without a restart. When no config row exists the FRONTEND_URL fallback
// applies.
type CORSReloader struct {
	base     http.Handler
	repo     *database.CorsConfigRepository
	fallback string // e.g. FRONTEND_URL
	log      *zap.Logger
	interval time.Duration
	wrapped  atomic.Pointer[http.Handler]
}

// NewCORSReloader creates a CORS middleware that loads config from the DB and hot-reloads it.
func NewCORSReloader(repo *database.CorsConfigRepository, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next with the CORS handler and performs the initial load.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.base = next
		r.reload(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after
// Middleware() has been applied.
func (r *CORSReloader) Start(ctx context.Context) {
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

// reload builds a fresh rs/cors handler from the current policy and swaps
// it in.
func (r *CORSReloader) reload(ctx context.Context) {
	if r.base == nil {
		return
	}

	opts := r.policy(ctx)
	h := cors.New(opts).Handler(r.base)
	r.wrapped.Store(&h)
}

// policy resolves the CORS options from the database, falling back to the
// configured frontend URL when no row exists or the read fails.
func (r *CORSReloader) policy(ctx context.Context) cors.Options {
	origins := database.AllowedOriginsSlice(r.fallback)
	allowCreds := true
	maxAge := 86400

	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_cors_config_from_db_using_fallback",
			zap.Error(err),
			zap.String("fallback", r.fallback),
		)
	case cfg != nil:
		origins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		allowCreds = cfg.AllowCredentials
		maxAge = cfg.MaxAge
	}

	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	}
}

// ServeHTTP implements http.Handler.
func (r *CORSReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h := r.wrapped.Load(); h != nil {
		(*h).ServeHTTP(w, req)
		return
	}
	if r.base != nil {
		r.base.ServeHTTP(w, req)
	}
}
