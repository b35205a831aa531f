package middleware

import (
	"fmt"
	"net/http"

	"github.com/freightdesk/logistics-backend/api/responses"
	"github.com/freightdesk/logistics-backend/pkg/config"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/redis"
)

// APIRateLimit caps authenticated traffic per user over a fixed window.
// Must run after Auth so the user id is already in the context.
func APIRateLimit(cfg config.APIRateLimitConfig, limiter redis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.UserLimit <= 0 || cfg.Window <= 0 || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			scope := fmt.Sprintf("api:user:%s", userID)
			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(cfg.UserLimit), cfg.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"requests":       count,
						"limit":          cfg.UserLimit,
						"window_seconds": int(cfg.Window.Seconds()),
					})
					logg.Warn(logCtx, "api.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "daily request limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
