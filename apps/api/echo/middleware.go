package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/services/ratelimit"
)

// roleMiddleware lets through requesters holding one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc   { return roleMiddleware(core.RoleAdmin) }
func studentMiddleware() echo.MiddlewareFunc { return roleMiddleware(core.RoleStudent) }

// rateLimitMiddleware counts requests per client IP under scope.
func rateLimitMiddleware(limiter ratelimit.Limiter, scope string, limit int, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			key := scope + ":" + ctx.RealIP()
			if !limiter.Allow(ctx.Request().Context(), key, limit, conf.Server.LoginRateWindow) {
				return errTooManyAttempts
			}
			return next(ctx)
		}
	}
}
