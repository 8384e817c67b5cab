package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/services/metrics"
)

// principalMiddleware turns the JWT claims into the identity.Principal of the request. It runs after the JWT middleware.
func principalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			p, err := claims.Principal()
			if err != nil {
				return err
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// roleMiddleware only lets callers holding one of roles through.
func roleMiddleware(roles ...identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p := getPrincipal(ctx)
			for _, role := range roles {
				if p.Role == role {
					return next(ctx)
				}
			}
			return core.ErrUnauthorized
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(identity.RoleAdmin)
}

// metricsMiddleware counts requests by route template, so that ids do not explode the label space.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err) // writes the status code
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
