package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/services/metrics"
)

const healthTimeout = 800 * time.Millisecond

func (s *server) healthz(ctx echo.Context) error {
	if s.opts.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthTimeout)
		defer cancel()

		start := time.Now()
		err := s.opts.DB.PingContext(pingCtx)
		metrics.ObserveDBPing(time.Since(start))
		if err != nil {
			return core.NewStorageError(err, "pinging database")
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.opts.Conf.Build})
}
