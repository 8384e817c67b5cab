package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	dig_container "github.com/trezcool/appel/apps/api/di/dig"
	echoapi "github.com/trezcool/appel/apps/api/echo"
	"github.com/trezcool/appel/core"
	logsvc "github.com/trezcool/appel/services/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	c := dig_container.New()

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		sink *logsvc.ZapLogger,
		db *sqlx.DB,
		shutdown dig_container.Shutdown,
		server echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info("application initializing", map[string]interface{}{"env": conf.Env, "build": conf.Build})
		defer sink.Sync()
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		defer logger.Info("application stopped")

		// =========================================================================
		// Start API Service

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("api listening", map[string]interface{}{"address": conf.Server.Address})
			serverErrors <- server.Start()
		}()

		// =========================================================================
		// Shutdown

		osSignals := make(chan os.Signal, 1)
		signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", err)
			}
			return

		case sig := <-osSignals:
			logger.Info("start shutdown", map[string]interface{}{"signal": sig.String()})

		case <-shutdown:
			logger.Warn("start shutdown: integrity issue")
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)
		}
	})
	if err != nil {
		log.Fatal(errors.Wrap(err, "starting api"))
	}
}
