/*
main.go - Herd engine server entry point

PURPOSE:
  Composition root: loads configuration, builds the logger, opens the
  SQLite store, wires the API and runs the HTTP server with graceful
  shutdown on SIGINT/SIGTERM.

CONFIGURATION:
  See config.Load for the environment variables and their defaults.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/herd-engine/api"
	"github.com/warp/herd-engine/config"
	"github.com/warp/herd-engine/logger"
	"github.com/warp/herd-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load("herd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Logging.Level))
	defer log.Sync()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to open store", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler, cfg.Server.CORSOrigins, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Application.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
	}
	log.Info("server stopped")
}
