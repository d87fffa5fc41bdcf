package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/strefethen/fsapi-hub-go/internal/config"
	"github.com/strefethen/fsapi-hub-go/internal/logging"
	"github.com/strefethen/fsapi-hub-go/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New("fsapi-hub", cfg.LogLevel, cfg.LogFormat)

	if cfg.Device.URL == "" {
		logger.Fatal().Msg("FSAPI_DEVICE_URL is required")
	}
	if !cfg.AuthEnabled() {
		logger.Warn().Msg("JWT_SECRET is not set, every client may control the device")
	}

	handler, shutdownHandler, err := server.NewHandler(cfg, server.Options{Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("server init error")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Fatal().Err(err).Msg("listen error")
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	logger.Info().Str("addr", cfg.Addr()).Str("device", cfg.Device.URL).Msg("fsapi-hub listening")
	if err := serve(srv, ln, shutdownHandler, shutdownCh, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("fsapi-hub stopped")
}

// serve runs srv on ln until a signal arrives. It returns only after the
// server has drained and cleanup has finished.
func serve(srv *http.Server, ln net.Listener, cleanup func(context.Context) error, signals <-chan os.Signal, logger zerolog.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-signals
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
		if err := cleanup(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		if cerr := cleanup(context.Background()); cerr != nil {
			logger.Error().Err(cerr).Msg("shutdown error")
		}
		return err
	}
	<-done
	return nil
}
