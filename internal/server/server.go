package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/auth"
	"github.com/strefethen/fsapi-hub-go/internal/config"
	"github.com/strefethen/fsapi-hub-go/internal/db"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/openapi"
	"github.com/strefethen/fsapi-hub-go/internal/radio"
	"github.com/strefethen/fsapi-hub-go/internal/scheduler"
	"github.com/strefethen/fsapi-hub-go/internal/system"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the stream route upgrade through the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.status).
				Dur("duration", time.Since(start)).
				Str("request_id", api.GetRequestID(r)).
				Msg("request")
		})
	}
}

// Options controls server wiring.
type Options struct {
	Logger zerolog.Logger
	// HTTPClient replaces the device transport, mainly for tests.
	HTTPClient fsapi.Doer
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	logger := options.Logger

	logger.Info().Str("path", cfg.SQLiteDBPath).Msg("using database")
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	client, err := newClient(cfg, options)
	if err != nil {
		_ = dbPair.Close()
		return nil, nil, err
	}

	jobs, err := scheduler.ParseSchedules(cfg.Schedules)
	if err != nil {
		_ = dbPair.Close()
		return nil, nil, fmt.Errorf("schedules: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(api.RequestIDMiddleware)
	router.Use(requestLoggerMiddleware(logger))
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	auditService := audit.NewService(cfg, dbPair, logger)
	audit.RegisterRoutes(router, auditService)
	auditService.StartPruneJob()

	registerHealthRoutes(router, dbPair, auditService, client)
	openapi.RegisterRoutes(router, system.Version)

	hub := radio.NewHub(logger)
	feed := radio.NewFeed(auditService, hub, logger)
	radioRoutes := radio.NewRoutes(client, feed, hub, cfg.NotifyTimeout())

	var watcher *radio.Watcher
	if cfg.WatchEnabled {
		watcher = radio.NewWatcher(client, feed, logger)
		radioRoutes.WithWatcher(watcher)
		watcher.Start(context.Background())
	}
	radio.RegisterRoutes(router, radioRoutes)

	runner := scheduler.NewRunner(logger, client, feed, jobs, 0)
	scheduler.RegisterRoutes(router, runner)
	runner.Start()

	systemService := system.NewService(system.Deps{
		DB:        dbPair.Reader(),
		Device:    client,
		ChangeLog: auditService,
		Stream:    hub,
		Schedules: runner,
		Watching:  watcher != nil,
	}, logger)
	system.RegisterRoutes(router, systemService)

	shutdown := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if watcher != nil {
			watcher.Stop()
		}
		runner.Stop()
		auditService.StopPruneJob()
		hub.Close()

		var errs []error
		if err := client.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close device session: %w", err))
		}
		if err := dbPair.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}

	return router, shutdown, nil
}

func newClient(cfg config.Config, options Options) (*fsapi.Client, error) {
	opts := fsapi.Options{
		DeviceURL:       cfg.Device.URL,
		PIN:             cfg.Device.PIN,
		Timeout:         cfg.Device.Timeout(),
		HTTPClient:      options.HTTPClient,
		Logger:          options.Logger,
		ResolveEndpoint: cfg.Device.ResolveEndpoint,
		ListPageSize:    cfg.Device.ListPageSize,
		MaxListPages:    cfg.Device.MaxListPages,
		SetSettle:       cfg.Device.SetSettle(),
		SlowSetSettle:   cfg.Device.SlowSetSettle(),
	}
	if !opts.ResolveEndpoint {
		// The session is created on first use.
		return fsapi.NewClient(opts)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Device.Timeout())
	defer cancel()
	return fsapi.Create(ctx, opts)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func registerHealthRoutes(router chi.Router, dbPair *db.DBPair, changeLog *audit.Service, client *fsapi.Client) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "fsapi-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		status, body := readiness(r.Context(), dbPair.Reader(), changeLog, client)
		return api.WriteJSON(w, status, body)
	}))
}

// readiness is about the hub itself. An idle or expired device session is
// still ready because the next call re-authenticates.
func readiness(ctx context.Context, reader pinger, changeLog *audit.Service, client *fsapi.Client) (int, map[string]any) {
	checks := map[string]any{
		"sqlite":         "ok",
		"change_log":     "ok",
		"device_session": client.State().String(),
	}
	ready := true
	if err := reader.PingContext(ctx); err != nil {
		checks["sqlite"] = err.Error()
		ready = false
	}
	if !changeLog.IsHealthy() {
		checks["change_log"] = "failing"
		ready = false
	}
	if !ready {
		return http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": checks}
	}
	return http.StatusOK, map[string]any{"status": "ready", "checks": checks}
}
