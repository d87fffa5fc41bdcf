package scheduler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/auth"
)

// RegisterRoutes wires scheduler routes to the router.
func RegisterRoutes(router chi.Router, runner *Runner) {
	router.Method(http.MethodGet, "/v1/radio/schedules", api.Handler(listSchedules(runner)))
	router.Method(http.MethodPost, "/v1/radio/schedules/{name}/run", auth.RequireControl(api.Handler(runSchedule(runner))))
}

// GET /v1/radio/schedules
func listSchedules(runner *Runner) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteList(w, "/v1/radio/schedules", runner.Jobs(), false)
	}
}

// POST /v1/radio/schedules/{name}/run
func runSchedule(runner *Runner) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		name := chi.URLParam(r, "name")

		result, err := runner.Run(r.Context(), name)
		if errors.Is(err, ErrJobNotFound) {
			return apperrors.NewNotFoundResource("Schedule", name)
		}
		if err != nil {
			return err
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object": "schedule_run",
			"result": result,
		})
	}
}
