package audit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
)

// RegisterRoutes wires change log routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/radio/changes", api.Handler(queryChanges(service)))
	router.Method(http.MethodGet, "/v1/radio/changes/{change_id}", api.Handler(getChange(service)))
}

// queryChanges lists recorded changes, newest first.
// GET /v1/radio/changes
func queryChanges(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		filters, err := parseQueryFilters(r)
		if err != nil {
			return err
		}

		changes, _, hasMore, err := service.Query(filters)
		if err != nil {
			return apperrors.NewInternalError("Failed to query changes")
		}

		formatted := make([]map[string]any, 0, len(changes))
		for i := range changes {
			formatted = append(formatted, formatChange(&changes[i]))
		}
		return api.WriteList(w, "/v1/radio/changes", formatted, hasMore)
	}
}

// getChange retrieves a single change.
// GET /v1/radio/changes/{change_id}
func getChange(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		changeID := chi.URLParam(r, "change_id")

		change, err := service.Get(changeID)
		if err != nil {
			var notFound *ChangeNotFoundError
			if errors.As(err, &notFound) {
				return apperrors.NewNotFoundResource("Change", changeID)
			}
			return apperrors.NewInternalError("Failed to get change")
		}

		return api.WriteResource(w, http.StatusOK, formatChange(change))
	}
}

func parseQueryFilters(r *http.Request) (ChangeQueryFilters, error) {
	filters := ChangeQueryFilters{Limit: DefaultQueryLimit}
	query := r.URL.Query()

	if node := query.Get("node"); node != "" {
		filters.Node = &node
	}
	if raw := query.Get("source"); raw != "" {
		source, ok := ParseSource(raw)
		if !ok {
			return filters, apperrors.NewValidationError("invalid source", map[string]any{
				"source":        raw,
				"valid_sources": []Source{SourceNotify, SourceSet, SourceSchedule},
			})
		}
		filters.Source = &source
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filters.StartDate}, {"to", &filters.EndDate}} {
		raw := query.Get(bound.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, apperrors.NewValidationError("invalid '"+bound.name+"' datetime format, expected RFC 3339", map[string]any{bound.name: raw})
		}
		*bound.dst = &parsed
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxQueryLimit {
			return filters, apperrors.NewValidationError("invalid limit, must be between 1 and 1000", map[string]any{
				"limit": limitStr,
			})
		}
		filters.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filters, apperrors.NewValidationError("invalid offset, must be >= 0", map[string]any{
				"offset": offsetStr,
			})
		}
		filters.Offset = offset
	}

	return filters, nil
}

func formatChange(change *Change) map[string]any {
	result := map[string]any{
		"object":    "change",
		"id":        change.ChangeID,
		"timestamp": change.Timestamp.UTC().Format(time.RFC3339Nano),
		"node":      change.Node,
		"value":     change.Value,
		"kind":      change.Kind,
		"source":    string(change.Source),
		"status":    string(change.Status),
	}
	if change.Operation != nil {
		result["operation"] = *change.Operation
	}
	if change.Label != nil {
		result["label"] = *change.Label
	}
	if change.Message != nil {
		result["message"] = *change.Message
	}
	return result
}
