package openapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
)

// RegisterRoutes wires OpenAPI routes to the router. OPENAPI_SPEC_PATH
// replaces the generated document with a file.
func RegisterRoutes(router chi.Router, version string) {
	router.Method(http.MethodGet, "/v1/openapi", api.Handler(serveOpenAPIYAML(version)))
	router.Method(http.MethodGet, "/v1/openapi.json", api.Handler(serveOpenAPIJSON(version)))
}

func loadSpec(version string) ([]byte, error) {
	if envPath := os.Getenv("OPENAPI_SPEC_PATH"); envPath != "" {
		if spec, err := os.ReadFile(envPath); err == nil {
			return spec, nil
		}
	}
	return yaml.Marshal(Build(version))
}

func serveOpenAPIYAML(version string) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		spec, err := loadSpec(version)
		if err != nil {
			return apperrors.NewInternalError("Failed to build OpenAPI specification")
		}

		w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
		return nil
	}
}

func serveOpenAPIJSON(version string) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		spec, err := loadSpec(version)
		if err != nil {
			return apperrors.NewInternalError("Failed to build OpenAPI specification")
		}

		// Parse YAML and convert to JSON
		var parsed any
		if err := yaml.Unmarshal(spec, &parsed); err != nil {
			return apperrors.NewInternalError("Failed to parse OpenAPI specification")
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		return api.WriteJSON(w, http.StatusOK, parsed)
	}
}
