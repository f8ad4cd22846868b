package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/underwrite/internal/api"
	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/internal/infrastructure"
	"github.com/JaimeStill/underwrite/pkg/module"
)

// Modules holds the HTTP modules mounted on the router.
type Modules struct {
	API *api.Modules
}

// NewModules builds the public and internal API modules.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModules, err := api.NewModules(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModules}, nil
}

// Mount registers every module with the router.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API.Public)
	router.Mount(m.API.Internal)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		report := infra.Lifecycle.Probe(r.Context())

		status := http.StatusOK
		if !report.Ready {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	})

	router.HandleNative("GET /metrics", infra.Metrics.Handler().ServeHTTP)

	return router
}
