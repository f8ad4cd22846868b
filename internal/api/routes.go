package api

import (
	"net/http"

	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/pkg/openapi"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, cfg *config.Config, domain *Domain, runtime *Runtime) error {
	groups := []routes.Group{
		domain.Applications.Handler().Routes(),
		domain.Audit.Handler().Routes(),
		domain.Queue.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	}

	spec, err := buildSpec(cfg, groups...)
	if err != nil {
		return err
	}

	routes.Register(mux, groups...)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
	return nil
}

func registerInternalRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Applications.Handler().InternalRoutes(),
		domain.Queue.Handler().InternalRoutes(),
		domain.Scoring.Handler().InternalRoutes(),
	)
}
