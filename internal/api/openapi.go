package api

import (
	"maps"

	"github.com/JaimeStill/underwrite/internal/applications"
	"github.com/JaimeStill/underwrite/internal/audit"
	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/pkg/openapi"
	"github.com/JaimeStill/underwrite/pkg/routes"
)

// buildSpec describes the documented public routes, served relative to the API base path.
func buildSpec(cfg *config.Config, groups ...routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	schemas := applications.Schemas()
	maps.Copy(schemas, audit.Schemas())
	maps.Copy(schemas, queue.Schemas())
	spec.Components.AddSchemas(schemas)

	routes.Describe(spec, groups...)

	return openapi.MarshalJSON(spec)
}
