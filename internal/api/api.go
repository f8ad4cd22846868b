// Package api assembles the public and internal HTTP modules over one shared set
// of domain systems.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/internal/infrastructure"
	"github.com/JaimeStill/underwrite/pkg/middleware"
	"github.com/JaimeStill/underwrite/pkg/module"
)

// Modules holds the mounted API modules and the domain they serve.
type Modules struct {
	Public   *module.Module
	Internal *module.Module
	Domain   *Domain
}

// NewModules creates the public module at the API base path and the internal
// module serving subsystem callbacks.
func NewModules(cfg *config.Config, infra *infrastructure.Infrastructure) (*Modules, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	publicMux := http.NewServeMux()
	if err := registerRoutes(publicMux, cfg, domain, runtime); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	public := module.New(cfg.API.BasePath, publicMux)
	public.Use(middleware.RequestID())
	public.Use(middleware.Logger(runtime.Logger))
	public.Use(runtime.Metrics.Middleware())
	public.Use(middleware.CORS(&cfg.API.CORS))
	public.Use(middleware.RateLimit(&cfg.API.RateLimit, runtime.Logger))
	public.Use(middleware.MaxBody(runtime.MaxBodySize))

	internalMux := http.NewServeMux()
	registerInternalRoutes(internalMux, domain)

	internal := module.New(cfg.API.InternalPath, internalMux)
	internal.Use(middleware.RequestID())
	internal.Use(middleware.Logger(runtime.Logger.With("actor", "internal")))
	internal.Use(runtime.Metrics.Middleware())
	internal.Use(middleware.MaxBody(runtime.MaxBodySize))

	return &Modules{
		Public:   public,
		Internal: internal,
		Domain:   domain,
	}, nil
}
