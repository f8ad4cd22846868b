package api

import (
	"github.com/JaimeStill/underwrite/internal/config"
	"github.com/JaimeStill/underwrite/internal/infrastructure"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination  pagination.Config
	Queue       queue.Config
	MaxBodySize int64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Broker:    infra.Broker,
			Metrics:   infra.Metrics,
		},
		Pagination:  cfg.API.Pagination,
		Queue:       cfg.Queue,
		MaxBodySize: cfg.API.MaxBodySizeBytes(),
	}
}
