package api

import (
	"github.com/JaimeStill/underwrite/internal/applications"
	"github.com/JaimeStill/underwrite/internal/audit"
	"github.com/JaimeStill/underwrite/internal/decisions"
	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/internal/scoring"
	"github.com/JaimeStill/underwrite/internal/similar"
	"github.com/JaimeStill/underwrite/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Applications applications.System
	Audit        audit.System
	Decisions    decisions.System
	Queue        queue.System
	Scoring      scoring.System
	Similar      similar.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	auditSystem := audit.New(db, runtime.Storage, runtime.Logger)
	queueSystem := queue.New(db, &runtime.Queue, runtime.Metrics, runtime.Logger)
	scoringSystem := scoring.New(db, runtime.Logger)
	decisionsSystem := decisions.New(db, runtime.Logger)
	similarSystem := similar.New(db, runtime.Logger)

	applicationsSystem := applications.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		runtime.Metrics,
		runtime.Broker,
		auditSystem,
		queueSystem,
		scoringSystem,
		decisionsSystem,
		similarSystem,
	)

	return &Domain{
		Applications: applicationsSystem,
		Audit:        auditSystem,
		Decisions:    decisionsSystem,
		Queue:        queueSystem,
		Scoring:      scoringSystem,
		Similar:      similarSystem,
	}
}

// Start registers background domain work with the lifecycle coordinator.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	return d.Queue.Start(lc)
}
