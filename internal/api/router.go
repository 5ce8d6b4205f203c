package api

import (
	"context"
	"net/http"

	"stop-sequencing-service/internal/api/handlers"
	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
	"stop-sequencing-service/internal/services"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Stops      ports.StopRepository
	Positions  ports.PositionRecorder
	Planner    *services.RoutePlanner
	Sequencing config.Sequencing
	Metrics    *obs.Metrics
	// Ping checks storage readiness for /health; optional.
	Ping       func(ctx context.Context) error
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Ping: deps.Ping}
	stopHandler := &handlers.StopHandler{Repo: deps.Stops}
	positionHandler := &handlers.PositionHandler{Recorder: deps.Positions}
	routeHandler := &handlers.RouteHandler{
		Planner:    deps.Planner,
		Sequencing: deps.Sequencing,
		Metrics:    deps.Metrics,
	}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.Handle("/metrics", deps.Metrics.Handler())
	mux.HandleFunc("/routes/sequence", routeHandler.Sequence)
	mux.HandleFunc("/routes/optimize", routeHandler.Optimize)
	mux.HandleFunc("/drivers/{id}/stops", stopHandler.List)
	mux.HandleFunc("/drivers/{id}/route", routeHandler.PlanDriver)
	if deps.Positions != nil {
		mux.HandleFunc("/drivers/{id}/position", positionHandler.Record)
	}

	// The logger runs inside the request id middleware so its lines carry the id.
	return requestIDMiddleware(loggingMiddleware(mux))
}
