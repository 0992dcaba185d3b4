package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleet-scheduling-service/internal/api/handlers"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
	"fleet-scheduling-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(repo ports.OrderRepository, planner *services.Planner) http.Handler {
	mux := http.NewServeMux()

	orderHandler := &handlers.OrderHandler{Repo: repo}
	planHandler := &handlers.PlanHandler{Planner: planner}
	tourHandler := &handlers.TourHandler{Planner: planner}
	slotHandler := &handlers.SlotHandler{Planner: planner}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /orders", orderHandler.List)
	mux.HandleFunc("GET /orders/{id}/slots", slotHandler.Suggest)
	mux.HandleFunc("POST /plans", planHandler.Plan)
	mux.HandleFunc("POST /tours/simulate", tourHandler.Simulate)
	mux.HandleFunc("POST /tours/cutoff", tourHandler.Cutoff)
	mux.HandleFunc("POST /tours/presets", tourHandler.Presets)

	return requestIDMiddleware(loggingMiddleware(mux))
}
