// Package server exposes the planner over a JSON HTTP API.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dpup/trailplanner/server/internal/lib/itinerary"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/lib/stages"
	"github.com/dpup/trailplanner/server/internal/logging"
	"github.com/dpup/trailplanner/server/internal/services"
	"github.com/dpup/trailplanner/server/internal/store"
)

// Planner is the subset of services.PlannerService the handlers use
type Planner interface {
	Create(ctx context.Context, name string) (services.ItineraryView, error)
	Get(ctx context.Context, id string) (services.ItineraryView, error)
	Delete(ctx context.Context, id string) error
	Append(ctx context.Context, id, accommodationID string) (services.ItineraryView, error)
	Remove(ctx context.Context, id, waypointID string) (services.ItineraryView, error)
	Move(ctx context.Context, id, waypointID string, dir itinerary.Direction) (services.ItineraryView, error)
	Clear(ctx context.Context, id string) (services.ItineraryView, error)
	Export(ctx context.Context, id string, format itinerary.Format, w io.Writer) error
	Save(ctx context.Context, id string) (store.Plan, error)
	Load(ctx context.Context, planID string) (services.ItineraryView, error)
	Plans(ctx context.Context) ([]store.Plan, error)
	DeletePlan(ctx context.Context, planID string) error
	StageGroups(ctx context.Context) ([]stages.StageGroup, error)
	Accommodations(ctx context.Context, q services.AccommodationQuery) ([]routing.Match, error)
	SessionCount() int
}

var _ Planner = (*services.PlannerService)(nil)

// Handler serves the planner API
type Handler struct {
	planner Planner
}

// New builds the router. Every request context carries logger tagged with the
// request id.
func New(planner Planner, corsOrigins []string, logger *zap.SugaredLogger) http.Handler {
	h := &Handler{planner: planner}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", homepageHandler)
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stages", h.ListStages)
		r.Get("/accommodations", h.ListAccommodations)

		r.Post("/itineraries", h.CreateItinerary)
		r.Route("/itineraries/{id}", func(r chi.Router) {
			r.Get("/", h.GetItinerary)
			r.Delete("/", h.DeleteItinerary)
			r.Post("/waypoints", h.AppendWaypoint)
			r.Delete("/waypoints", h.ClearWaypoints)
			r.Delete("/waypoints/{wid}", h.RemoveWaypoint)
			r.Post("/waypoints/{wid}/move", h.MoveWaypoint)
			r.Get("/export", h.ExportItinerary)
			r.Post("/save", h.SaveItinerary)
		})

		r.Get("/plans", h.ListPlans)
		r.Post("/plans/{planID}/load", h.LoadPlan)
		r.Delete("/plans/{planID}", h.DeletePlan)
	})

	return r
}

func requestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logging.With(r.Context(), logger.With("request_id", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			logging.Infow(ctx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String())
		})
	}
}
