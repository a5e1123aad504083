package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/itinerary"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/logging"
	"github.com/dpup/trailplanner/server/internal/services"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type createItineraryRequest struct {
	Name string `json:"name"`
}

type appendWaypointRequest struct {
	AccommodationID string `json:"accommodation_id"`
}

type moveWaypointRequest struct {
	Direction string `json:"direction"`
}

// ListAccommodationsResponse is the body of GET /api/v1/accommodations
type ListAccommodationsResponse struct {
	Accommodations []routing.Match `json:"accommodations"`
	Count          int             `json:"count"`
}

// Health handles GET /healthz. It fails when no trail snapshot can be loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.planner.StageGroups(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"trail":     "unavailable",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"trail":     "loaded",
		"sessions":  h.planner.SessionCount(),
		"timestamp": time.Now().UTC(),
	})
}

// ListStages handles GET /api/v1/stages
func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	groups, err := h.planner.StageGroups(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to load stages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stages": groups})
}

// ListAccommodations handles GET /api/v1/accommodations.
// Query parameters: stage (number), order (name|trail), max_access (on-trail|near-trail|off-trail).
func (h *Handler) ListAccommodations(w http.ResponseWriter, r *http.Request) {
	q, err := parseAccommodationQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	matches, err := h.planner.Accommodations(r.Context(), q)
	if err != nil {
		writeError(w, r, err, "Failed to list accommodations")
		return
	}
	if matches == nil {
		matches = []routing.Match{}
	}
	writeJSON(w, http.StatusOK, ListAccommodationsResponse{Accommodations: matches, Count: len(matches)})
}

// CreateItinerary handles POST /api/v1/itineraries. The body is optional.
func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	var req createItineraryRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	view, err := h.planner.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err, "Failed to create itinerary")
		return
	}
	w.Header().Set("Location", "/api/v1/itineraries/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// GetItinerary handles GET /api/v1/itineraries/{id}
func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	view, err := h.planner.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err, "Failed to get itinerary")
}

// DeleteItinerary handles DELETE /api/v1/itineraries/{id}
func (h *Handler) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete itinerary")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendWaypoint handles POST /api/v1/itineraries/{id}/waypoints
func (h *Handler) AppendWaypoint(w http.ResponseWriter, r *http.Request) {
	var req appendWaypointRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.AccommodationID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "accommodation_id is required"})
		return
	}

	view, err := h.planner.Append(r.Context(), chi.URLParam(r, "id"), req.AccommodationID)
	h.respond(w, r, view, err, "Failed to add waypoint")
}

// RemoveWaypoint handles DELETE /api/v1/itineraries/{id}/waypoints/{wid}
func (h *Handler) RemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	view, err := h.planner.Remove(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "wid"))
	h.respond(w, r, view, err, "Failed to remove waypoint")
}

// MoveWaypoint handles POST /api/v1/itineraries/{id}/waypoints/{wid}/move
func (h *Handler) MoveWaypoint(w http.ResponseWriter, r *http.Request) {
	var req moveWaypointRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	dir, err := itinerary.ParseDirection(req.Direction)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	view, err := h.planner.Move(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "wid"), dir)
	h.respond(w, r, view, err, "Failed to move waypoint")
}

// ClearWaypoints handles DELETE /api/v1/itineraries/{id}/waypoints
func (h *Handler) ClearWaypoints(w http.ResponseWriter, r *http.Request) {
	view, err := h.planner.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err, "Failed to clear itinerary")
}

// ExportItinerary handles GET /api/v1/itineraries/{id}/export?format=text|kml|geojson
func (h *Handler) ExportItinerary(w http.ResponseWriter, r *http.Request) {
	format, err := itinerary.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// render fully before writing so failures still get a JSON error
	var buf bytes.Buffer
	if err := h.planner.Export(r.Context(), chi.URLParam(r, "id"), format, &buf); err != nil {
		writeError(w, r, err, "Failed to export itinerary")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="itinerary.%s"`, exportExtension(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// SaveItinerary handles POST /api/v1/itineraries/{id}/save
func (h *Handler) SaveItinerary(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.Save(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, plan, err, "Failed to save itinerary")
}

// ListPlans handles GET /api/v1/plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planner.Plans(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list plans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans, "count": len(plans)})
}

// LoadPlan handles POST /api/v1/plans/{planID}/load
func (h *Handler) LoadPlan(w http.ResponseWriter, r *http.Request) {
	view, err := h.planner.Load(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, r, err, "Failed to load plan")
		return
	}
	w.Header().Set("Location", "/api/v1/itineraries/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// DeletePlan handles DELETE /api/v1/plans/{planID}
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeletePlan(r.Context(), chi.URLParam(r, "planID")); err != nil {
		writeError(w, r, err, "Failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body interface{}, err error, message string) {
	if err != nil {
		writeError(w, r, err, message)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func parseAccommodationQuery(r *http.Request) (services.AccommodationQuery, error) {
	var q services.AccommodationQuery
	values := r.URL.Query()

	if s := values.Get("stage"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid stage %q", s)
		}
		q.Stage = n
	}

	switch order := strings.ToLower(values.Get("order")); order {
	case "", "name":
	case "trail":
		q.TrailOrder = true
	default:
		return q, fmt.Errorf("invalid order %q: must be name or trail", order)
	}

	if s := values.Get("max_access"); s != "" {
		q.MaxAccess = catalog.ParseAccessibility(s)
		if q.MaxAccess == catalog.Unknown {
			return q, fmt.Errorf("invalid max_access %q", s)
		}
	}
	return q, nil
}

func decodeBody(r *http.Request, dst interface{}, optional bool) error {
	if r.Body == nil || r.ContentLength == 0 {
		return emptyBody(optional)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		// chunked requests carry no length, so emptiness only shows up here
		if errors.Is(err, io.EOF) {
			return emptyBody(optional)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func emptyBody(optional bool) error {
	if optional {
		return nil
	}
	return errors.New("request body is required")
}

func exportExtension(f itinerary.Format) string {
	switch f {
	case itinerary.FormatKML:
		return "kml"
	case itinerary.FormatGeoJSON:
		return "geojson"
	}
	return "txt"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps service errors to status codes. Unexpected errors are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrStoreDisabled):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		logging.Errorw(r.Context(), message, "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   message,
			Details: map[string]interface{}{"internal": err.Error()},
		})
	}
}
