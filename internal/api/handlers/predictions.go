// Package handlers contains the HTTP handler implementations for the
// frostwatch API:
//   - Point prediction retrieval (GET /v1/predictions/point)
//   - Per-station predictions (GET /v1/predictions/stations)
//   - Station metadata listing (GET /v1/stations)
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"frostwatch/internal/core"
	"frostwatch/internal/engine"
	"frostwatch/internal/types"
)

// dateLayout is the wire format for target dates.
const dateLayout = "2006-01-02"

// PredictionServiceInterface defines the service contract for the prediction
// handler. It matches the engine's exported methods but is defined locally to
// avoid tight coupling per the handler injection pattern.
type PredictionServiceInterface interface {
	PredictAt(ctx context.Context, point types.GeoPoint, targetDate time.Time) (*types.StationPrediction, error)
	PredictAll(ctx context.Context, targetDate time.Time) (*engine.PredictionSet, error)
	Stations() []types.Station
}

// PredictionHandler maps HTTP requests to prediction engine methods.
type PredictionHandler struct {
	service PredictionServiceInterface
	clock   types.Clock
	logger  *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler with the provided
// dependencies. A nil clock defaults to the real clock.
func NewPredictionHandler(svc PredictionServiceInterface, clock types.Clock, logger *slog.Logger) *PredictionHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{
		service: svc,
		clock:   clock,
		logger:  logger,
	}
}

// RegisterRoutes mounts the prediction endpoints onto the mux.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/predictions/point", h.HandleGetPoint)
	r.Get("/predictions/stations", h.HandleGetStations)
	r.Get("/stations", h.HandleListStations)
}

// HandleGetPoint handles GET /v1/predictions/point.
//
// Query params: lat (required), lon (required), date (optional, YYYY-MM-DD,
// defaults to tomorrow in local civil time).
func (h *PredictionHandler) HandleGetPoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	if latStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		))
		return
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a number between -90 and 90",
			nil,
		))
		return
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		))
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a number between -180 and 180",
			nil,
		))
		return
	}

	targetDate, err := h.parseDate(q.Get("date"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	pred, err := h.service.PredictAt(r.Context(), types.GeoPoint{Lat: lat, Lon: lon}, targetDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	// Predictions for a given date are stable for the cache TTL.
	w.Header().Set("Cache-Control", "public, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: pred})
}

// HandleGetStations handles GET /v1/predictions/stations.
//
// Query params: date (optional, YYYY-MM-DD, defaults to tomorrow in local
// civil time). Returns one prediction per station plus the municipal
// aggregate.
func (h *PredictionHandler) HandleGetStations(w http.ResponseWriter, r *http.Request) {
	targetDate, err := h.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	set, err := h.service.PredictAll(r.Context(), targetDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: set})
}

// stationResponse is the wire representation of a station's metadata.
type stationResponse struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude_m"`
	Dedicated bool    `json:"dedicated_model"`
}

// HandleListStations handles GET /v1/stations. Returns the static station
// metadata used for map rendering.
func (h *PredictionHandler) HandleListStations(w http.ResponseWriter, r *http.Request) {
	stations := h.service.Stations()

	out := make([]stationResponse, 0, len(stations))
	for _, st := range stations {
		out = append(out, stationResponse{
			Code:      st.Code,
			Name:      st.Name,
			Latitude:  st.Latitude,
			Longitude: st.Longitude,
			Altitude:  st.Altitude,
			Dedicated: st.Dedicated,
		})
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: out})
}

// parseDate resolves the optional date query parameter. An empty value
// defaults to tomorrow in local civil time, which is the date the model is
// trained to predict.
func (h *PredictionHandler) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return types.Tomorrow(h.clock), nil
	}

	parsed, err := time.ParseInLocation(dateLayout, raw, types.BogotaZone)
	if err != nil {
		return time.Time{}, types.NewAppError(
			types.ErrCodeValidationInvalidDate,
			"date must be in YYYY-MM-DD format",
			err,
		)
	}
	return parsed, nil
}
