package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/flood-risk-service/internal/assessment"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/monitor"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Assessor runs on-demand assessments.
type Assessor interface {
	AreaReport(ctx context.Context, key domain.AreaKey) (assessment.Report, error)
	ScoreMetrics(ctx context.Context, m risk.Metrics, profile domain.AreaProfile) (risk.RiskResult, error)
	TwoFactor(ctx context.Context, rainfall24h float64, riverLevel *float64) (risk.TwoFactorResult, error)
}

// AreaWriter stores area profiles and flood history.
type AreaWriter interface {
	SaveAreaProfile(ctx context.Context, p domain.AreaProfile) error
	AppendFloodEvent(ctx context.Context, e domain.FloodEvent) (string, error)
}

// MonitorView exposes the latest monitoring sweep.
type MonitorView interface {
	Latest() []monitor.Result
}

type handler struct {
	assessor Assessor
	areas    AreaWriter
	monitor  MonitorView
	logger   *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type fourFactorRequest struct {
	Metrics *risk.Metrics       `json:"metrics"`
	Profile *domain.AreaProfile `json:"profile"`
}

type twoFactorRequest struct {
	Rainfall24h *float64 `json:"rainfall24h"`
	RiverLevel  *float64 `json:"riverLevel"`
}

type eventResponse struct {
	ID string `json:"id"`
}

func (h *handler) areaRisk(w http.ResponseWriter, r *http.Request) {
	key := domain.AreaKey{
		State: chi.URLParam(r, "state"),
		City:  chi.URLParam(r, "city"),
		Area:  chi.URLParam(r, "area"),
	}
	report, err := h.assessor.AreaReport(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (h *handler) putProfile(w http.ResponseWriter, r *http.Request) {
	if h.areas == nil {
		h.unavailable(w, "area storage")
		return
	}
	var p domain.AreaProfile
	if err := decodeJSON(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	p.State = chi.URLParam(r, "state")
	p.City = chi.URLParam(r, "city")
	p.Area = chi.URLParam(r, "area")

	if err := h.areas.SaveAreaProfile(r.Context(), p); err != nil {
		h.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) postEvent(w http.ResponseWriter, r *http.Request) {
	if h.areas == nil {
		h.unavailable(w, "area storage")
		return
	}
	var e domain.FloodEvent
	if err := decodeJSON(r, &e); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.areas.AppendFloodEvent(r.Context(), e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, eventResponse{ID: id})
}

func (h *handler) fourFactor(w http.ResponseWriter, r *http.Request) {
	var req fourFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Metrics == nil || req.Profile == nil {
		h.writeError(w, r, fmt.Errorf("%w: metrics and profile are required", domain.ErrInvalidInput))
		return
	}
	result, err := h.assessor.ScoreMetrics(r.Context(), *req.Metrics, *req.Profile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) twoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Rainfall24h == nil {
		h.writeError(w, r, fmt.Errorf("%w: rainfall24h is required", domain.ErrInvalidInput))
		return
	}
	result, err := h.assessor.TwoFactor(r.Context(), *req.Rainfall24h, req.RiverLevel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) monitorLatest(w http.ResponseWriter, _ *http.Request) {
	if h.monitor == nil {
		h.unavailable(w, "monitoring")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, h.monitor.Latest())
}

func (h *handler) unavailable(w http.ResponseWriter, what string) {
	sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: what + " is not enabled"})
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientHistory):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
