package handlers

import (
	"context"
	"net/http"

	"github.com/safecircle/server/internal/emergency"
	"github.com/safecircle/server/internal/model"
)

// EmergencyService records emergencies and alerts nominees
type EmergencyService interface {
	Report(ctx context.Context, r emergency.Report) (emergency.Outcome, error)
	History(ctx context.Context, email string) ([]model.EmergencyEvent, error)
}

// EmergencyHandler handles emergency reporting and history
type EmergencyHandler struct {
	svc EmergencyService
}

// NewEmergencyHandler creates a new emergency handler
func NewEmergencyHandler(svc EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{svc: svc}
}

type reportRequest struct {
	Email     string `json:"email" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Details   string `json:"details"`
	Latitude  any    `json:"latitude"`
	Longitude any    `json:"longitude"`
}

type reportResponse struct {
	Detail  string               `json:"detail"`
	ID      int64                `json:"id"`
	Results []model.FanoutResult `json:"results"`
}

type emergencyResponse struct {
	ID        int64    `json:"id"`
	Type      string   `json:"type"`
	Details   *string  `json:"details"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// HandleReport handles POST /emergency
func (h *EmergencyHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.svc.Report(r.Context(), emergency.Report{
		Email:     req.Email,
		Category:  req.Type,
		Details:   req.Details,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reportResponse{
		Detail:  "emergency recorded",
		ID:      out.Event.ID,
		Results: out.Results,
	})
}

// HandleHistory handles GET /me/emergencies?email=
func (h *EmergencyHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	out := make([]emergencyResponse, 0, len(history))
	for _, ev := range history {
		item := emergencyResponse{
			ID:        ev.ID,
			Type:      ev.Category,
			CreatedAt: ev.CreatedAt.UTC().Format(timeLayout),
		}
		if ev.Details != "" {
			details := ev.Details
			item.Details = &details
		}
		if ev.Location != nil {
			lat, lon := ev.Location.Latitude, ev.Location.Longitude
			item.Latitude, item.Longitude = &lat, &lon
		}
		out = append(out, item)
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"emergencies": out})
}
