package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/safecircle/server/internal/model"
)

// NomineeDirectory manages emergency contacts
type NomineeDirectory interface {
	Add(ctx context.Context, email, name, phone string) (model.Nominee, error)
	Update(ctx context.Context, id int64, name, phone *string) error
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context, email string) ([]model.Nominee, error)
}

// NomineeHandler handles /me/nominees endpoints
type NomineeHandler struct {
	dir NomineeDirectory
}

// NewNomineeHandler creates a new nominee handler
func NewNomineeHandler(dir NomineeDirectory) *NomineeHandler {
	return &NomineeHandler{dir: dir}
}

type nomineeResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type addNomineeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type updateNomineeRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// HandleList handles GET /me/nominees?email=
func (h *NomineeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	nominees, err := h.dir.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	out := make([]nomineeResponse, 0, len(nominees))
	for _, n := range nominees {
		out = append(out, nomineeResponse{ID: n.ID, Name: n.Name, Phone: n.Phone})
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"nominees": out})
}

// HandleAdd handles POST /me/nominees
func (h *NomineeHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addNomineeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.dir.Add(r.Context(), req.Email, req.Name, req.Phone)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"detail": "added", "nominee_id": n.ID})
}

// HandleUpdate handles PUT /me/nominees/{id}
func (h *NomineeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := nomineeID(w, r)
	if !ok {
		return
	}

	var req updateNomineeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.dir.Update(r.Context(), id, req.Name, req.Phone); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"detail": "updated"})
}

// HandleDelete handles DELETE /me/nominees/{id}
func (h *NomineeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := nomineeID(w, r)
	if !ok {
		return
	}

	if err := h.dir.Remove(r.Context(), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"detail": "deleted"})
}

func nomineeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid nominee id")
		return 0, false
	}
	return id, true
}
