package handlers

import (
	"net/http"

	"github.com/safecircle/server/internal/classifier"
)

// Predictor classifies texts
type Predictor interface {
	Loaded() bool
	Predict(texts []string) (classifier.Prediction, error)
}

// PredictHandler handles POST /predict
type PredictHandler struct {
	classifier Predictor
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(c Predictor) *PredictHandler {
	return &PredictHandler{classifier: c}
}

type predictRequest struct {
	Texts []string `json:"texts" validate:"required,min=1"`
}

func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A missing model answers 503 for any body.
	if !h.classifier.Loaded() {
		_, err := h.classifier.Predict(nil)
		respondWithServiceError(w, err)
		return
	}

	var req predictRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Body must include 'texts': List[str]")
		return
	}

	pred, err := h.classifier.Predict(req.Texts)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, pred)
}

var _ Predictor = (*classifier.Classifier)(nil)
