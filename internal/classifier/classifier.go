package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/safecircle/server/internal/model"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Prediction is the result of classifying a batch of texts.
// Probabilities is nil when the loaded model is not probabilistic.
type Prediction struct {
	Labels        []string    `json:"labels"`
	Probabilities [][]float64 `json:"probabilities,omitempty"`
}

// Classifier wraps an optionally loaded model. A Classifier whose model
// failed to load stays usable and reports model.ErrModelUnavailable.
type Classifier struct {
	predictor Predictor
	format    string
	loadErr   error
}

// Load reads the model at path, trying the JSON format first and YAML second.
// It never fails; check Loaded and LoadError.
func Load(path string) *Classifier {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Classifier{loadErr: fmt.Errorf("read model: %w", err)}
	}
	return LoadBytes(data)
}

// LoadBytes is Load for an in-memory model
func LoadBytes(data []byte) *Classifier {
	p, jsonErr := decodeJSON(data)
	if jsonErr == nil {
		return &Classifier{predictor: p, format: FormatJSON}
	}

	p, yamlErr := decodeYAML(data)
	if yamlErr == nil {
		return &Classifier{predictor: p, format: FormatYAML}
	}

	return &Classifier{loadErr: errors.Join(
		fmt.Errorf("json: %w", jsonErr),
		fmt.Errorf("yaml: %w", yamlErr),
	)}
}

// New wraps an existing predictor
func New(p Predictor) *Classifier {
	return &Classifier{predictor: p}
}

func decodeJSON(data []byte) (Predictor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m modelFile
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m.build()
}

func decodeYAML(data []byte) (Predictor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m modelFile
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m.build()
}

// Loaded reports whether a model is available
func (c *Classifier) Loaded() bool { return c.predictor != nil }

// Format returns which format the model was loaded from, or "" if none
func (c *Classifier) Format() string { return c.format }

// LoadError returns why the model could not be loaded, or nil
func (c *Classifier) LoadError() error { return c.loadErr }

// Predict labels texts. Inference errors and panics are reported as
// model.ErrPredictionFailed.
func (c *Classifier) Predict(texts []string) (pred Prediction, err error) {
	if c.predictor == nil {
		if c.loadErr != nil {
			return Prediction{}, fmt.Errorf("%w: %v", model.ErrModelUnavailable, c.loadErr)
		}
		return Prediction{}, model.ErrModelUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			pred = Prediction{}
			err = fmt.Errorf("%w: %v", model.ErrPredictionFailed, r)
		}
	}()

	labels, err := c.predictor.Predict(texts)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", model.ErrPredictionFailed, err)
	}
	pred.Labels = labels

	if pp, ok := c.predictor.(ProbabilisticPredictor); ok {
		probs, err := pp.PredictProba(texts)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: %w", model.ErrPredictionFailed, err)
		}
		pred.Probabilities = probs
	}
	return pred, nil
}
