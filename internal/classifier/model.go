package classifier

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

const (
	KindNaiveBayes = "naive_bayes"
	KindKeyword    = "keyword"
)

// Predictor labels texts
type Predictor interface {
	Predict(texts []string) ([]string, error)
}

// ProbabilisticPredictor also reports a per-class probability vector per text
type ProbabilisticPredictor interface {
	Predictor
	Classes() []string
	PredictProba(texts []string) ([][]float64, error)
}

// modelFile is the on-disk model description shared by the JSON and YAML formats.
type modelFile struct {
	Kind string `json:"kind" yaml:"kind"`

	// naive_bayes
	Classes        []string       `json:"classes" yaml:"classes"`
	ClassLogPrior  []float64      `json:"class_log_prior" yaml:"class_log_prior"`
	Vocabulary     map[string]int `json:"vocabulary" yaml:"vocabulary"`
	FeatureLogProb [][]float64    `json:"feature_log_prob" yaml:"feature_log_prob"`

	// keyword
	Rules        []keywordRule `json:"rules" yaml:"rules"`
	DefaultLabel string        `json:"default_label" yaml:"default_label"`
}

type keywordRule struct {
	Label    string   `json:"label" yaml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

func (m *modelFile) build() (Predictor, error) {
	switch m.Kind {
	case KindNaiveBayes:
		return newNaiveBayes(m)
	case KindKeyword:
		return newKeywordModel(m)
	case "":
		return nil, fmt.Errorf("model kind is missing")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", m.Kind)
	}
}

var folder = cases.Fold()

// tokenize case-folds text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(folder.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// naiveBayes is a multinomial naive Bayes model over token counts
type naiveBayes struct {
	classes        []string
	classLogPrior  []float64
	vocabulary     map[string]int
	featureLogProb [][]float64
}

func newNaiveBayes(m *modelFile) (*naiveBayes, error) {
	n := len(m.Classes)
	if n == 0 {
		return nil, fmt.Errorf("naive_bayes: no classes")
	}
	if len(m.ClassLogPrior) != n || len(m.FeatureLogProb) != n {
		return nil, fmt.Errorf("naive_bayes: expected %d priors and feature rows, got %d and %d",
			n, len(m.ClassLogPrior), len(m.FeatureLogProb))
	}
	for i, row := range m.FeatureLogProb {
		if len(row) != len(m.Vocabulary) {
			return nil, fmt.Errorf("naive_bayes: feature row %d has %d entries, vocabulary has %d", i, len(row), len(m.Vocabulary))
		}
	}
	vocab := make(map[string]int, len(m.Vocabulary))
	for tok, idx := range m.Vocabulary {
		if idx < 0 || idx >= len(m.Vocabulary) {
			return nil, fmt.Errorf("naive_bayes: vocabulary index %d for %q out of range", idx, tok)
		}
		vocab[folder.String(tok)] = idx
	}
	return &naiveBayes{
		classes:        m.Classes,
		classLogPrior:  m.ClassLogPrior,
		vocabulary:     vocab,
		featureLogProb: m.FeatureLogProb,
	}, nil
}

func (nb *naiveBayes) Classes() []string { return nb.classes }

func (nb *naiveBayes) jointLogLikelihood(text string) []float64 {
	scores := make([]float64, len(nb.classes))
	copy(scores, nb.classLogPrior)
	for _, tok := range tokenize(text) {
		idx, ok := nb.vocabulary[tok]
		if !ok {
			continue
		}
		for c := range scores {
			scores[c] += nb.featureLogProb[c][idx]
		}
	}
	return scores
}

func (nb *naiveBayes) Predict(texts []string) ([]string, error) {
	labels := make([]string, len(texts))
	for i, text := range texts {
		scores := nb.jointLogLikelihood(text)
		best := 0
		for c := range scores {
			if scores[c] > scores[best] {
				best = c
			}
		}
		labels[i] = nb.classes[best]
	}
	return labels, nil
}

func (nb *naiveBayes) PredictProba(texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = softmax(nb.jointLogLikelihood(text))
	}
	return out, nil
}

func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// keywordModel assigns the label of the first rule with a matching keyword
type keywordModel struct {
	rules        []keywordRule
	defaultLabel string
}

func newKeywordModel(m *modelFile) (*keywordModel, error) {
	if len(m.Rules) == 0 {
		return nil, fmt.Errorf("keyword: no rules")
	}
	if m.DefaultLabel == "" {
		return nil, fmt.Errorf("keyword: default_label is required")
	}
	rules := make([]keywordRule, len(m.Rules))
	for i, r := range m.Rules {
		if r.Label == "" {
			return nil, fmt.Errorf("keyword: rule %d has no label", i)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kws = append(kws, folder.String(strings.TrimSpace(kw)))
		}
		rules[i] = keywordRule{Label: r.Label, Keywords: kws}
	}
	return &keywordModel{rules: rules, defaultLabel: m.DefaultLabel}, nil
}

func (k *keywordModel) Predict(texts []string) ([]string, error) {
	labels := make([]string, len(texts))
	for i, text := range texts {
		labels[i] = k.label(text)
	}
	return labels, nil
}

func (k *keywordModel) label(text string) string {
	tokens := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		tokens[tok] = struct{}{}
	}
	for _, r := range k.rules {
		for _, kw := range r.Keywords {
			if _, ok := tokens[kw]; ok {
				return r.Label
			}
		}
	}
	return k.defaultLabel
}
