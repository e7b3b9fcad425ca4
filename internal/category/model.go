// Package category predicts a purchase category from item text with a
// pre-trained TF-IDF vectorizer and logistic-regression classifier.
//
// The model is loaded once at startup from a JSON artifact and is read-only
// afterwards, so a single *Model is safe to share between requests.
package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode"
)

// Unknown is returned when there is no text to classify
const Unknown = "unknown"

// Predictor maps item text to a category label
type Predictor interface {
	Predict(text string) string
}

// Vectorizer is the persisted TF-IDF vectorizer
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Lowercase  *bool          `json:"lowercase,omitempty"`
}

// Classifier is the persisted linear classifier. Binary models carry a
// single coefficient row that scores Classes[1] against Classes[0].
type Classifier struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

type artifact struct {
	Vectorizer *Vectorizer `json:"vectorizer"`
	Classifier *Classifier `json:"classifier"`
}

// Model is a loaded vectorizer and classifier pair
type Model struct {
	vectorizer Vectorizer
	classifier Classifier
	lowercase  bool
}

// Load reads a model artifact from path
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a model artifact
func Parse(r io.Reader) (*Model, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if a.Vectorizer == nil || a.Classifier == nil {
		return nil, errors.New("vectorizer or classifier is missing in the saved model")
	}
	return New(*a.Vectorizer, *a.Classifier)
}

// New validates a vectorizer and classifier and builds a Model
func New(v Vectorizer, c Classifier) (*Model, error) {
	features := len(v.IDF)
	if len(v.Vocabulary) == 0 || features == 0 {
		return nil, errors.New("vectorizer has an empty vocabulary")
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= features {
			return nil, fmt.Errorf("vocabulary term %q has index %d outside %d features", term, idx, features)
		}
	}

	if len(c.Classes) < 2 {
		return nil, fmt.Errorf("classifier needs at least 2 classes, got %d", len(c.Classes))
	}
	rows := len(c.Classes)
	if rows == 2 && len(c.Coef) == 1 {
		rows = 1
	}
	if len(c.Coef) != rows {
		return nil, fmt.Errorf("classifier has %d coefficient rows for %d classes", len(c.Coef), len(c.Classes))
	}
	if len(c.Intercept) != rows {
		return nil, fmt.Errorf("classifier has %d intercepts for %d coefficient rows", len(c.Intercept), rows)
	}
	for i, row := range c.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("coefficient row %d has %d features, vectorizer has %d", i, len(row), features)
		}
	}

	lowercase := true
	if v.Lowercase != nil {
		lowercase = *v.Lowercase
	}
	return &Model{vectorizer: v, classifier: c, lowercase: lowercase}, nil
}

// Classes returns the labels the model can predict
func (m *Model) Classes() []string {
	out := make([]string, len(m.classifier.Classes))
	copy(out, m.classifier.Classes)
	return out
}

// Predict returns the most likely category for text, or Unknown when text is blank
func (m *Model) Predict(text string) string {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}

	x := m.transform(text)
	c := m.classifier
	if len(c.Coef) == 1 {
		if dot(c.Coef[0], x)+c.Intercept[0] > 0 {
			return c.Classes[1]
		}
		return c.Classes[0]
	}

	best, bestScore := 0, math.Inf(-1)
	for i, row := range c.Coef {
		if s := dot(row, x) + c.Intercept[i]; s > bestScore {
			best, bestScore = i, s
		}
	}
	return c.Classes[best]
}

// transform returns the L2-normalized TF-IDF vector of text as a sparse map
func (m *Model) transform(text string) map[int]float64 {
	if m.lowercase {
		text = strings.ToLower(text)
	}

	vec := map[int]float64{}
	for _, tok := range Tokenize(text) {
		if idx, ok := m.vectorizer.Vocabulary[tok]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for idx, tf := range vec {
		v := tf * m.vectorizer.IDF[idx]
		vec[idx] = v
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// Tokenize splits text into runs of letters, digits and underscores,
// keeping tokens of two or more characters
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

func dot(row []float64, x map[int]float64) float64 {
	var s float64
	for idx, v := range x {
		s += row[idx] * v
	}
	return s
}
