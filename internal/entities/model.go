package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

// ModelWeights holds the trained parameters of the region classifier.
//
// The classifier is a softmax over geometric region features. Coefficients is
// a [class][feature+1] matrix; the final column of each row is the bias term.
// Classes lists the label names in row order, with the implicit background
// class as the last entry.
type ModelWeights struct {
	Classes      []string    `json:"classes"`
	FeatureCount int         `json:"feature_count"`
	Coefficients [][]float64 `json:"coefficients"`
}

// Clone returns a deep copy of the weights.
func (w ModelWeights) Clone() ModelWeights {
	coef := make([][]float64, len(w.Coefficients))
	for i, row := range w.Coefficients {
		coef[i] = append([]float64(nil), row...)
	}
	return ModelWeights{
		Classes:      append([]string(nil), w.Classes...),
		FeatureCount: w.FeatureCount,
		Coefficients: coef,
	}
}

// Model is a trained detection model together with its provenance.
//
// A zero-valued or placeholder model is represented by the null model; see
// NewNullModel and IsNull. Training that is cancelled before producing any
// usable weights returns the null model rather than nil.
type Model struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	CreatedAt     time.Time     `json:"created_at"`
	TrainedEpochs int           `json:"trained_epochs"`
	Weights       ModelWeights  `json:"weights"`
	Digest        digest.Digest `json:"digest,omitempty"` // Set when persisted to the model store

	null bool
}

// NewModel creates a trained model with a fresh identifier.
func NewModel(name string, epochs int, weights ModelWeights) *Model {
	return &Model{
		ID:            uuid.New(),
		Name:          name,
		CreatedAt:     time.Now().UTC(),
		TrainedEpochs: epochs,
		Weights:       weights,
	}
}

// NewNullModel returns the placeholder model indicating that training did not
// produce a real model.
func NewNullModel() *Model {
	return &Model{ID: uuid.Nil, Name: "null", null: true}
}

// IsNull reports whether the model is the null placeholder.
func (m *Model) IsNull() bool {
	return m == nil || m.null
}

// OptimizedModel is a model transformed for deployment, currently by int8
// weight quantization.
//
// Scales holds one dequantization factor per class row: the original
// coefficient is approximately Quantized[i][j] * Scales[i].
type OptimizedModel struct {
	Base      *Model    `json:"base"`
	Precision string    `json:"precision"` // e.g. "int8"
	Quantized [][]int8  `json:"quantized"`
	Scales    []float64 `json:"scales"`
	CreatedAt time.Time `json:"created_at"`
}
