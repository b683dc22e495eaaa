package task

import (
	"math"
	"time"

	"github.com/ironsheep/shape-trainer/internal/detector"
	"github.com/ironsheep/shape-trainer/internal/entities"
)

// classifier is a softmax model over detector region features. Row i of the
// coefficient matrix holds the weights for class i; the final column is the
// bias term.
type classifier struct {
	classes []string
	coef    [][]float64
}

// newClassifier creates a zero-initialized classifier for the given classes.
func newClassifier(classes []string) *classifier {
	coef := make([][]float64, len(classes))
	for i := range coef {
		coef[i] = make([]float64, detector.FeatureCount+1)
	}
	return &classifier{classes: classes, coef: coef}
}

// classifierFromWeights restores a classifier from stored model weights.
func classifierFromWeights(w entities.ModelWeights) *classifier {
	return &classifier{classes: w.Classes, coef: w.Coefficients}
}

// weights exports the classifier state as model weights. The coefficient
// matrix is deep-copied so later training steps cannot mutate a snapshot.
func (c *classifier) weights() entities.ModelWeights {
	return entities.ModelWeights{
		Classes:      c.classes,
		FeatureCount: detector.FeatureCount,
		Coefficients: c.coef,
	}.Clone()
}

// predict returns the class probability distribution for a feature vector.
func (c *classifier) predict(features []float64) []float64 {
	logits := make([]float64, len(c.coef))
	maxLogit := math.Inf(-1)
	for i, row := range c.coef {
		v := row[len(row)-1] // bias
		for j, f := range features {
			v += row[j] * f
		}
		logits[i] = v
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	for i, v := range logits {
		logits[i] = math.Exp(v - maxLogit)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}

// update performs one stochastic gradient step on the cross-entropy loss for
// a sample of the given target class.
func (c *classifier) update(features []float64, target int, learningRate float64) {
	probs := c.predict(features)
	for i, row := range c.coef {
		grad := probs[i]
		if i == target {
			grad -= 1
		}
		for j, f := range features {
			row[j] -= learningRate * grad * f
		}
		row[len(row)-1] -= learningRate * grad
	}
}

// classIndex returns the row for a class name, or -1 when unknown.
func (c *classifier) classIndex(name string) int {
	for i, n := range c.classes {
		if n == name {
			return i
		}
	}
	return -1
}

// quantize produces an int8 deployment variant of a model. Each coefficient
// row gets its own dequantization scale so that small and large rows keep
// comparable relative precision.
func quantize(model *entities.Model) *entities.OptimizedModel {
	rows := model.Weights.Coefficients
	quantized := make([][]int8, len(rows))
	scales := make([]float64, len(rows))

	for i, row := range rows {
		maxAbs := 0.0
		for _, v := range row {
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
		scale := maxAbs / 127
		if scale == 0 {
			scale = 1
		}
		scales[i] = scale

		q := make([]int8, len(row))
		for j, v := range row {
			q[j] = int8(math.Round(v / scale))
		}
		quantized[i] = q
	}

	return &entities.OptimizedModel{
		Base:      model,
		Precision: "int8",
		Quantized: quantized,
		Scales:    scales,
		CreatedAt: time.Now().UTC(),
	}
}
