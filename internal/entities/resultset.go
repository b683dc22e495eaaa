package entities

// ResultSet pairs a ground-truth dataset with the predictions a model produced
// for it. It is the input to performance computation.
type ResultSet struct {
	Model             *Model   `json:"model"`
	GroundTruth       *Dataset `json:"ground_truth"`
	PredictionDataset *Dataset `json:"prediction_dataset"`
}

// ScoreMetric is a single named scalar metric.
type ScoreMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Performance is the outcome of evaluating a result set: a scalar score plus
// the provenance of the comparison it was computed from.
type Performance struct {
	Score  ScoreMetric `json:"score"`
	Source string      `json:"source"` // Describes the datasets compared
}
