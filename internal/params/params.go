// Package params defines the configurable parameter bundle passed to a
// detection task.
//
// Parameters form a small nested structure of named knobs. They can be
// populated from a template YAML file and flattened to key/value pairs for
// metadata logging.
package params

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AlgoBackendParameters selects the model definition the task trains.
type AlgoBackendParameters struct {
	// Template is the path to the template YAML the parameters were loaded
	// from, when applicable.
	Template string `yaml:"template"`

	// Model is the model definition file name within the template directory.
	Model string `yaml:"model"`

	// ModelName is the human-readable name recorded on trained models.
	ModelName string `yaml:"model_name"`
}

// LearningParameters control the training loop.
type LearningParameters struct {
	NumEpochs           int     `yaml:"num_epochs"`
	LearningRate        float64 `yaml:"learning_rate"`
	BatchSize           int     `yaml:"batch_size"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// DetectionParameters is the full configurable parameter set for a detection
// task.
type DetectionParameters struct {
	AlgoBackend        AlgoBackendParameters `yaml:"algo_backend"`
	LearningParameters LearningParameters    `yaml:"learning_parameters"`
}

// NewDetectionParameters returns the parameter set with default values.
func NewDetectionParameters() *DetectionParameters {
	return &DetectionParameters{
		AlgoBackend: AlgoBackendParameters{
			Model:     "model.yaml",
			ModelName: "shape-detection-model",
		},
		LearningParameters: LearningParameters{
			NumEpochs:           10,
			LearningRate:        0.25,
			BatchSize:           16,
			ConfidenceThreshold: 0.35,
		},
	}
}

// LoadTemplate reads a template YAML file and overlays its values on the
// defaults. The template path itself is recorded in AlgoBackend.Template.
func LoadTemplate(path string) (*DetectionParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	p := NewDetectionParameters()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	p.AlgoBackend.Template = path
	return p, nil
}

// Flatten serializes the nested parameter structure to a flat key/value map
// suitable for metadata logging. Keys are dotted paths in the YAML naming.
func (p *DetectionParameters) Flatten() map[string]string {
	return map[string]string{
		"algo_backend.template":                    p.AlgoBackend.Template,
		"algo_backend.model":                       p.AlgoBackend.Model,
		"algo_backend.model_name":                  p.AlgoBackend.ModelName,
		"learning_parameters.num_epochs":           strconv.Itoa(p.LearningParameters.NumEpochs),
		"learning_parameters.learning_rate":        strconv.FormatFloat(p.LearningParameters.LearningRate, 'g', -1, 64),
		"learning_parameters.batch_size":           strconv.Itoa(p.LearningParameters.BatchSize),
		"learning_parameters.confidence_threshold": strconv.FormatFloat(p.LearningParameters.ConfidenceThreshold, 'g', -1, 64),
	}
}
