package entities

import "github.com/google/uuid"

// Label identifies a single object class within a project.
type Label struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"` // Hex color "#RRGGBB" used when rendering this class
}

// NewLabel creates a label with a fresh identifier.
func NewLabel(name, color string) Label {
	return Label{ID: uuid.New(), Name: name, Color: color}
}

// ScoredLabel pairs a label with the probability assigned to it.
//
// Ground-truth annotations carry probability 1.0; predictions carry the
// classifier confidence.
type ScoredLabel struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
}
