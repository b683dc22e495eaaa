package entities

// SceneKind distinguishes ground-truth annotation scenes from prediction
// scenes produced by a model.
type SceneKind int

const (
	SceneAnnotation SceneKind = iota // Human or generator supplied ground truth
	ScenePrediction                  // Model output
)

func (k SceneKind) String() string {
	switch k {
	case SceneAnnotation:
		return "annotation"
	case ScenePrediction:
		return "prediction"
	default:
		return "unknown"
	}
}

// Annotation is a single labeled shape within a scene.
type Annotation struct {
	Shape  Shape         `json:"shape"`
	Labels []ScoredLabel `json:"labels"`
}

// ToBox reduces the annotation's shape to its clipped bounding box while
// preserving the attached labels.
func (a Annotation) ToBox() Annotation {
	return Annotation{Shape: a.Shape.BoundingBox(), Labels: a.Labels}
}

// AnnotationScene is the full set of annotations attached to one media item.
type AnnotationScene struct {
	Kind        SceneKind    `json:"kind"`
	Annotations []Annotation `json:"annotations"`
}

// NewAnnotationScene creates a scene of the given kind.
func NewAnnotationScene(kind SceneKind, annotations []Annotation) *AnnotationScene {
	return &AnnotationScene{Kind: kind, Annotations: annotations}
}

// Boxes returns the clipped bounding boxes of all annotations in the scene.
func (s *AnnotationScene) Boxes() []Annotation {
	out := make([]Annotation, 0, len(s.Annotations))
	for _, a := range s.Annotations {
		out = append(out, a.ToBox())
	}
	return out
}
