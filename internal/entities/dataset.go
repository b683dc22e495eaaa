package entities

// Subset assigns a dataset item to a lifecycle split.
type Subset int

const (
	SubsetNone       Subset = iota // Not yet assigned
	SubsetTraining                 // Used for fitting model weights
	SubsetValidation               // Used for epoch selection during training
	SubsetTesting                  // Held out entirely
)

func (s Subset) String() string {
	switch s {
	case SubsetTraining:
		return "training"
	case SubsetValidation:
		return "validation"
	case SubsetTesting:
		return "testing"
	default:
		return "none"
	}
}

// DatasetItem pairs one media item with its annotation scene and subset label.
type DatasetItem struct {
	Media  *Image           `json:"media"`
	Scene  *AnnotationScene `json:"scene"`
	Subset Subset           `json:"subset"`
}

// Dataset is an ordered collection of annotated media items.
type Dataset struct {
	Items []*DatasetItem `json:"items"`
}

// NewDataset wraps a slice of items. The slice is used directly, not copied.
func NewDataset(items []*DatasetItem) *Dataset {
	return &Dataset{Items: items}
}

// Len returns the number of items in the dataset.
func (d *Dataset) Len() int { return len(d.Items) }

// Filter returns a dataset containing only the items in the given subset.
// The returned dataset shares item pointers with the receiver.
func (d *Dataset) Filter(subset Subset) *Dataset {
	out := make([]*DatasetItem, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Subset == subset {
			out = append(out, it)
		}
	}
	return NewDataset(out)
}

// WithEmptyAnnotations returns a copy of the dataset in which every item
// carries an empty prediction scene. Media pointers and subset labels are
// preserved; the original scenes are untouched. This is the input shape
// expected by model inference.
func (d *Dataset) WithEmptyAnnotations() *Dataset {
	out := make([]*DatasetItem, 0, len(d.Items))
	for _, it := range d.Items {
		out = append(out, &DatasetItem{
			Media:  it.Media,
			Scene:  NewAnnotationScene(ScenePrediction, nil),
			Subset: it.Subset,
		})
	}
	return NewDataset(out)
}
