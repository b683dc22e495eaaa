package task

import (
	"fmt"
	"sort"

	"github.com/ironsheep/shape-trainer/internal/detector"
	"github.com/ironsheep/shape-trainer/internal/entities"
	"github.com/ironsheep/shape-trainer/internal/media"
)

// maxAnalysisDim bounds the pixel size of images entering detection.
// Proposal boxes are normalized, so downscaling does not shift coordinates.
const maxAnalysisDim = 1024

// Analyse runs inference over every item of the dataset and returns a
// dataset of the same length whose items carry prediction scenes. Input
// scenes are ignored; callers typically pass dataset.WithEmptyAnnotations().
func (t *Task) Analyse(dataset *entities.Dataset) (*entities.Dataset, error) {
	model, err := t.activeModel()
	if err != nil {
		return nil, err
	}
	clf := classifierFromWeights(model.Weights)

	items := make([]*entities.DatasetItem, 0, dataset.Len())
	for i, item := range dataset.Items {
		if item.Media == nil || item.Media.Pixels == nil {
			return nil, fmt.Errorf("item %d has no media to analyse", i)
		}
		pixels := media.FitWithin(item.Media.Pixels, maxAnalysisDim)
		proposals := detector.ProposeRegions(pixels, minProposalArea)
		predictions := t.predictAnnotations(clf, proposals)

		items = append(items, &entities.DatasetItem{
			Media:  item.Media,
			Scene:  entities.NewAnnotationScene(entities.ScenePrediction, predictions),
			Subset: item.Subset,
		})
	}
	return entities.NewDataset(items), nil
}

// predictAnnotations classifies region proposals and keeps those confidently
// assigned to a non-background class.
func (t *Task) predictAnnotations(clf *classifier, proposals []detector.Proposal) []entities.Annotation {
	threshold := t.params.LearningParameters.ConfidenceThreshold

	out := make([]entities.Annotation, 0, len(proposals))
	for _, p := range proposals {
		probs := clf.predict(p.Features)
		bestIdx := 0
		for i, prob := range probs {
			if prob > probs[bestIdx] {
				bestIdx = i
			}
		}

		name := clf.classes[bestIdx]
		if name == backgroundClass || probs[bestIdx] < threshold {
			continue
		}
		label, ok := t.labelByName(name)
		if !ok {
			continue
		}
		out = append(out, entities.Annotation{
			Shape:  p.Box,
			Labels: []entities.ScoredLabel{{Label: label, Probability: probs[bestIdx]}},
		})
	}

	// Highest-confidence predictions first; greedy matching during scoring
	// depends on this order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Labels[0].Probability > out[j].Labels[0].Probability
	})
	return out
}

func (t *Task) labelByName(name string) (entities.Label, bool) {
	for _, l := range t.env.Project.Labels {
		if l.Name == name {
			return l, true
		}
	}
	return entities.Label{}, false
}
