package task

import (
	"fmt"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

// matchIoU is the overlap a prediction needs with a same-labeled ground-truth
// box to count as a true positive.
const matchIoU = 0.5

// ComputePerformance scores a result set by matching prediction scenes
// against ground truth scenes item by item and micro-averaging the
// F-measure over the whole set.
func (t *Task) ComputePerformance(rs *entities.ResultSet) (*entities.Performance, error) {
	if rs == nil || rs.GroundTruth == nil || rs.PredictionDataset == nil {
		return nil, fmt.Errorf("result set is missing ground truth or predictions")
	}
	if rs.GroundTruth.Len() != rs.PredictionDataset.Len() {
		return nil, fmt.Errorf("ground truth has %d items but predictions have %d",
			rs.GroundTruth.Len(), rs.PredictionDataset.Len())
	}

	var agg matchCounts
	for i := range rs.GroundTruth.Items {
		gt := rs.GroundTruth.Items[i].Scene
		pred := rs.PredictionDataset.Items[i].Scene
		agg = agg.add(matchAnnotations(gt.Annotations, pred.Annotations))
	}

	score := agg.fMeasure()
	t.log.Info().Float64("f_measure", score).
		Int("true_positives", agg.truePositives).
		Int("false_positives", agg.falsePositives).
		Int("false_negatives", agg.falseNegatives).
		Msg("performance computed")

	return &entities.Performance{
		Score:  entities.ScoreMetric{Name: "f-measure", Value: score},
		Source: fmt.Sprintf("resultset of %d items", rs.GroundTruth.Len()),
	}, nil
}

// matchCounts accumulates detection outcomes across dataset items.
type matchCounts struct {
	truePositives  int
	falsePositives int
	falseNegatives int
}

func (m matchCounts) add(o matchCounts) matchCounts {
	return matchCounts{
		truePositives:  m.truePositives + o.truePositives,
		falsePositives: m.falsePositives + o.falsePositives,
		falseNegatives: m.falseNegatives + o.falseNegatives,
	}
}

// fMeasure computes the harmonic mean of precision and recall. An empty
// count set (no ground truth and no predictions) scores zero.
func (m matchCounts) fMeasure() float64 {
	denom := 2*m.truePositives + m.falsePositives + m.falseNegatives
	if denom == 0 {
		return 0
	}
	return 2 * float64(m.truePositives) / float64(denom)
}

// matchAnnotations greedily matches predictions against ground truth boxes.
// Predictions are visited in order, so callers ranking them by confidence
// give the strongest predictions first claim on each box. A prediction
// matches a still-unclaimed ground truth box when labels agree and the IoU
// meets the threshold.
func matchAnnotations(groundTruth, predictions []entities.Annotation) matchCounts {
	claimed := make([]bool, len(groundTruth))
	var counts matchCounts

	for _, pred := range predictions {
		if len(pred.Labels) == 0 {
			continue
		}
		predBox := pred.Shape.BoundingBox()
		predLabel := pred.Labels[0].Label.Name

		bestIdx := -1
		bestIoU := matchIoU
		for i, gt := range groundTruth {
			if claimed[i] || len(gt.Labels) == 0 || gt.Labels[0].Label.Name != predLabel {
				continue
			}
			if iou := predBox.IoU(gt.Shape.BoundingBox()); iou >= bestIoU {
				bestIoU = iou
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			claimed[bestIdx] = true
			counts.truePositives++
		} else {
			counts.falsePositives++
		}
	}

	for i, gt := range groundTruth {
		if !claimed[i] && len(gt.Labels) > 0 {
			counts.falseNegatives++
		}
	}
	return counts
}
