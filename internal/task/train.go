package task

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ironsheep/shape-trainer/internal/datagen"
	"github.com/ironsheep/shape-trainer/internal/detector"
	"github.com/ironsheep/shape-trainer/internal/entities"
)

// sample is one labeled training example: the feature vector of a region
// proposal and the class row it should be assigned to.
type sample struct {
	features []float64
	target   int
}

// Train fits a detection model on the dataset's training subset, using the
// validation subset for epoch selection, and returns the trained model.
//
// Training runs for the configured number of epochs. Each epoch re-augments
// every training image, extracts region proposals, matches them against the
// ground truth at IoU 0.5 to produce labeled samples, and performs SGD over
// shuffled mini-batches. The epoch whose weights score best on the validation
// subset wins.
//
// Train is a long-running call and observes CancelTraining between work
// items. A run cancelled before the first epoch completes returns the null
// model; later cancellations return the best model so far. The trained model
// is saved to the task's store and becomes the environment's active model.
func (t *Task) Train(dataset *entities.Dataset) (*entities.Model, error) {
	cancel, err := t.beginTraining()
	if err != nil {
		return nil, err
	}
	defer t.endTraining()

	trainItems := dataset.Filter(entities.SubsetTraining)
	if trainItems.Len() == 0 {
		return nil, fmt.Errorf("dataset has no training subset")
	}
	validation := dataset.Filter(entities.SubsetValidation)

	classes := make([]string, 0, len(t.env.Project.Labels)+1)
	for _, l := range t.env.Project.Labels {
		classes = append(classes, l.Name)
	}
	classes = append(classes, backgroundClass)
	clf := newClassifier(classes)

	started := time.Now()
	t.log.Info().Int("train_items", trainItems.Len()).Int("validation_items", validation.Len()).
		Int("epochs", t.params.LearningParameters.NumEpochs).Msg("training started")

	// Proposal extraction on the clean validation images happens once; the
	// per-epoch validation score only re-classifies the cached features.
	valCache, ok := t.extractValidationCache(validation, cancel)
	if !ok {
		t.log.Info().Msg("training cancelled during warm-up")
		return entities.NewNullModel(), nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	lr := t.params.LearningParameters.LearningRate
	batchSize := t.params.LearningParameters.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	var best entities.ModelWeights
	bestScore := -1.0
	epochsDone := 0

	for epoch := 0; epoch < t.params.LearningParameters.NumEpochs; epoch++ {
		samples, ok := t.collectEpochSamples(trainItems, clf, epoch, cancel)
		if !ok {
			break
		}

		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})

		epochLR := lr / (1 + 0.02*float64(epoch))
		aborted := false
		for start := 0; start < len(samples); start += batchSize {
			if cancelled(cancel) {
				aborted = true
				break
			}
			end := start + batchSize
			if end > len(samples) {
				end = len(samples)
			}
			for _, s := range samples[start:end] {
				clf.update(s.features, s.target, epochLR)
			}
		}
		if aborted {
			break
		}
		epochsDone++

		score := t.validationScore(clf, valCache)
		if score > bestScore {
			bestScore = score
			best = clf.weights()
		}
		t.log.Debug().Int("epoch", epoch+1).Int("samples", len(samples)).
			Float64("validation_f_measure", score).Msg("epoch finished")
	}

	if epochsDone == 0 {
		t.log.Info().Dur("elapsed", time.Since(started)).Msg("training cancelled before first epoch")
		return entities.NewNullModel(), nil
	}

	model := entities.NewModel(t.params.AlgoBackend.ModelName, epochsDone, best)
	if _, err := t.store.Save(model); err != nil {
		return nil, fmt.Errorf("failed to persist trained model: %w", err)
	}

	t.mu.Lock()
	t.model = model
	t.mu.Unlock()
	t.env.Model = model

	t.log.Info().Int("epochs", epochsDone).Float64("best_validation_f_measure", bestScore).
		Dur("elapsed", time.Since(started)).Str("digest", model.Digest.String()).
		Msg("training finished")
	return model, nil
}

// collectEpochSamples extracts labeled samples from every training item.
// The first epoch sees the clean images; later epochs see a freshly
// augmented variant of each. Returns ok=false when the run was cancelled.
func (t *Task) collectEpochSamples(training *entities.Dataset, clf *classifier, epoch int, cancel <-chan struct{}) ([]sample, bool) {
	samples := make([]sample, 0, training.Len()*4)
	for _, item := range training.Items {
		if cancelled(cancel) {
			return nil, false
		}
		pixels := item.Media.Pixels
		if epoch > 0 {
			pixels = datagen.Augment(pixels)
		}
		for _, p := range detector.ProposeRegions(pixels, minProposalArea) {
			target := clf.classIndex(matchLabel(p, item.Scene))
			if target < 0 {
				continue
			}
			samples = append(samples, sample{features: p.Features, target: target})
		}
	}
	return samples, true
}

// matchLabel returns the label name of the ground-truth box best overlapping
// the proposal at IoU 0.5 or better, or the background class.
func matchLabel(p detector.Proposal, scene *entities.AnnotationScene) string {
	bestIoU := 0.5
	label := backgroundClass
	for _, a := range scene.Annotations {
		if len(a.Labels) == 0 {
			continue
		}
		if iou := p.Box.IoU(a.Shape.BoundingBox()); iou >= bestIoU {
			bestIoU = iou
			label = a.Labels[0].Label.Name
		}
	}
	return label
}

// validationItem caches the proposals of one validation image so per-epoch
// scoring does not re-run detection.
type validationItem struct {
	item      *entities.DatasetItem
	proposals []detector.Proposal
}

func (t *Task) extractValidationCache(validation *entities.Dataset, cancel <-chan struct{}) ([]validationItem, bool) {
	cache := make([]validationItem, 0, validation.Len())
	for _, item := range validation.Items {
		if cancelled(cancel) {
			return nil, false
		}
		cache = append(cache, validationItem{
			item:      item,
			proposals: detector.ProposeRegions(item.Media.Pixels, minProposalArea),
		})
	}
	return cache, true
}

// validationScore computes the F-measure of the current weights over the
// cached validation proposals.
func (t *Task) validationScore(clf *classifier, cache []validationItem) float64 {
	if len(cache) == 0 {
		return 0
	}
	var agg matchCounts
	for _, v := range cache {
		predictions := t.predictAnnotations(clf, v.proposals)
		agg = agg.add(matchAnnotations(v.item.Scene.Annotations, predictions))
	}
	return agg.fMeasure()
}
