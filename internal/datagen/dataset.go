package datagen

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/shape-trainer/internal/entities"
	"github.com/ironsheep/shape-trainer/internal/logging"
)

// Subset split thresholds over the shuffled item order: the first 60% train,
// the next 20% validate, the final 20% test.
const (
	validationFraction = 0.6
	testingFraction    = 0.8
)

// ShapesToBoxes reduces every annotation's shape to its clipped axis-aligned
// bounding box, preserving labels. This is the reduction applied to all
// ground truth before training and scoring.
func ShapesToBoxes(annotations []entities.Annotation) []entities.Annotation {
	out := make([]entities.Annotation, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, a.ToBox())
	}
	return out
}

// SplitSubsets shuffles the items and assigns subsets by fractional position:
// training below 60%, validation from 60% to 80%, testing above 80%.
func SplitSubsets(items []*entities.DatasetItem, rng *rand.Rand) {
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	n := float64(len(items))
	for i, it := range items {
		region := float64(i) / n
		switch {
		case region >= testingFraction:
			it.Subset = entities.SubsetTesting
		case region >= validationFraction:
			it.Subset = entities.SubsetValidation
		default:
			it.Subset = entities.SubsetTraining
		}
	}
}

// BuildDataset generates count annotated images in parallel and assembles
// them into a dataset with subsets already assigned.
//
// Annotation scenes contain box-reduced shapes. When opts.Seed is non-zero
// the dataset is fully deterministic: each image derives its seed from the
// base seed and its index, and the subset shuffle uses the base seed.
func BuildDataset(ctx context.Context, count int, opts GenerateOptions) (*entities.Dataset, error) {
	if count <= 0 {
		return nil, fmt.Errorf("dataset size must be positive, got %d", count)
	}

	log := logging.New("datagen")
	log.Debug().Int("count", count).Int("width", opts.Width).Int("height", opts.Height).
		Msg("generating dataset")

	baseSeed := opts.Seed
	if baseSeed == 0 {
		baseSeed = rand.Int63()
	}

	items := make([]*entities.DatasetItem, count)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			itemOpts := opts
			itemOpts.Seed = baseSeed + int64(i) + 1
			pixels, annotations, err := GenerateRandomAnnotatedImage(itemOpts)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}

			media := entities.NewImage(fmt.Sprintf("image_%d", i), pixels)
			scene := entities.NewAnnotationScene(entities.SceneAnnotation, ShapesToBoxes(annotations))
			items[i] = &entities.DatasetItem{Media: media, Scene: scene}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SplitSubsets(items, rand.New(rand.NewSource(baseSeed)))
	return entities.NewDataset(items), nil
}
