package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/shape-trainer/internal/collsys"
	"github.com/ironsheep/shape-trainer/internal/datagen"
	"github.com/ironsheep/shape-trainer/internal/entities"
	"github.com/ironsheep/shape-trainer/internal/logging"
	"github.com/ironsheep/shape-trainer/internal/media"
	"github.com/ironsheep/shape-trainer/internal/params"
	"github.com/ironsheep/shape-trainer/internal/projects"
	"github.com/ironsheep/shape-trainer/internal/task"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "shape-trainer",
		Short:        "Train and evaluate shape detection models on synthetic data",
		SilenceUsage: true,
	}
	cmd.AddCommand(newGenerateCmd(), newTrainCmd(), newAnalyseCmd(), newVersionCmd())
	return cmd
}

type datasetFlags struct {
	count     int
	width     int
	height    int
	maxShapes int
	minSize   int
	maxSize   int
	seed      int64
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.count, "count", 32, "number of images to generate")
	cmd.Flags().IntVar(&f.width, "width", 640, "image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 480, "image height in pixels")
	cmd.Flags().IntVar(&f.maxShapes, "max-shapes", 20, "maximum shapes per image")
	cmd.Flags().IntVar(&f.minSize, "min-size", 50, "minimum shape extent in pixels")
	cmd.Flags().IntVar(&f.maxSize, "max-size", 100, "maximum shape extent in pixels")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "generation seed (0 picks a random one)")
}

func (f *datasetFlags) build(ctx context.Context, labels []entities.Label) (*entities.Dataset, error) {
	return datagen.BuildDataset(ctx, f.count, datagen.GenerateOptions{
		Width:     f.width,
		Height:    f.height,
		Labels:    labels,
		MaxShapes: f.maxShapes,
		MinSize:   f.minSize,
		MaxSize:   f.maxSize,
		Seed:      f.seed,
	})
}

func newGenerateCmd() *cobra.Command {
	var flags datasetFlags
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an annotated synthetic dataset on disk",
		Example: `
  shape-trainer generate --count 64 --out ./dataset
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			log := logging.New("generate")
			project := newDefaultProject(nil)
			dataset, err := flags.build(ctx, project.Labels)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}
			for _, item := range dataset.Items {
				path := filepath.Join(outDir, item.Media.Name+".png")
				if err := media.Save(item.Media.Pixels, path); err != nil {
					return err
				}
			}

			annPath := filepath.Join(outDir, "annotations.json")
			data, err := json.MarshalIndent(dataset, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode annotations: %w", err)
			}
			if err := os.WriteFile(annPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write annotations: %w", err)
			}

			log.Info().Int("images", dataset.Len()).Str("dir", outDir).Msg("dataset written")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", "dataset", "output directory")
	return cmd
}

func newTrainCmd() *cobra.Command {
	var flags datasetFlags
	var templatePath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a detection model and report its held-out F-measure",
		Example: `
  shape-trainer train --count 64 --template template.yaml
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			log := logging.New("train")

			p := params.NewDetectionParameters()
			if templatePath != "" {
				var err error
				if p, err = params.LoadTemplate(templatePath); err != nil {
					return err
				}
			}

			session := collsys.NewSession("cli-training", map[string]string{
				"task": "shape-detection",
			})
			if err := session.Start(); err != nil {
				return err
			}
			defer session.Close()
			for k, v := range p.Flatten() {
				session.UpdateMetadata(k, v)
			}

			project := newDefaultProject(p)
			env := projects.NewTaskEnvironment(project)
			tk, err := task.New(env)
			if err != nil {
				return err
			}
			defer tk.DeleteScratchSpace()

			dataset, err := flags.build(ctx, project.Labels)
			if err != nil {
				return err
			}
			session.LogInternalMetric("dataset_ready", fmt.Sprintf("%d items", dataset.Len()), true)

			// Interrupt cancels the in-flight training run.
			go func() {
				<-ctx.Done()
				tk.CancelTraining()
			}()

			model, err := tk.Train(dataset)
			if err != nil {
				return err
			}
			if model.IsNull() {
				return fmt.Errorf("training was cancelled before producing a model")
			}
			session.LogInternalMetric("training_finished",
				fmt.Sprintf("%d epochs", model.TrainedEpochs), true)
			session.UpdateMetadata("model_digest", model.Digest.String())

			held := dataset.Filter(entities.SubsetTesting)
			predictions, err := tk.Analyse(held.WithEmptyAnnotations())
			if err != nil {
				return err
			}
			perf, err := tk.ComputePerformance(&entities.ResultSet{
				Model:             model,
				GroundTruth:       held,
				PredictionDataset: predictions,
			})
			if err != nil {
				return err
			}
			session.LogFinalMetric("f_measure", perf.Score.Value)

			log.Info().Float64("f_measure", perf.Score.Value).
				Str("digest", model.Digest.String()).Msg("training run complete")
			fmt.Printf("f-measure on %d held-out images: %.3f\n", held.Len(), perf.Score.Value)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&templatePath, "template", "", "YAML parameter template to load")
	return cmd
}

func newAnalyseCmd() *cobra.Command {
	var flags datasetFlags
	var templatePath string
	var imageDir string

	cmd := &cobra.Command{
		Use:   "analyse",
		Short: "Train on synthetic data, then detect shapes in a directory of images",
		Example: `
  shape-trainer analyse --dir ./images
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			log := logging.New("analyse")

			p := params.NewDetectionParameters()
			if templatePath != "" {
				var err error
				if p, err = params.LoadTemplate(templatePath); err != nil {
					return err
				}
			}

			// Images are loaded up front so a bad directory fails before the
			// training run is spent.
			cache := media.NewImageCache()
			images, err := cache.LoadDir(imageDir)
			if err != nil {
				return err
			}

			project := newDefaultProject(p)
			env := projects.NewTaskEnvironment(project)
			tk, err := task.New(env)
			if err != nil {
				return err
			}
			defer tk.DeleteScratchSpace()

			dataset, err := flags.build(ctx, project.Labels)
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				tk.CancelTraining()
			}()

			model, err := tk.Train(dataset)
			if err != nil {
				return err
			}
			if model.IsNull() {
				return fmt.Errorf("training was cancelled before producing a model")
			}
			log.Info().Int("epochs", model.TrainedEpochs).Int("images", len(images)).
				Msg("model trained, analysing images")

			items := make([]*entities.DatasetItem, 0, len(images))
			for _, img := range images {
				items = append(items, &entities.DatasetItem{
					Media: img,
					Scene: entities.NewAnnotationScene(entities.ScenePrediction, nil),
				})
			}
			predictions, err := tk.Analyse(entities.NewDataset(items))
			if err != nil {
				return err
			}

			for _, item := range predictions.Items {
				fmt.Printf("%s: %d detections\n", item.Media.Name, len(item.Scene.Annotations))
				for _, a := range item.Scene.Annotations {
					l := a.Labels[0]
					fmt.Printf("  %-10s %.2f %s\n", l.Label.Name, l.Probability, a.Shape.BoundingBox())
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&templatePath, "template", "", "YAML parameter template to load")
	cmd.Flags().StringVar(&imageDir, "dir", "", "directory of images to analyse")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shape-trainer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}
}

func newDefaultProject(p *params.DetectionParameters) *projects.Project {
	factory := projects.NewFactory()
	project, err := factory.CreateProjectSingleTask(
		"shape-trainer", "synthetic shape detection",
		[]string{"rectangle", "ellipse", "triangle"},
		"shape-detection", p)
	if err != nil {
		panic(err) // Label list is non-empty, cannot fail
	}
	return project
}
