package task

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ironsheep/shape-trainer/internal/entities"
	"github.com/ironsheep/shape-trainer/internal/logging"
	"github.com/ironsheep/shape-trainer/internal/modelstore"
	"github.com/ironsheep/shape-trainer/internal/params"
	"github.com/ironsheep/shape-trainer/internal/projects"
)

var (
	// ErrTrainingInProgress is returned by Train when another training run
	// is already in flight on the same task.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNoModelLoaded is returned by operations that require a trained
	// model when none is loaded.
	ErrNoModelLoaded = errors.New("no model loaded")
)

// backgroundClass is the implicit class assigned to region proposals that
// match no ground-truth box.
const backgroundClass = "background"

// minProposalArea is the smallest region (in square pixels) considered a
// detection candidate.
const minProposalArea = 100

// Task is a detection task bound to one environment.
//
// The exported methods are safe for the concurrent usage pattern of the
// lifecycle: one goroutine driving Train/Analyse/LoadModel, with
// CancelTraining callable from any goroutine at any time.
type Task struct {
	env    *projects.TaskEnvironment
	params *params.DetectionParameters
	store  *modelstore.Store
	log    zerolog.Logger

	mu       sync.Mutex
	model    *entities.Model
	training bool
	cancel   chan struct{}
}

// New creates a task for the environment, with a fresh scratch directory
// holding the task's model store.
func New(env *projects.TaskEnvironment) (*Task, error) {
	if env == nil || env.Project == nil {
		return nil, fmt.Errorf("task environment is not bound to a project")
	}
	p := env.Params
	if p == nil {
		p = params.NewDetectionParameters()
	}

	scratch, err := os.MkdirTemp("", "shape-task-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch space: %w", err)
	}
	store, err := modelstore.New(scratch)
	if err != nil {
		return nil, err
	}

	t := &Task{
		env:    env,
		params: p,
		store:  store,
		log:    logging.New("task"),
	}
	t.log.Info().Str("project", env.Project.Name).Str("task", env.TaskNode.Name).
		Str("scratch", scratch).Msg("task initialized")
	return t, nil
}

// Environment returns the task's bound environment.
func (t *Task) Environment() *projects.TaskEnvironment { return t.env }

// CancelTraining signals an in-flight Train call to stop. The training loop
// observes the signal between work items, so the call returns well within
// the bounded cancellation window. When no training is active this is a
// no-op.
func (t *Task) CancelTraining() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.training || t.cancel == nil {
		return
	}
	select {
	case <-t.cancel:
		// Already cancelled
	default:
		close(t.cancel)
		t.log.Info().Msg("training cancellation requested")
	}
}

// LoadModel loads the model recorded on the environment from the task's
// store and makes it the active model.
func (t *Task) LoadModel(env *projects.TaskEnvironment) error {
	if env == nil || env.Model.IsNull() {
		return ErrNoModelLoaded
	}

	model, err := t.store.Load(env.Model.Digest)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	t.mu.Lock()
	t.model = model
	t.mu.Unlock()
	env.Model = model

	t.log.Info().Str("digest", model.Digest.String()).Int("epochs", model.TrainedEpochs).
		Msg("model loaded")
	return nil
}

// OptimizeLoadedModel returns deployment-optimized variants of the loaded
// model. The current implementation produces a single int8-quantized model.
func (t *Task) OptimizeLoadedModel() ([]*entities.OptimizedModel, error) {
	t.mu.Lock()
	model := t.model
	t.mu.Unlock()
	if model.IsNull() {
		return nil, ErrNoModelLoaded
	}

	optimized := quantize(model)
	t.log.Info().Str("precision", optimized.Precision).Msg("model optimized")
	return []*entities.OptimizedModel{optimized}, nil
}

// DeleteScratchSpace removes the task's scratch directory, including all
// stored models. The task is unusable afterwards.
func (t *Task) DeleteScratchSpace() error {
	return t.store.Delete()
}

// activeModel returns the loaded model, or an error when none is loaded.
func (t *Task) activeModel() (*entities.Model, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model.IsNull() {
		return nil, ErrNoModelLoaded
	}
	return t.model, nil
}

// beginTraining flips the task into the training state and returns the
// cancellation channel for this run.
func (t *Task) beginTraining() (chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.training {
		return nil, ErrTrainingInProgress
	}
	t.training = true
	t.cancel = make(chan struct{})
	return t.cancel, nil
}

func (t *Task) endTraining() {
	t.mu.Lock()
	t.training = false
	t.cancel = nil
	t.mu.Unlock()
}

func cancelled(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
