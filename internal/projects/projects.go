// Package projects manages projects, task nodes, and the environments that
// bind them to a detection task.
package projects

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/shape-trainer/internal/entities"
	"github.com/ironsheep/shape-trainer/internal/params"
)

// TaskNode is a single task slot within a project.
type TaskNode struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Project groups a label schema with the task nodes operating on it.
type Project struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Labels      []entities.Label `json:"labels"`
	Tasks       []TaskNode       `json:"tasks"`
	Params      *params.DetectionParameters
}

// GetLabels returns the project's label schema.
func (p *Project) GetLabels() []entities.Label { return p.Labels }

// TaskEnvironment binds a project, one of its task nodes, the configurable
// parameters, and the currently active model. It is the unit of state handed
// to a detection task.
type TaskEnvironment struct {
	Project  *Project
	TaskNode TaskNode
	Params   *params.DetectionParameters
	Model    *entities.Model
}

// NewTaskEnvironment binds a project's last task node into an environment.
func NewTaskEnvironment(p *Project) *TaskEnvironment {
	return &TaskEnvironment{
		Project:  p,
		TaskNode: p.Tasks[len(p.Tasks)-1],
		Params:   p.Params,
	}
}

// Factory creates and tracks projects. It is safe for concurrent use.
type Factory struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*Project
}

// NewFactory returns an empty project factory.
func NewFactory() *Factory {
	return &Factory{projects: make(map[uuid.UUID]*Project)}
}

// CreateProjectSingleTask creates a project with one task node and a label
// schema built from the given class names. Each label is assigned a distinct
// display color from a generated palette.
func (f *Factory) CreateProjectSingleTask(name, description string, labelNames []string, taskName string, p *params.DetectionParameters) (*Project, error) {
	if len(labelNames) == 0 {
		return nil, fmt.Errorf("project needs at least one label")
	}
	if p == nil {
		p = params.NewDetectionParameters()
	}

	labels := make([]entities.Label, 0, len(labelNames))
	palette := labelPalette(len(labelNames))
	for i, ln := range labelNames {
		labels = append(labels, entities.NewLabel(ln, palette[i]))
	}

	project := &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Labels:      labels,
		Tasks:       []TaskNode{{ID: uuid.New(), Name: taskName}},
		Params:      p,
	}

	f.mu.Lock()
	f.projects[project.ID] = project
	f.mu.Unlock()
	return project, nil
}

// DeleteProject removes a project from the factory.
func (f *Factory) DeleteProject(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return fmt.Errorf("project %s not found", id)
	}
	delete(f.projects, id)
	return nil
}

// Get returns the project with the given id, or nil when unknown.
func (f *Factory) Get(id uuid.UUID) *Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[id]
}

// labelPalette returns n visually distinct hex colors.
//
// The happy palette generator can fail to converge for large n; evenly spaced
// hues are the fallback.
func labelPalette(n int) []string {
	out := make([]string, 0, n)
	if colors, err := colorful.HappyPalette(n); err == nil {
		for _, c := range colors {
			out = append(out, c.Hex())
		}
		return out
	}
	for i := 0; i < n; i++ {
		c := colorful.Hsv(float64(i)*360.0/float64(n), 0.85, 0.85)
		out = append(out, c.Hex())
	}
	return out
}
