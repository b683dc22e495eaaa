package projects

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ironsheep/shape-trainer/internal/params"
)

func TestCreateProjectSingleTask(t *testing.T) {
	f := NewFactory()

	project, err := f.CreateProjectSingleTask(
		"DetectionTestProject", "synthetic shapes",
		[]string{"rectangle", "ellipse", "triangle"},
		"DetectionTestTask", nil)
	if err != nil {
		t.Fatalf("CreateProjectSingleTask failed: %v", err)
	}

	if len(project.GetLabels()) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(project.GetLabels()))
	}
	if len(project.Tasks) != 1 {
		t.Fatalf("expected 1 task node, got %d", len(project.Tasks))
	}
	if project.Params == nil {
		t.Fatal("nil params should default")
	}

	// Labels get distinct display colors
	seen := map[string]bool{}
	for _, l := range project.GetLabels() {
		if l.Color == "" {
			t.Errorf("label %q has no color", l.Name)
		}
		if seen[l.Color] {
			t.Errorf("duplicate label color %q", l.Color)
		}
		seen[l.Color] = true
	}
}

func TestCreateProject_NoLabels(t *testing.T) {
	f := NewFactory()
	if _, err := f.CreateProjectSingleTask("p", "", nil, "t", nil); err == nil {
		t.Error("expected error when creating a project without labels")
	}
}

func TestDeleteProject(t *testing.T) {
	f := NewFactory()
	project, err := f.CreateProjectSingleTask("p", "", []string{"rectangle"}, "t", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.DeleteProject(project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if f.Get(project.ID) != nil {
		t.Error("project should be gone after deletion")
	}
	if err := f.DeleteProject(uuid.New()); err == nil {
		t.Error("deleting an unknown project should fail")
	}
}

func TestNewTaskEnvironment(t *testing.T) {
	f := NewFactory()
	p := params.NewDetectionParameters()
	project, err := f.CreateProjectSingleTask("p", "", []string{"rectangle"}, "detect", p)
	if err != nil {
		t.Fatal(err)
	}

	env := NewTaskEnvironment(project)
	if env.TaskNode.Name != "detect" {
		t.Errorf("environment should bind the last task node, got %q", env.TaskNode.Name)
	}
	if env.Params != p {
		t.Error("environment should carry the project params")
	}
	if env.Model != nil {
		t.Error("fresh environment should have no model")
	}
}
