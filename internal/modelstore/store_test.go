package modelstore

import (
	"path/filepath"
	"testing"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

func testModel() *entities.Model {
	return entities.NewModel("detector", 5, entities.ModelWeights{
		Classes:      []string{"rectangle", "ellipse", "triangle", "background"},
		FeatureCount: 3,
		Coefficients: [][]float64{
			{0.125, -1.75, 0.0625, 0.5},
			{1.0, 2.0, 3.0, -4.0},
			{0.1, 0.2, 0.3, 0.4},
			{-0.5, 0.25, -0.125, 0},
		},
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "scratch"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	model := testModel()
	dgst, err := store.Save(model)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if model.Digest != dgst {
		t.Errorf("digest not recorded on model: %q vs %q", model.Digest, dgst)
	}

	loaded, err := store.Load(dgst)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != model.ID {
		t.Errorf("model id changed: %s vs %s", loaded.ID, model.ID)
	}
	if loaded.TrainedEpochs != model.TrainedEpochs {
		t.Errorf("epochs changed: %d vs %d", loaded.TrainedEpochs, model.TrainedEpochs)
	}

	// Weights must round-trip bit-exact
	for i, row := range model.Weights.Coefficients {
		for j, v := range row {
			if loaded.Weights.Coefficients[i][j] != v {
				t.Fatalf("coefficient [%d][%d] changed: %v vs %v",
					i, j, loaded.Weights.Coefficients[i][j], v)
			}
		}
	}
}

func TestSaveDeterministicDigest(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	model := testModel()
	d1, err := store.Save(model)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := store.Save(model)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("saving the same model twice gave different digests: %s vs %s", d1, d2)
	}
}

func TestSaveNullModel(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(entities.NewNullModel()); err == nil {
		t.Error("saving the null model should fail")
	}
}

func TestLoadUnknownDigest(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("sha256:0000000000000000000000000000000000000000000000000000000000000000"); err == nil {
		t.Error("loading an unknown digest should fail")
	}
	if _, err := store.Load("not-a-digest"); err == nil {
		t.Error("loading a malformed digest should fail")
	}
}

func TestDelete(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	store, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	model := testModel()
	dgst, err := store.Save(model)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(dgst); err == nil {
		t.Error("load should fail after store deletion")
	}
}
