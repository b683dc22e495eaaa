package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageCacheLoad(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "shapes.png", 20, 10)
	cache := NewImageCache()

	item, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if item.Width() != 20 || item.Height() != 10 {
		t.Errorf("unexpected dimensions: %dx%d", item.Width(), item.Height())
	}
	if item.Name != "shapes" {
		t.Errorf("item should be named after the file stem, got %q", item.Name)
	}

	// Second load returns the same media identity, even after the file is gone
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if again != item {
		t.Error("repeated load of one path should return the same item")
	}

	cache.Evict(path)
	if _, err := cache.Load(path); err == nil {
		t.Error("load after evict should fail for a removed file")
	}
}

func TestImageCacheLoad_Missing(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestImageCacheLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, dir, "b.png", 8, 8)
	writeTestPNG(t, dir, "a.png", 8, 8)
	writeTestPNG(t, dir, "notes.txt.png", 8, 8)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := NewImageCache().LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	// File name order, non-image entries skipped
	if items[0].Name != "a" || items[1].Name != "b" || items[2].Name != "notes.txt" {
		t.Errorf("unexpected item order: %q, %q, %q", items[0].Name, items[1].Name, items[2].Name)
	}
	for i, item := range items {
		if item.Pixels == nil {
			t.Errorf("item %d has no decoded pixels", i)
		}
	}
}

func TestImageCacheLoadDir_Empty(t *testing.T) {
	if _, err := NewImageCache().LoadDir(t.TempDir()); err == nil {
		t.Error("expected error for a directory with no images")
	}
	if _, err := NewImageCache().LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	path := filepath.Join(dir, "out.png")

	if err := Save(img, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := NewImageCache().Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Width() != 16 {
		t.Errorf("round trip changed dimensions: %dx%d", loaded.Width(), loaded.Height())
	}
}

func TestFitWithin(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if got := FitWithin(small, 200); got != small {
		t.Error("images within the limit should be returned unchanged")
	}

	big := image.NewRGBA(image.Rect(0, 0, 400, 200))
	fitted := FitWithin(big, 100)
	if fitted.Bounds().Dx() != 100 || fitted.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50 after fit, got %v", fitted.Bounds())
	}
}
