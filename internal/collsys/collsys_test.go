package collsys

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readRecords(t *testing.T, dir string) []Record {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one session file, got %d", len(entries))
	}

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("malformed record line: %v", err)
		}
		records = append(records, r)
	}
	return records
}

func countKind(records []Record, kind string) int {
	n := 0
	for _, r := range records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func TestSessionLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvCollectionDir, dir)

	s := NewSession("main", map[string]string{
		"scenario": "api_training",
		"subject":  "custom-object-detection",
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.LogInternalMetric("checkpoint", "0", true)
	s.LogInternalMetric("checkpoint", "1", false)
	s.LogFinalMetric("score_before_reload", 0.875)
	s.UpdateMetadata("learning_parameters.num_epochs", "5")

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records := readRecords(t, dir)
	if got := countKind(records, "setup"); got != 2 {
		t.Errorf("setup records: got %d, want 2", got)
	}
	if got := countKind(records, "internal"); got != 2 {
		t.Errorf("internal records: got %d, want 2", got)
	}
	if got := countKind(records, "final"); got != 1 {
		t.Errorf("final records: got %d, want 1", got)
	}
	if got := countKind(records, "metadata"); got != 1 {
		t.Errorf("metadata records: got %d, want 1", got)
	}

	for _, r := range records {
		if r.Kind == "final" && r.Value != "0.875" {
			t.Errorf("final metric value: got %q, want 0.875", r.Value)
		}
	}
}

func TestSessionDoubleStart(t *testing.T) {
	t.Setenv(EnvCollectionDir, t.TempDir())

	s := NewSession("main", nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestSessionRecordsBeforeStartAreDropped(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvCollectionDir, dir)

	s := NewSession("main", nil)
	s.LogFinalMetric("orphan", 1) // must not panic

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if got := countKind(readRecords(t, dir), "final"); got != 0 {
		t.Errorf("records before Start should be dropped, found %d", got)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	t.Setenv(EnvCollectionDir, t.TempDir())

	s := NewSession("main", nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}
