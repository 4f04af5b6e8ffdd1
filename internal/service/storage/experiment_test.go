package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func setupOutputDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "storage_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

func TestCreateExperimentDir_Sequence(t *testing.T) {
	root, cleanup := setupOutputDir(t)
	defer cleanup()

	expected := []string{"exp", "exp1", "exp2"}
	for _, name := range expected {
		if next := NextExperimentDir(root, "exp"); filepath.Base(next) != name {
			t.Errorf("NextExperimentDir = %s, expected %s", filepath.Base(next), name)
		}
		dir, err := CreateExperimentDir(root, "exp")
		if err != nil {
			t.Fatalf("CreateExperimentDir failed: %v", err)
		}
		if filepath.Base(dir) != name {
			t.Errorf("Expected %s, got %s", name, filepath.Base(dir))
		}
		if !filepath.IsAbs(dir) {
			t.Errorf("Expected absolute path, got %s", dir)
		}
	}
}

func TestCreateExperimentDir_FillsGap(t *testing.T) {
	root, cleanup := setupOutputDir(t)
	defer cleanup()

	os.Mkdir(filepath.Join(root, "exp"), 0755)
	os.Mkdir(filepath.Join(root, "exp2"), 0755)

	dir, err := CreateExperimentDir(root, "exp")
	if err != nil {
		t.Fatalf("CreateExperimentDir failed: %v", err)
	}
	if filepath.Base(dir) != "exp1" {
		t.Errorf("Expected smallest free suffix exp1, got %s", filepath.Base(dir))
	}
}

func TestCreateExperimentDir_Concurrent(t *testing.T) {
	root, cleanup := setupOutputDir(t)
	defer cleanup()

	const runs = 8
	dirs := make([]string, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := CreateExperimentDir(root, "exp")
			if err != nil {
				t.Errorf("CreateExperimentDir failed: %v", err)
				return
			}
			dirs[i] = dir
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] {
			t.Errorf("Directory %s handed out twice", dir)
		}
		seen[dir] = true
	}
}

func TestExperiment_Lazy(t *testing.T) {
	root, cleanup := setupOutputDir(t)
	defer cleanup()

	created := 0
	exp := NewExperiment(filepath.Join(root, "predict"), "exp", func(string) { created++ })

	if _, ok := exp.Created(); ok {
		t.Error("Expected no directory before first use")
	}
	if _, err := os.Stat(filepath.Join(root, "predict")); !os.IsNotExist(err) {
		t.Error("Expected output root to be untouched before first use")
	}

	first, err := exp.Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	second, _ := exp.Dir()
	if first != second {
		t.Errorf("Expected the same directory, got %s and %s", first, second)
	}
	if created != 1 {
		t.Errorf("Expected onCreate once, got %d", created)
	}
	if dir, ok := exp.Created(); !ok || dir != first {
		t.Errorf("Expected Created to report %s", first)
	}
}
