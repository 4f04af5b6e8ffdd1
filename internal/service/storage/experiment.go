package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// experimentPath returns root/name for suffix 0 and root/name<suffix> otherwise.
func experimentPath(root, name string, suffix int) string {
	if suffix == 0 {
		return filepath.Join(root, name)
	}
	return filepath.Join(root, name+strconv.Itoa(suffix))
}

// NextExperimentDir returns the first of name, name1, name2, ... under root that does not exist.
func NextExperimentDir(root, name string) string {
	for suffix := 0; ; suffix++ {
		path := experimentPath(root, name, suffix)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path
		}
	}
}

// CreateExperimentDir creates the first free experiment directory under root and returns its
// absolute path. An existing directory is never reused, even when another process creates it first.
func CreateExperimentDir(root, name string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	for suffix := 0; ; suffix++ {
		path := experimentPath(root, name, suffix)
		err := os.Mkdir(path, 0755)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create experiment directory: %w", err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return path, nil
	}
}

// Experiment creates its directory on first use, so runs that persist nothing leave nothing behind.
type Experiment struct {
	root     string
	name     string
	once     sync.Once
	dir      string
	err      error
	onCreate func(dir string)
}

// NewExperiment creates an Experiment under root. onCreate, when set, is called once with the new
// directory.
func NewExperiment(root, name string, onCreate func(dir string)) *Experiment {
	return &Experiment{root: root, name: name, onCreate: onCreate}
}

// Dir returns the experiment directory, creating it on the first call.
func (e *Experiment) Dir() (string, error) {
	e.once.Do(func() {
		e.dir, e.err = CreateExperimentDir(e.root, e.name)
		if e.err == nil && e.onCreate != nil {
			e.onCreate(e.dir)
		}
	})
	return e.dir, e.err
}

// Created returns the directory and true once Dir has succeeded.
func (e *Experiment) Created() (string, bool) {
	if e.dir == "" {
		return "", false
	}
	return e.dir, true
}
