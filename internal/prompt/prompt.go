// Package prompt asks the operator for menu choices, confirmations and files.
package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"predictor/internal/apperr"
)

// Prompter is the operator dialogue used by the front ends.
type Prompter interface {
	// Ask shows title and returns the typed answer, trimmed.
	Ask(title string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
	// PickFile returns one file whose extension is in exts. An empty choice is UserCancelled.
	PickFile(title string, exts []string) (string, error)
	// PickFiles returns one or more files. Picking a directory selects every matching file in it.
	PickFiles(title string, exts []string) ([]string, error)
}

// ImageExtensions lists the still-image formats the image front end accepts.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// VideoExtensions lists the containers offered by the video file picker.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// HasExtension reports whether path ends with one of exts, ignoring case.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// expandPick turns a picked path into the files it designates.
func expandPick(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.MissingInputPath, err, "path does not exist: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.MissingInputPath, err, "cannot read directory %s", path)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !HasExtension(entry.Name(), exts) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, apperr.New(apperr.UserCancelled, "no matching files in %s", path)
	}
	return files, nil
}

func parseYesNo(answer string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}
