package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/models"
	"predictor/internal/prompt"
)

// ImageSet is a batch source over image files, read in order.
type ImageSet struct {
	paths []string
	next  int
}

// NewImageSet creates an ImageSet. paths are not checked until read.
func NewImageSet(paths []string) *ImageSet {
	return &ImageSet{paths: append([]string(nil), paths...)}
}

// Next implements FrameSource. A file that does not decode yields UnreadableFrame with Name set.
func (s *ImageSet) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	if s.next >= len(s.paths) {
		return models.Frame{}, io.EOF
	}

	index, path := s.next, s.paths[s.next]
	s.next++

	frame := models.Frame{Index: index, Name: path, Timestamp: time.Now()}
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return frame, apperr.New(apperr.UnreadableFrame, "cannot read image %s", path)
	}
	frame.Mat = mat
	return frame, nil
}

// Mode implements FrameSource.
func (s *ImageSet) Mode() Mode { return Batch }

// FPS implements FrameSource.
func (s *ImageSet) FPS() float64 { return 0 }

// Len returns the number of inputs.
func (s *ImageSet) Len() int { return len(s.paths) }

// Describe implements FrameSource.
func (s *ImageSet) Describe() string {
	return Descriptor{Kind: KindImages, Paths: s.paths}.String()
}

// Close implements FrameSource.
func (s *ImageSet) Close() error { return nil }

// ExpandImagePaths resolves files and directories into image files. Directories contribute their
// image files, sorted by name, without recursion. Every entry must exist.
func ExpandImagePaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, apperr.Wrap(apperr.MissingInputPath, err, "input path does not exist: %s", p)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, apperr.Wrap(apperr.MissingInputPath, err, "cannot read directory %s", p)
		}
		var files []string
		for _, entry := range entries {
			if !entry.IsDir() && prompt.HasExtension(entry.Name(), prompt.ImageExtensions) {
				files = append(files, filepath.Join(p, entry.Name()))
			}
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}
