package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/prompt"
)

// ImageSink writes each annotated frame as output_<basename> into the experiment directory.
type ImageSink struct {
	experiment *Experiment
	ledger     *Ledger
	logger     *logger.Logger
	used       map[string]int
	saved      []string
}

// NewImageSink creates an ImageSink.
func NewImageSink(experiment *Experiment, ledger *Ledger, logger *logger.Logger) *ImageSink {
	return &ImageSink{
		experiment: experiment,
		ledger:     ledger,
		logger:     logger,
		used:       make(map[string]int),
	}
}

// outputName builds the artifact file name for a frame. Repeated names get a _N suffix so no
// artifact is overwritten within a run.
func (s *ImageSink) outputName(frame models.Frame) string {
	base := filepath.Base(frame.Name)
	if frame.Name == "" {
		base = fmt.Sprintf("frame_%06d.jpg", frame.Index)
	}
	if !prompt.HasExtension(base, prompt.ImageExtensions) {
		base += ".jpg"
	}
	name := "output_" + base

	n := s.used[name]
	s.used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n) + ext
}

// Write implements Sink.
func (s *ImageSink) Write(frame models.Frame, annotated gocv.Mat, detections []models.Detection) error {
	dir, err := s.experiment.Dir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, s.outputName(frame))
	if ok := gocv.IMWrite(path, annotated); !ok {
		return fmt.Errorf("failed to write %s", path)
	}
	s.saved = append(s.saved, path)
	s.ledger.AddArtifact(path, models.ArtifactImage, 1, detections)
	s.logger.Info("result saved to %s", path)
	return nil
}

// Artifacts returns the written files in order.
func (s *ImageSink) Artifacts() []string {
	return s.saved
}

// Close implements Sink.
func (s *ImageSink) Close() error { return nil }
