package storage

import (
	"fmt"
	"math"
	"path/filepath"

	"gocv.io/x/gocv"

	"predictor/internal/logger"
	"predictor/internal/models"
)

// DefaultFPS is the container rate used when the source reports none.
const DefaultFPS = 25.0

// EffectiveFPS returns rate, or DefaultFPS when rate is not a positive finite number.
func EffectiveFPS(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return DefaultFPS
	}
	return rate
}

// FrameWriter appends frames to a video container.
type FrameWriter interface {
	Write(img gocv.Mat) error
	Close() error
}

// WriterOpener opens a FrameWriter for frames of width x height.
type WriterOpener func(path, codec string, fps float64, width, height int) (FrameWriter, error)

// OpenVideoWriter is the WriterOpener backed by OpenCV.
func OpenVideoWriter(path, codec string, fps float64, width, height int) (FrameWriter, error) {
	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("failed to open video writer %s with codec %s", path, codec)
	}
	return writer, nil
}

// VideoSink appends annotated frames to one video file. The file is opened on the first frame, sized
// after it, so a run that produces no frame writes no file.
type VideoSink struct {
	experiment *Experiment
	name       string
	codec      string
	fps        float64
	open       WriterOpener
	ledger     *Ledger
	logger     *logger.Logger

	writer     FrameWriter
	path       string
	frames     int
	detections int
	artifactID int64
	closed     bool
}

// NewVideoSink creates a VideoSink writing name into the experiment directory at EffectiveFPS(rate).
func NewVideoSink(experiment *Experiment, name, codec string, rate float64, open WriterOpener,
	ledger *Ledger, logger *logger.Logger) *VideoSink {
	if open == nil {
		open = OpenVideoWriter
	}
	return &VideoSink{
		experiment: experiment,
		name:       name,
		codec:      codec,
		fps:        EffectiveFPS(rate),
		open:       open,
		ledger:     ledger,
		logger:     logger,
	}
}

// Write implements Sink.
func (s *VideoSink) Write(frame models.Frame, annotated gocv.Mat, detections []models.Detection) error {
	if s.closed {
		return fmt.Errorf("video sink is closed")
	}
	if s.writer == nil {
		dir, err := s.experiment.Dir()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, s.name)
		writer, err := s.open(path, s.codec, s.fps, annotated.Cols(), annotated.Rows())
		if err != nil {
			return err
		}
		s.writer, s.path = writer, path
		s.artifactID = s.ledger.AddArtifact(path, models.ArtifactVideo, 0, nil)
		s.logger.Info("inference video will be saved to %s (%.2f fps)", path, s.fps)
	}

	if err := s.writer.Write(annotated); err != nil {
		return fmt.Errorf("failed to write video frame: %w", err)
	}
	s.ledger.AddDetections(s.artifactID, s.frames, detections)
	s.frames++
	s.detections += len(detections)
	return nil
}

// Path returns the video file, or "" when nothing was written.
func (s *VideoSink) Path() string { return s.path }

// Artifacts returns the video file once it has been opened.
func (s *VideoSink) Artifacts() []string {
	if s.path == "" {
		return nil
	}
	return []string{s.path}
}

// Frames returns the number of frames written.
func (s *VideoSink) Frames() int { return s.frames }

// FPS returns the container rate.
func (s *VideoSink) FPS() float64 { return s.fps }

// Close implements Sink. The writer is released exactly once.
func (s *VideoSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.ledger.UpdateArtifact(s.artifactID, s.frames, s.detections)
	s.logger.Info("inference video saved to %s (%d frames)", s.path, s.frames)
	return err
}
