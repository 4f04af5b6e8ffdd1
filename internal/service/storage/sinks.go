// Package storage persists annotated frames: experiment directories, image and video files, the
// display window, the live preview and the run ledger.
package storage

import (
	"errors"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"predictor/internal/models"
)

// ErrQuit is returned by a sink when the operator asked to stop.
var ErrQuit = errors.New("quit requested")

// Sink consumes annotated frames.
type Sink interface {
	// Write persists one annotated frame. frame.Mat is the raw input and annotated the rendered copy.
	Write(frame models.Frame, annotated gocv.Mat, detections []models.Detection) error
	Close() error
}

// Sinks writes every frame to each sink in order.
type Sinks []Sink

// Write implements Sink. Every sink sees the frame before a quit request is reported.
func (s Sinks) Write(frame models.Frame, annotated gocv.Mat, detections []models.Detection) error {
	quit := false
	for _, sink := range s {
		err := sink.Write(frame, annotated, detections)
		if errors.Is(err, ErrQuit) {
			quit = true
			continue
		}
		if err != nil {
			return err
		}
	}
	if quit {
		return ErrQuit
	}
	return nil
}

// Close implements Sink. All sinks are closed; errors are combined.
func (s Sinks) Close() error {
	var err error
	for _, sink := range s {
		err = multierr.Append(err, sink.Close())
	}
	return err
}

// Artifacts lists the files written so far by the sinks that produce files.
func (s Sinks) Artifacts() []string {
	var out []string
	for _, sink := range s {
		if a, ok := sink.(interface{ Artifacts() []string }); ok {
			out = append(out, a.Artifacts()...)
		}
	}
	return out
}
