package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"predictor/internal/models"
)

// Broadcaster delivers preview messages to viewers.
type Broadcaster interface {
	Broadcast(message []byte) bool
	GetClientCount() int
}

// PreviewMessage is the JSON document sent to preview viewers.
type PreviewMessage struct {
	Source     string    `json:"source"`
	Frame      int       `json:"frame"`
	Timestamp  time.Time `json:"timestamp"`
	Detections int       `json:"detections"`
	Labels     []string  `json:"labels"`
	Image      string    `json:"image"` // base64 JPEG
}

// PreviewSink sends downscaled JPEG copies of annotated frames to the preview hub.
type PreviewSink struct {
	hub       Broadcaster
	source    string
	maxWidth  int
	maxHeight int
	quality   int
}

// NewPreviewSink creates a PreviewSink. Frames are fitted into 640x480.
func NewPreviewSink(hub Broadcaster, source string) *PreviewSink {
	return &PreviewSink{hub: hub, source: source, maxWidth: 640, maxHeight: 480, quality: 80}
}

// Write implements Sink. Nothing is encoded while no viewer is connected.
func (s *PreviewSink) Write(frame models.Frame, annotated gocv.Mat, detections []models.Detection) error {
	if s.hub == nil || s.hub.GetClientCount() == 0 {
		return nil
	}
	msg, err := s.encode(frame, annotated, detections)
	if err != nil {
		return err
	}
	s.hub.Broadcast(msg)
	return nil
}

func (s *PreviewSink) encode(frame models.Frame, annotated gocv.Mat, detections []models.Detection) ([]byte, error) {
	img, err := annotated.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	thumb := imaging.Fit(img, s.maxWidth, s.maxHeight, imaging.Linear)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	labels := make([]string, len(detections))
	for i, d := range detections {
		labels[i] = d.Label
	}
	return json.Marshal(PreviewMessage{
		Source:     s.source,
		Frame:      frame.Index,
		Timestamp:  frame.Timestamp,
		Detections: len(detections),
		Labels:     labels,
		Image:      base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// Close implements Sink.
func (s *PreviewSink) Close() error { return nil }
