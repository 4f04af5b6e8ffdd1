package models

import "image"

// Detection is one object found in a frame. Box is in frame pixel space.
type Detection struct {
	ClassID    int
	Label      string
	Confidence float32
	Box        image.Rectangle
	// Mask is set for segmentation models. It covers the prototype grid, already cropped to Box.
	Mask *image.Alpha
}

// DetectionRecord represents a persisted detection row.
type DetectionRecord struct {
	ID         int64   `json:"id"`
	ArtifactID int64   `json:"artifact_id"`
	Frame      int     `json:"frame"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// NewDetectionRecord flattens d for storage.
func NewDetectionRecord(artifactID int64, frame int, d Detection) DetectionRecord {
	return DetectionRecord{
		ArtifactID: artifactID,
		Frame:      frame,
		ClassID:    d.ClassID,
		Label:      d.Label,
		X:          d.Box.Min.X,
		Y:          d.Box.Min.Y,
		Width:      d.Box.Dx(),
		Height:     d.Box.Dy(),
		Confidence: float64(d.Confidence),
	}
}
