package models

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is one decoded input. The pipeline loop owns Mat and closes it after the frame is persisted.
type Frame struct {
	Mat       gocv.Mat
	Index     int
	Name      string // source file path for images, empty for streams
	Timestamp time.Time
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	if f.Mat.Ptr() == nil {
		return nil
	}
	return f.Mat.Close()
}
