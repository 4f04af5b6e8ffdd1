package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/models"
)

// Video is a stream source backed by an OpenCV capture: a camera or a video file.
type Video struct {
	capture *gocv.VideoCapture
	desc    Descriptor
	index   int
	once    sync.Once
	err     error
}

// OpenCamera opens the camera at device and requests a width x height capture. Zero sizes keep the
// driver default.
func OpenCamera(device, width, height int) (*Video, error) {
	desc := Descriptor{Kind: KindCamera, Device: device}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		return nil, apperr.Wrap(apperr.UnopenableSource, err, "cannot open video source (%s)", desc)
	}
	if width > 0 && height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Video{capture: capture, desc: desc}, nil
}

// OpenVideoFile opens a video file for reading.
func OpenVideoFile(path string) (*Video, error) {
	desc := Descriptor{Kind: KindVideo, VideoPath: path}
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		return nil, apperr.Wrap(apperr.UnopenableSource, err, "cannot open video source (%s)", desc)
	}
	return &Video{capture: capture, desc: desc}, nil
}

// Next implements FrameSource. A failed read ends the stream.
func (v *Video) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return models.Frame{}, io.EOF
	}
	frame := models.Frame{Mat: mat, Index: v.index, Timestamp: time.Now()}
	v.index++
	return frame, nil
}

// Mode implements FrameSource.
func (v *Video) Mode() Mode { return Stream }

// FPS implements FrameSource.
func (v *Video) FPS() float64 {
	return v.capture.Get(gocv.VideoCaptureFPS)
}

// Describe implements FrameSource.
func (v *Video) Describe() string { return v.desc.String() }

// Close implements FrameSource. It is safe to call more than once.
func (v *Video) Close() error {
	v.once.Do(func() {
		v.err = v.capture.Close()
	})
	return v.err
}
