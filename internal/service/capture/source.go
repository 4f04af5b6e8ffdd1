// Package capture opens the frame sources the front ends read from: still images, cameras, video files
// and a screen region.
package capture

import (
	"context"
	"fmt"

	"predictor/internal/config"
	"predictor/internal/models"
)

// Mode tells the pipeline whether a source is finite and known up front.
type Mode int

const (
	// Batch sources hold a fixed list of inputs.
	Batch Mode = iota
	// Stream sources are read lazily, one pass, until they end or are cancelled.
	Stream
)

func (m Mode) String() string {
	if m == Batch {
		return "batch"
	}
	return "stream"
}

// FrameSource yields frames in order.
type FrameSource interface {
	// Next returns the next frame. It returns io.EOF at the end of the input and an apperr
	// UnreadableFrame error for a single input that cannot be decoded; reading may continue after it.
	Next(ctx context.Context) (models.Frame, error)
	Mode() Mode
	// FPS is the rate reported by the source, or 0 when unknown.
	FPS() float64
	Describe() string
	Close() error
}

// Kind selects the source implementation.
type Kind int

const (
	KindImages Kind = iota
	KindCamera
	KindVideo
	KindScreen
)

// Descriptor is the operator's source choice.
type Descriptor struct {
	Kind        Kind
	Paths       []string // KindImages
	Device      int      // KindCamera
	VideoPath   string   // KindVideo
	WindowTitle string   // KindScreen
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindImages:
		if len(d.Paths) == 1 {
			return d.Paths[0]
		}
		return fmt.Sprintf("%d images", len(d.Paths))
	case KindCamera:
		return fmt.Sprintf("camera %d", d.Device)
	case KindVideo:
		return d.VideoPath
	case KindScreen:
		return fmt.Sprintf("window %q", d.WindowTitle)
	}
	return "unknown source"
}

// Open creates the FrameSource described by desc.
func Open(ctx context.Context, desc Descriptor, cfg *config.Config) (FrameSource, error) {
	switch desc.Kind {
	case KindImages:
		return NewImageSet(desc.Paths), nil
	case KindCamera:
		return OpenCamera(desc.Device, cfg.CameraWidth, cfg.CameraHeight)
	case KindVideo:
		return OpenVideoFile(desc.VideoPath)
	case KindScreen:
		return OpenScreen(ctx, desc.WindowTitle, cfg.ScreenFPS, NewXDoTool(), FFmpegGrab)
	}
	return nil, fmt.Errorf("unknown source kind %d", desc.Kind)
}
