package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/models"
)

// Grab starts a capture of region at fps and returns a reader of raw BGR24 frames, row-major,
// region.Dx()*region.Dy()*3 bytes each. Closing the reader stops the capture.
type Grab func(ctx context.Context, region image.Rectangle, fps float64) (io.ReadCloser, error)

// Screen is a stream source over a window's screen region.
type Screen struct {
	window Window
	fps    float64
	frames io.ReadCloser
	buf    []byte
	index  int
	once   sync.Once
	err    error
}

// OpenScreen finds the window titled title, brings it to the front and starts grabbing its region.
func OpenScreen(ctx context.Context, title string, fps float64, locator WindowLocator, grab Grab) (*Screen, error) {
	w, err := locator.Find(ctx, title)
	if err != nil {
		return nil, err
	}
	// Capture still works on an inactive window, it may just be covered.
	_ = locator.Activate(ctx, w)

	frames, err := grab(ctx, w.Region, fps)
	if err != nil {
		return nil, apperr.Wrap(apperr.UnopenableSource, err, "cannot capture window '%s'", title)
	}
	return &Screen{
		window: w,
		fps:    fps,
		frames: frames,
		buf:    make([]byte, w.Region.Dx()*w.Region.Dy()*3),
	}, nil
}

// Next implements FrameSource.
func (s *Screen) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	if _, err := io.ReadFull(s.frames, s.buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
			return models.Frame{}, io.EOF
		}
		return models.Frame{}, err
	}

	raw, err := gocv.NewMatFromBytes(s.window.Region.Dy(), s.window.Region.Dx(), gocv.MatTypeCV8UC3, s.buf)
	if err != nil {
		return models.Frame{}, fmt.Errorf("failed to wrap screen frame: %w", err)
	}
	// buf is reused for the next frame.
	mat := raw.Clone()
	raw.Close()

	frame := models.Frame{Mat: mat, Index: s.index, Timestamp: time.Now()}
	s.index++
	return frame, nil
}

// Mode implements FrameSource.
func (s *Screen) Mode() Mode { return Stream }

// FPS implements FrameSource.
func (s *Screen) FPS() float64 { return s.fps }

// Describe implements FrameSource.
func (s *Screen) Describe() string {
	return Descriptor{Kind: KindScreen, WindowTitle: s.window.Title}.String()
}

// Close implements FrameSource. It stops the capture and is safe to call more than once.
func (s *Screen) Close() error {
	s.once.Do(func() {
		s.err = s.frames.Close()
	})
	return s.err
}

// ffmpegStream is a running ffmpeg process writing into a pipe.
type ffmpegStream struct {
	*io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (f *ffmpegStream) Close() error {
	f.cancel()
	err := f.PipeReader.Close()
	<-f.done
	return multierr.Append(err, ignoreKilled(f.err))
}

// ignoreKilled drops the exit error ffmpeg reports when it is stopped through its context.
func ignoreKilled(err error) error {
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
		return nil
	}
	return err
}

// FFmpegGrab is a Grab that records an X11 display with ffmpeg's x11grab input.
func FFmpegGrab(ctx context.Context, region image.Rectangle, fps float64) (io.ReadCloser, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg is not installed: %w", err)
	}
	display := os.Getenv("DISPLAY")
	if display == "" {
		return nil, fmt.Errorf("DISPLAY is not set")
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	stream := ffmpeg.Input(fmt.Sprintf("%s+%d,%d", display, region.Min.X, region.Min.Y), ffmpeg.KwArgs{
		"f":          "x11grab",
		"video_size": fmt.Sprintf("%dx%d", region.Dx(), region.Dy()),
		"framerate":  fps,
	}).Output("pipe:", ffmpeg.KwArgs{
		"format":   "rawvideo",
		"pix_fmt":  "bgr24",
		"loglevel": "error",
	})
	stream.Context = ctx

	fs := &ffmpegStream{PipeReader: pr, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(fs.done)
		fs.err = stream.WithOutput(pw).Run()
		if fs.err != nil && ctx.Err() == nil {
			pw.CloseWithError(fmt.Errorf("ffmpeg stopped: %w", fs.err))
			return
		}
		pw.Close()
	}()
	return fs, nil
}
