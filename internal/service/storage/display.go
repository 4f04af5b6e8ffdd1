package storage

import (
	"os"
	"runtime"

	"gocv.io/x/gocv"

	"predictor/internal/logger"
	"predictor/internal/models"
)

// HeadlessEnvironment reports whether no display server is reachable.
func HeadlessEnvironment() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

// Screen shows images and reports pressed keys.
type Screen interface {
	// Show draws img and waits up to delay ms (0 waits forever) for a key. It returns the key code,
	// or -1 when none was pressed.
	Show(img gocv.Mat, delay int) int
	Close() error
}

type window struct {
	w *gocv.Window
}

func (w *window) Show(img gocv.Mat, delay int) int {
	w.w.IMShow(img)
	return w.w.WaitKey(delay)
}

func (w *window) Close() error {
	return w.w.Close()
}

// DisplaySink shows annotated frames in a window and turns the q key into ErrQuit.
type DisplaySink struct {
	title    string
	delay    int
	headless bool
	open     func(title string) Screen
	screen   Screen
	warned   bool
	logger   *logger.Logger
}

// NewDisplaySink creates a DisplaySink. delay is the key wait per frame in ms; 0 waits for a key.
// When headless is set, frames are not shown and a single warning is logged.
func NewDisplaySink(title string, delay int, headless bool, logger *logger.Logger) *DisplaySink {
	return &DisplaySink{
		title:    title,
		delay:    delay,
		headless: headless,
		logger:   logger,
		open: func(title string) Screen {
			return &window{w: gocv.NewWindow(title)}
		},
	}
}

// Write implements Sink.
func (s *DisplaySink) Write(_ models.Frame, annotated gocv.Mat, _ []models.Detection) error {
	if s.headless {
		if !s.warned {
			s.logger.Warning("No display available, frames are not shown")
			s.warned = true
		}
		return nil
	}
	if s.screen == nil {
		s.screen = s.open(s.title)
	}
	if key := s.screen.Show(annotated, s.delay); key >= 0 && key&0xFF == 'q' {
		return ErrQuit
	}
	return nil
}

// Close implements Sink.
func (s *DisplaySink) Close() error {
	if s.screen == nil {
		return nil
	}
	err := s.screen.Close()
	s.screen = nil
	return err
}
