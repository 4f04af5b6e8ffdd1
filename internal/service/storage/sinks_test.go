package storage

import (
	"errors"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"predictor/internal/logger"
	"predictor/internal/models"
)

type fakeSink struct {
	writes   int
	writeErr error
	closeErr error
	closed   int
}

func (f *fakeSink) Write(models.Frame, gocv.Mat, []models.Detection) error {
	f.writes++
	return f.writeErr
}

func (f *fakeSink) Close() error {
	f.closed++
	return f.closeErr
}

func TestSinks_QuitAfterAllWrites(t *testing.T) {
	display := &fakeSink{writeErr: ErrQuit}
	video := &fakeSink{}

	err := Sinks{display, video}.Write(models.Frame{}, gocv.NewMat(), nil)
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("Expected ErrQuit, got %v", err)
	}
	if video.writes != 1 {
		t.Error("Expected the frame to reach every sink before quitting")
	}
}

func TestSinks_ErrorStops(t *testing.T) {
	broken := &fakeSink{writeErr: errors.New("disk full")}
	next := &fakeSink{}

	if err := (Sinks{broken, next}).Write(models.Frame{}, gocv.NewMat(), nil); err == nil {
		t.Fatal("Expected write error")
	}
	if next.writes != 0 {
		t.Error("Expected later sinks to be skipped after a failure")
	}
}

func TestSinks_CloseAll(t *testing.T) {
	a := &fakeSink{closeErr: errors.New("writer a")}
	b := &fakeSink{}
	c := &fakeSink{closeErr: errors.New("writer c")}

	err := Sinks{a, b, c}.Close()
	if err == nil {
		t.Fatal("Expected combined error")
	}
	if !strings.Contains(err.Error(), "writer a") || !strings.Contains(err.Error(), "writer c") {
		t.Errorf("Expected both errors, got %v", err)
	}
	if a.closed != 1 || b.closed != 1 || c.closed != 1 {
		t.Error("Expected every sink to be closed")
	}
}

type fakeScreen struct {
	keys   []int
	shown  int
	closed int
}

func (f *fakeScreen) Show(gocv.Mat, int) int {
	key := -1
	if f.shown < len(f.keys) {
		key = f.keys[f.shown]
	}
	f.shown++
	return key
}

func (f *fakeScreen) Close() error {
	f.closed++
	return nil
}

func TestDisplaySink_QuitKey(t *testing.T) {
	screen := &fakeScreen{keys: []int{-1, 'x', 'q'}}
	sink := NewDisplaySink("YOLO Real-time Detection", 1, false, logger.NewNop())
	opened := 0
	sink.open = func(string) Screen {
		opened++
		return screen
	}

	mat := gocv.NewMat()
	defer mat.Close()
	for i := 0; i < 2; i++ {
		if err := sink.Write(models.Frame{}, mat, nil); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := sink.Write(models.Frame{}, mat, nil); !errors.Is(err, ErrQuit) {
		t.Fatalf("Expected ErrQuit on q, got %v", err)
	}
	if opened != 1 {
		t.Errorf("Expected one window, got %d", opened)
	}

	sink.Close()
	sink.Close()
	if screen.closed != 1 {
		t.Errorf("Expected window closed once, got %d", screen.closed)
	}
}

func TestDisplaySink_Headless(t *testing.T) {
	sink := NewDisplaySink("YOLO", 1, true, logger.NewNop())
	sink.open = func(string) Screen {
		t.Fatal("Headless sink must not open a window")
		return nil
	}

	mat := gocv.NewMat()
	defer mat.Close()
	for i := 0; i < 3; i++ {
		if err := sink.Write(models.Frame{}, mat, nil); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
