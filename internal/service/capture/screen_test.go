package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"runtime"
	"strings"
	"testing"

	"predictor/internal/apperr"
)

type fakeLocator struct {
	window    Window
	err       error
	activated bool
}

func (f *fakeLocator) Find(context.Context, string) (Window, error) {
	return f.window, f.err
}

func (f *fakeLocator) Activate(context.Context, Window) error {
	f.activated = true
	return nil
}

type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestScreen_ReadsRawFrames(t *testing.T) {
	region := image.Rect(10, 20, 14, 22) // 4x2
	frameBytes := 4 * 2 * 3
	raw := bytes.Repeat([]byte{1}, frameBytes)
	raw = append(raw, bytes.Repeat([]byte{2}, frameBytes)...)
	raw = append(raw, 3, 3) // trailing partial frame

	locator := &fakeLocator{window: Window{ID: "42", Title: "Flappy Bird", Region: region}}
	reader := &closeCounter{Reader: bytes.NewReader(raw)}
	var gotRegion image.Rectangle
	grab := func(_ context.Context, r image.Rectangle, fps float64) (io.ReadCloser, error) {
		gotRegion = r
		return reader, nil
	}

	src, err := OpenScreen(context.Background(), "Flappy Bird", 20, locator, grab)
	if err != nil {
		t.Fatalf("OpenScreen failed: %v", err)
	}
	if !locator.activated {
		t.Error("Expected window to be activated")
	}
	if gotRegion != region {
		t.Errorf("Expected grab of %v, got %v", region, gotRegion)
	}
	if src.Mode() != Stream || src.FPS() != 20 {
		t.Errorf("Unexpected mode %s or rate %v", src.Mode(), src.FPS())
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		frame, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
		if frame.Index != i || frame.Mat.Cols() != 4 || frame.Mat.Rows() != 2 {
			t.Errorf("Unexpected frame %d: index %d size %dx%d", i, frame.Index, frame.Mat.Cols(), frame.Mat.Rows())
		}
		if got := frame.Mat.GetVecbAt(0, 0)[0]; got != uint8(i+1) {
			t.Errorf("Frame %d holds %d, expected %d", i, got, i+1)
		}
		frame.Close()
	}

	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after the last full frame, got %v", err)
	}

	src.Close()
	src.Close()
	if reader.closed != 1 {
		t.Errorf("Expected capture to be stopped once, got %d", reader.closed)
	}
}

func TestOpenScreen_WindowMissing(t *testing.T) {
	locator := &fakeLocator{err: apperr.New(apperr.SourceNotFound, "cannot find window")}
	grabbed := false
	grab := func(context.Context, image.Rectangle, float64) (io.ReadCloser, error) {
		grabbed = true
		return nil, nil
	}

	_, err := OpenScreen(context.Background(), "Flappy Bird", 20, locator, grab)
	if !apperr.Is(err, apperr.SourceNotFound) {
		t.Errorf("Expected SourceNotFound, got %v", err)
	}
	if grabbed {
		t.Error("Expected no capture without a window")
	}
}

func TestParseGeometry(t *testing.T) {
	out := []byte("WINDOW=123\nX=100\nY=50\nWIDTH=288\nHEIGHT=512\nSCREEN=0\n")
	region, err := parseGeometry(out)
	if err != nil {
		t.Fatalf("parseGeometry failed: %v", err)
	}
	if region != image.Rect(100, 50, 388, 562) {
		t.Errorf("Unexpected region %v", region)
	}

	if _, err := parseGeometry([]byte("X=1\nY=2\n")); err == nil {
		t.Error("Expected error for missing size")
	}
}

func TestXDoTool_Find(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("xdotool lookup is linux only")
	}

	var calls []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, strings.Join(args, " "))
		switch args[0] {
		case "search":
			return []byte("777\n888\n"), nil
		case "getwindowgeometry":
			return []byte("WINDOW=777\nX=0\nY=0\nWIDTH=10\nHEIGHT=20\n"), nil
		}
		return nil, nil
	}

	w, err := NewXDoToolWithRunner(run).Find(context.Background(), "Flappy Bird")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if w.ID != "777" || w.Region != image.Rect(0, 0, 10, 20) {
		t.Errorf("Unexpected window %+v", w)
	}
	if len(calls) != 2 || calls[1] != "getwindowgeometry --shell 777" {
		t.Errorf("Unexpected xdotool calls %v", calls)
	}
}

func TestXDoTool_NotFound(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("xdotool lookup is linux only")
	}

	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	_, err := NewXDoToolWithRunner(run).Find(context.Background(), "Nope")
	if !apperr.Is(err, apperr.SourceNotFound) {
		t.Errorf("Expected SourceNotFound, got %v", err)
	}
}
