package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"predictor/internal/apperr"
)

// Window is an on-screen window and its region in screen pixels.
type Window struct {
	ID     string
	Title  string
	Region image.Rectangle
}

// WindowLocator finds windows by title.
type WindowLocator interface {
	Find(ctx context.Context, title string) (Window, error)
	Activate(ctx context.Context, w Window) error
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// XDoTool locates X11 windows with the xdotool command.
type XDoTool struct {
	run Runner
}

// NewXDoTool creates an XDoTool that runs the real binary.
func NewXDoTool() *XDoTool {
	return &XDoTool{run: execRunner}
}

// NewXDoToolWithRunner creates an XDoTool with a custom command runner.
func NewXDoToolWithRunner(run Runner) *XDoTool {
	return &XDoTool{run: run}
}

// Find implements WindowLocator. The first window whose title contains title wins.
func (x *XDoTool) Find(ctx context.Context, title string) (Window, error) {
	if runtime.GOOS != "linux" {
		return Window{}, apperr.New(apperr.SourceNotFound, "window lookup is not supported on %s", runtime.GOOS)
	}

	out, err := x.run(ctx, "xdotool", "search", "--onlyvisible", "--name", title)
	ids := strings.Fields(string(out))
	if err != nil || len(ids) == 0 {
		return Window{}, apperr.Wrap(apperr.SourceNotFound, err, "cannot find window with title '%s'", title)
	}

	id := ids[0]
	geometry, err := x.run(ctx, "xdotool", "getwindowgeometry", "--shell", id)
	if err != nil {
		return Window{}, apperr.Wrap(apperr.SourceNotFound, err, "cannot read geometry of window '%s'", title)
	}
	region, err := parseGeometry(geometry)
	if err != nil {
		return Window{}, apperr.Wrap(apperr.SourceNotFound, err, "cannot read geometry of window '%s'", title)
	}
	return Window{ID: id, Title: title, Region: region}, nil
}

// Activate implements WindowLocator.
func (x *XDoTool) Activate(ctx context.Context, w Window) error {
	if _, err := x.run(ctx, "xdotool", "windowactivate", "--sync", w.ID); err != nil {
		return fmt.Errorf("failed to activate window %s: %w", w.ID, err)
	}
	return nil
}

// parseGeometry reads the KEY=VALUE output of `xdotool getwindowgeometry --shell`.
func parseGeometry(out []byte) (image.Rectangle, error) {
	values := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			values[key] = n
		}
	}

	for _, key := range []string{"X", "Y", "WIDTH", "HEIGHT"} {
		if _, ok := values[key]; !ok {
			return image.Rectangle{}, fmt.Errorf("geometry is missing %s", key)
		}
	}
	if values["WIDTH"] <= 0 || values["HEIGHT"] <= 0 {
		return image.Rectangle{}, fmt.Errorf("window has no area")
	}
	x, y := values["X"], values["Y"]
	return image.Rect(x, y, x+values["WIDTH"], y+values["HEIGHT"]), nil
}
