package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"predictor/internal/apperr"
	"predictor/internal/config"
)

// captureOverrides parses args with the real flag set and returns the overrides of the command.
func captureOverrides(t *testing.T, args ...string) config.Overrides {
	t.Helper()
	var got config.Overrides
	cliApp := newCLI()
	for _, cmd := range cliApp.Commands {
		cmd.Action = func(c *cli.Context) error {
			got = overrides(c)
			return nil
		}
	}
	if err := cliApp.Run(append([]string{"predict"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return got
}

func TestOverrides_GlobalAndCommandFlags(t *testing.T) {
	got := captureOverrides(t, "--conf", "0.5", "--device", "cpu", "--show-labels=false",
		"media", "--source", "video", "--video", "clip.mp4", "--save", "yes")

	expected := map[string]string{
		"CONF_THRESHOLD": "0.5",
		"DEVICE":         "cpu",
		"SHOW_LABELS":    "false",
		"SOURCE":         "video",
		"VIDEO_PATH":     "clip.mp4",
		"SAVE":           "yes",
	}
	if !reflect.DeepEqual(got.Values, expected) {
		t.Errorf("Expected %v, got %v", expected, got.Values)
	}
}

func TestOverrides_UnsetFlagsAreAbsent(t *testing.T) {
	got := captureOverrides(t, "screen")
	if len(got.Values) != 0 {
		t.Errorf("Expected no overrides, got %v", got.Values)
	}
}

func TestOverrides_ImageArguments(t *testing.T) {
	got := captureOverrides(t, "images", "--show", "a.jpg", "photos")

	if !reflect.DeepEqual(got.Inputs, []string{"a.jpg", "photos"}) {
		t.Errorf("Unexpected inputs %v", got.Inputs)
	}
	if got.Values["SHOW"] != "true" {
		t.Errorf("Expected SHOW=true, got %v", got.Values)
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		checklist bool
	}{
		{"success", nil, 0, false},
		{"cancelled", apperr.New(apperr.UserCancelled, "no video file selected"), 0, false},
		{"invalid menu", apperr.New(apperr.InvalidMenuChoice, "invalid input \"3\""), 1, false},
		{"missing model", apperr.New(apperr.MissingModelFile, "model file not found"), 1, true},
		{"internal", errors.New("boom"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := exitStatus(&out, []string{"predict", "media"}, tt.err)
			if code != tt.code {
				t.Errorf("Expected exit code %d, got %d", tt.code, code)
			}
			if got := strings.Contains(out.String(), "troubleshooting:"); got != tt.checklist {
				t.Errorf("Checklist printed = %v, expected %v: %q", got, tt.checklist, out.String())
			}
		})
	}
}

func TestExitStatus_ChecklistPerCommand(t *testing.T) {
	var out bytes.Buffer
	exitStatus(&out, []string{"predict", "--headless", "screen"}, errors.New("window not found"))

	if !strings.Contains(out.String(), "ffmpeg and xdotool") {
		t.Errorf("Expected the screen checklist, got %q", out.String())
	}
}
