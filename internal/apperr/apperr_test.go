package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := New(MissingModelFile, "model file not found: %s", "weights/x.onnx")
	wrapped := fmt.Errorf("loading model: %w", base)

	if KindOf(wrapped) != MissingModelFile {
		t.Errorf("Expected %s, got %s", MissingModelFile, KindOf(wrapped))
	}
	if !Is(wrapped, MissingModelFile) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("boom")) != Internal {
		t.Error("Unclassified errors should be Internal")
	}
	if Is(nil, Internal) {
		t.Error("nil error should not match any kind")
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(UnopenableSource, os.ErrNotExist, "cannot open video source (%s)", "cam")

	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Wrapped cause should be reachable with errors.Is")
	}
	expected := "cannot open video source (cam): file does not exist"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, 0},
		{"cancelled", New(UserCancelled, "no video file selected"), 0},
		{"invalid menu", New(InvalidMenuChoice, "invalid input"), 1},
		{"missing model", New(MissingModelFile, "model file not found"), 1},
		{"unclassified", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.expected {
				t.Errorf("ExitCode() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if SourceNotFound.String() != "source_not_found" {
		t.Errorf("Unexpected name %q", SourceNotFound.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("Unexpected name %q", Kind(99).String())
	}
}
