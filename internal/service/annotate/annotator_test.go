package annotate

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"predictor/internal/config"
	"predictor/internal/models"
)

func TestCaption(t *testing.T) {
	d := models.Detection{Label: "person", Confidence: 0.876}
	tests := []struct {
		name       string
		showLabels bool
		showConf   bool
		expected   string
	}{
		{"both", true, true, "person 0.88"},
		{"label only", true, false, "person"},
		{"conf only", false, true, "0.88"},
		{"neither", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Annotator{LineWidth: 2, ShowLabels: tt.showLabels, ShowConf: tt.showConf}
			if got := a.Caption(d); got != tt.expected {
				t.Errorf("Caption() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestClassColor_Wraps(t *testing.T) {
	if ClassColor(0) != ClassColor(len(palette)) {
		t.Error("Expected palette to wrap around")
	}
	if ClassColor(0) == ClassColor(1) {
		t.Error("Expected adjacent classes to differ")
	}
}

func TestAlphaBytes_DropsStride(t *testing.T) {
	parent := image.NewAlpha(image.Rect(0, 0, 4, 4))
	parent.Pix[parent.PixOffset(1, 1)] = 255
	sub := parent.SubImage(image.Rect(1, 1, 3, 3)).(*image.Alpha)

	got := alphaBytes(sub)
	if len(got) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(got))
	}
	if got[0] != 255 || got[1] != 0 {
		t.Errorf("Unexpected bytes %v", got)
	}
}

func TestRender_LeavesInputUntouched(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mask := image.NewAlpha(image.Rect(0, 0, 16, 12))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	a := NewAnnotator(&config.Config{LineWidth: 2, ShowLabels: true, ShowConf: true})
	out, err := a.Render(frame, []models.Detection{
		{ClassID: 0, Label: "bird", Confidence: 0.9, Box: image.Rect(10, 10, 60, 60), Mask: mask},
		{ClassID: 1, Label: "pipe", Confidence: 0.7, Box: image.Rect(80, 0, 150, 119)},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	defer out.Close()

	if out.Rows() != 120 || out.Cols() != 160 {
		t.Errorf("Expected 160x120 output, got %dx%d", out.Cols(), out.Rows())
	}
	if nonZero(frame) != 0 {
		t.Error("Expected input frame to stay black")
	}
	if nonZero(out) == 0 {
		t.Error("Expected something to be drawn")
	}
}

func TestOverlay(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 60, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	if err := Overlay(&img, "FPS: 30.00"); err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if nonZero(img) == 0 {
		t.Error("Expected overlay text to be drawn")
	}
}

func nonZero(img gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}
