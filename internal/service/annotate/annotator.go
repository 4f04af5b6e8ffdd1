// Package annotate draws detections onto frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"predictor/internal/config"
	"predictor/internal/models"
)

// Annotator renders boxes, labels and masks with a fixed style.
type Annotator struct {
	LineWidth  int
	ShowLabels bool
	ShowConf   bool
	MaskAlpha  float64
}

// NewAnnotator creates an Annotator from the run configuration.
func NewAnnotator(cfg *config.Config) *Annotator {
	return &Annotator{
		LineWidth:  cfg.LineWidth,
		ShowLabels: cfg.ShowLabels,
		ShowConf:   cfg.ShowConf,
		MaskAlpha:  0.5,
	}
}

// Caption is the text drawn above a box, or "" when neither the label nor the confidence is shown.
func (a *Annotator) Caption(d models.Detection) string {
	switch {
	case a.ShowLabels && a.ShowConf:
		return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	case a.ShowLabels:
		return d.Label
	case a.ShowConf:
		return fmt.Sprintf("%.2f", d.Confidence)
	}
	return ""
}

// Render returns a new Mat holding frame with detections drawn on it. frame is not modified.
func (a *Annotator) Render(frame gocv.Mat, detections []models.Detection) (gocv.Mat, error) {
	out := frame.Clone()

	for _, d := range detections {
		if d.Mask == nil {
			continue
		}
		if err := a.blendMask(&out, d.Mask, ClassColor(d.ClassID)); err != nil {
			out.Close()
			return gocv.NewMat(), err
		}
	}

	for _, d := range detections {
		if err := a.drawBox(&out, d); err != nil {
			out.Close()
			return gocv.NewMat(), err
		}
	}
	return out, nil
}

func (a *Annotator) fontScale() float64 {
	return math.Max(float64(a.LineWidth)/3, 0.4)
}

func (a *Annotator) drawBox(img *gocv.Mat, d models.Detection) error {
	c := ClassColor(d.ClassID)
	if err := gocv.Rectangle(img, d.Box, c, a.LineWidth); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	label := a.Caption(d)
	if label == "" {
		return nil
	}

	thickness := max(a.LineWidth-1, 1)
	scale := a.fontScale()
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, scale, thickness)

	// Label sits above the box, or inside it when the box touches the top edge.
	top := d.Box.Min.Y - size.Y - 6
	if top < 0 {
		top = d.Box.Min.Y
	}
	bg := image.Rect(d.Box.Min.X, top, d.Box.Min.X+size.X+4, top+size.Y+6)
	if err := gocv.Rectangle(img, bg, c, -1); err != nil {
		return fmt.Errorf("failed to draw label background: %w", err)
	}
	pt := image.Pt(bg.Min.X+2, bg.Max.Y-3)
	if err := gocv.PutText(img, label, pt, gocv.FontHersheySimplex, scale, textColor(c), thickness); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

func (a *Annotator) blendMask(img *gocv.Mat, mask *image.Alpha, c color.RGBA) error {
	b := mask.Bounds()
	small, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, alphaBytes(mask))
	if err != nil {
		return fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer small.Close()

	full := gocv.NewMat()
	defer full.Close()
	gocv.Resize(small, &full, image.Pt(img.Cols(), img.Rows()), 0, 0, gocv.InterpolationLinear)
	gocv.Threshold(full, &full, 127, 255, gocv.ThresholdBinary)

	layer := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), img.Rows(), img.Cols(), gocv.MatTypeCV8UC3)
	defer layer.Close()

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(*img, 1-a.MaskAlpha, layer, a.MaskAlpha, 0, &blended)
	blended.CopyToWithMask(img, full)
	return nil
}

// alphaBytes returns the mask pixels row by row without stride padding.
func alphaBytes(mask *image.Alpha) []byte {
	b := mask.Bounds()
	if mask.Stride == b.Dx() {
		return mask.Pix[:b.Dx()*b.Dy()]
	}
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := mask.PixOffset(b.Min.X, y)
		out = append(out, mask.Pix[start:start+b.Dx()]...)
	}
	return out
}

// Overlay writes text in the top-left corner of img, in place.
func Overlay(img *gocv.Mat, text string) error {
	if err := gocv.PutText(img, text, image.Pt(10, 30), gocv.FontHersheySimplex, 1, color.RGBA{G: 255, A: 0}, 2); err != nil {
		return fmt.Errorf("failed to draw overlay: %w", err)
	}
	return nil
}
