package yolo

import (
	"fmt"
	"image"
	"math"
)

// Protos is the prototype head of a segmentation model, [1, count, height, width].
type Protos struct {
	Count  int
	Width  int
	Height int
	data   []float32
}

// NewProtos wraps a prototype tensor. data is copied.
func NewProtos(shape []int, data []float32) (*Protos, error) {
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected prototype output shape %v", shape)
	}
	p := &Protos{Count: shape[1], Height: shape[2], Width: shape[3]}
	if len(data) < p.Count*p.Width*p.Height {
		return nil, fmt.Errorf("prototype output holds %d values, expected %d", len(data), p.Count*p.Width*p.Height)
	}
	p.data = append([]float32(nil), data[:p.Count*p.Width*p.Height]...)
	return p, nil
}

// Mask builds the binary mask of one detection at prototype resolution. box is in frame pixels; pixels
// outside it stay transparent.
func (p *Protos) Mask(coeffs []float32, box image.Rectangle, frame image.Point) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, p.Width, p.Height))
	if len(coeffs) != p.Count || frame.X <= 0 || frame.Y <= 0 {
		return mask
	}

	sx := float64(p.Width) / float64(frame.X)
	sy := float64(p.Height) / float64(frame.Y)
	crop := image.Rect(
		int(math.Floor(float64(box.Min.X)*sx)),
		int(math.Floor(float64(box.Min.Y)*sy)),
		int(math.Ceil(float64(box.Max.X)*sx)),
		int(math.Ceil(float64(box.Max.Y)*sy)),
	).Intersect(mask.Rect)

	plane := p.Width * p.Height
	for y := crop.Min.Y; y < crop.Max.Y; y++ {
		for x := crop.Min.X; x < crop.Max.X; x++ {
			off := y*p.Width + x
			var sum float32
			for k, c := range coeffs {
				sum += c * p.data[k*plane+off]
			}
			// sigmoid(sum) > 0.5
			if sum > 0 {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
