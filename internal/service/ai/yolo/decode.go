// Package yolo reads the raw output tensors of YOLO detection and segmentation heads.
//
// The detection head is [1, 4+classes+coeffs, anchors] in channel-major order: the first four channels
// are box centre x, centre y, width and height in network input pixels, followed by one score per class
// and, for segmentation models, the mask coefficients.
package yolo

import (
	"fmt"
	"image"
	"math"
)

// Layout describes the shape of a detection head.
type Layout struct {
	Anchors    int
	Classes    int
	MaskCoeffs int
}

// NewLayout derives the layout from a tensor shape. maskCoeffs is the prototype count of the model
// (0 for plain detection).
func NewLayout(shape []int, maskCoeffs int) (Layout, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return Layout{}, fmt.Errorf("unexpected detection output shape %v", shape)
	}
	channels, anchors := shape[1], shape[2]
	classes := channels - 4 - maskCoeffs
	if classes <= 0 || anchors <= 0 {
		return Layout{}, fmt.Errorf("detection output shape %v leaves no class scores", shape)
	}
	return Layout{Anchors: anchors, Classes: classes, MaskCoeffs: maskCoeffs}, nil
}

// Channels is the number of values per anchor.
func (l Layout) Channels() int {
	return 4 + l.Classes + l.MaskCoeffs
}

// Candidate is a detection before non-max suppression.
type Candidate struct {
	ClassID int
	Score   float32
	Box     image.Rectangle // frame pixels, clipped to the frame
	Coeffs  []float32       // mask coefficients, nil for plain detection
}

// Decode returns every anchor whose best class score reaches conf. input is the network input size and
// frame the size of the image the boxes are scaled to.
func Decode(data []float32, l Layout, conf float32, input, frame image.Point) ([]Candidate, error) {
	if len(data) < l.Channels()*l.Anchors {
		return nil, fmt.Errorf("detection output holds %d values, expected %d", len(data), l.Channels()*l.Anchors)
	}

	sx := float64(frame.X) / float64(input.X)
	sy := float64(frame.Y) / float64(input.Y)
	bounds := image.Rect(0, 0, frame.X, frame.Y)
	n := l.Anchors
	at := func(c, i int) float32 { return data[c*n+i] }

	var out []Candidate
	for i := 0; i < n; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < l.Classes; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < conf {
			continue
		}

		cx, cy := float64(at(0, i)), float64(at(1, i))
		w, h := float64(at(2, i)), float64(at(3, i))
		box := image.Rect(
			int(math.Round((cx-w/2)*sx)),
			int(math.Round((cy-h/2)*sy)),
			int(math.Round((cx+w/2)*sx)),
			int(math.Round((cy+h/2)*sy)),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		cand := Candidate{ClassID: best, Score: bestScore, Box: box}
		if l.MaskCoeffs > 0 {
			cand.Coeffs = make([]float32, l.MaskCoeffs)
			for k := range cand.Coeffs {
				cand.Coeffs[k] = at(4+l.Classes+k, i)
			}
		}
		out = append(out, cand)
	}
	return out, nil
}

// ByClass groups candidate indices by class id, for per-class suppression.
func ByClass(cands []Candidate) map[int][]int {
	groups := make(map[int][]int)
	for i, c := range cands {
		groups[c.ClassID] = append(groups[c.ClassID], i)
	}
	return groups
}
