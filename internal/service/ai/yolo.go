package ai

import (
	"fmt"

	"blockcam/internal/preview"
)

// Candidate is a raw box decoded from a model output, in model input pixels.
type Candidate struct {
	ClassID    int
	Confidence float64
	Box        preview.Rect
}

// DecodeYOLO reads a YOLOv8 style output laid out as [4+classes, boxes]
// (cx, cy, w, h rows followed by one score row per class) and keeps every
// box whose best class score reaches threshold.
func DecodeYOLO(output []float32, classes, boxes int, threshold float64) ([]Candidate, error) {
	if classes <= 0 || boxes <= 0 {
		return nil, fmt.Errorf("invalid output layout %dx%d", 4+classes, boxes)
	}
	if len(output) < (4+classes)*boxes {
		return nil, fmt.Errorf("output has %d values, want %d", len(output), (4+classes)*boxes)
	}

	at := func(row, col int) float64 { return float64(output[row*boxes+col]) }

	var candidates []Candidate
	for i := 0; i < boxes; i++ {
		best, bestScore := -1, 0.0
		for c := 0; c < classes; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}
		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		candidates = append(candidates, Candidate{
			ClassID:    best,
			Confidence: bestScore,
			Box:        preview.Rect{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return candidates, nil
}
