package ai

import (
	"image"
	"sort"

	"blockcam/internal/dto"
)

// IoU is the intersection over union of two boxes.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// NMS applies class-wise non-maximum suppression and returns the kept boxes
// ordered by confidence.
func NMS(detections []dto.DetectionResult, iouThreshold float64) []dto.DetectionResult {
	sorted := make([]dto.DetectionResult, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]dto.DetectionResult, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].Label != sorted[i].Label {
				continue
			}
			if IoU(sorted[i].Rect(), sorted[j].Rect()) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
