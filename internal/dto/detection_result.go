package dto

import "image"

// DetectionResult is one detector box in frame pixel coordinates.
type DetectionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Rect returns the box as an image rectangle.
func (d DetectionResult) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// FromRect builds a DetectionResult from a rectangle.
func FromRect(label string, confidence float64, r image.Rectangle) DetectionResult {
	return DetectionResult{
		Label:      label,
		Confidence: confidence,
		X:          r.Min.X,
		Y:          r.Min.Y,
		Width:      r.Dx(),
		Height:     r.Dy(),
	}
}
