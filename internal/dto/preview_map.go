package dto

import "blockcam/internal/preview"

// FrameRect is a rectangle in camera frame pixels.
type FrameRect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// MapRequest is the body of POST /api/preview/map.
type MapRequest struct {
	Rect        preview.Rect   `json:"rect"`
	Layout      preview.Layout `json:"layout"`
	FrameWidth  int            `json:"frameW"`
	FrameHeight int            `json:"frameH"`
}

// PreviewLayout is the payload of GET /api/preview/layout.
type PreviewLayout struct {
	Layout      preview.Layout `json:"layout"`
	Guide       preview.Rect   `json:"guide"`
	FrameWidth  int            `json:"frameW"`
	FrameHeight int            `json:"frameH"`
	Fit         bool           `json:"fit"`
}
