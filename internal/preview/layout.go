package preview

import (
	"fmt"
	"math"
)

// Rect is a rectangle in on-screen coordinates.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns X2-X1.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns Y2-Y1.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Layout describes how a frame is drawn inside the preview area.
type Layout struct {
	// AreaX, AreaY is the top-left corner of the preview area on screen.
	AreaX float64 `json:"areaX"`
	AreaY float64 `json:"areaY"`
	// PasteX, PasteY is the offset of the resized frame inside the area.
	PasteX float64 `json:"pasteX"`
	PasteY float64 `json:"pasteY"`
	// DisplayW, DisplayH is the size of the resized frame on screen.
	DisplayW float64 `json:"displayW"`
	DisplayH float64 `json:"displayH"`
}

// Displayed returns the on-screen rectangle actually covered by the frame.
func (l Layout) Displayed() Rect {
	x := l.AreaX + l.PasteX
	y := l.AreaY + l.PasteY
	return Rect{X1: x, Y1: y, X2: x + l.DisplayW, Y2: y + l.DisplayH}
}

// Fit letterboxes a frameW x frameH frame into an areaW x areaH preview
// area at (areaX, areaY), keeping the aspect ratio and centring the result.
func Fit(areaX, areaY, areaW, areaH, frameW, frameH int) (Layout, error) {
	if areaW <= 0 || areaH <= 0 {
		return Layout{}, fmt.Errorf("%w: area %dx%d", ErrEmptyDisplay, areaW, areaH)
	}
	if frameW <= 0 || frameH <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, frameW, frameH)
	}

	// Integer arithmetic keeps the limiting side exactly the area size.
	displayW, displayH := areaW, areaH
	if areaW*frameH <= areaH*frameW {
		displayH = frameH * areaW / frameW
	} else {
		displayW = frameW * areaH / frameH
	}
	// Never collapse to zero.
	displayW = max(displayW, 1)
	displayH = max(displayH, 1)

	return Layout{
		AreaX:    float64(areaX),
		AreaY:    float64(areaY),
		PasteX:   float64((areaW - displayW) / 2),
		PasteY:   float64((areaH - displayH) / 2),
		DisplayW: float64(displayW),
		DisplayH: float64(displayH),
	}, nil
}

// Stretch is the layout of a frame resized to fill the whole area.
func Stretch(areaX, areaY, areaW, areaH int) Layout {
	return Layout{
		AreaX:    float64(areaX),
		AreaY:    float64(areaY),
		DisplayW: float64(areaW),
		DisplayH: float64(areaH),
	}
}

// Guide returns the guide rectangle centred in the preview area, sized as a
// fraction of the area. Ratios outside (0,1] are clamped into it.
func Guide(l Layout, areaW, areaH int, widthRatio, heightRatio float64) Rect {
	widthRatio = clampRatio(widthRatio)
	heightRatio = clampRatio(heightRatio)

	guideW := math.Floor(float64(areaW) * widthRatio)
	guideH := math.Floor(float64(areaH) * heightRatio)
	cx := l.AreaX + math.Floor(float64(areaW)/2)
	cy := l.AreaY + math.Floor(float64(areaH)/2)

	return Rect{
		X1: cx - math.Floor(guideW/2),
		Y1: cy - math.Floor(guideH/2),
		X2: cx + math.Floor(guideW/2),
		Y2: cy + math.Floor(guideH/2),
	}
}

func clampRatio(r float64) float64 {
	if r <= 0 || r > 1 || math.IsNaN(r) {
		return 1
	}
	return r
}
