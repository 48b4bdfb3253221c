package preview

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrEmptyDisplay is returned when the displayed frame has no area.
	ErrEmptyDisplay = errors.New("preview display size is zero")
	// ErrInvalidFrame is returned for a frame without pixels.
	ErrInvalidFrame = errors.New("invalid frame size")
	// ErrDegenerateRect is returned when the mapped rectangle is empty.
	ErrDegenerateRect = errors.New("mapped rectangle is empty")
)

// ToFrame maps a rectangle drawn on the preview back into frame pixels.
//
// The preview-area and paste offsets are removed, the result is scaled by
// frame/display per axis, truncated and clamped to the frame. A rectangle
// that ends up empty after clamping is an error: the caller must abort the
// capture rather than crop nothing.
func ToFrame(r Rect, l Layout, frameW, frameH int) (image.Rectangle, error) {
	if l.DisplayW <= 0 || l.DisplayH <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %.0fx%.0f", ErrEmptyDisplay, l.DisplayW, l.DisplayH)
	}
	if frameW <= 0 || frameH <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, frameW, frameH)
	}

	fw, fh := float64(frameW), float64(frameH)
	offX := l.AreaX + l.PasteX
	offY := l.AreaY + l.PasteY

	// Multiply before dividing so exact ratios stay exact.
	x1 := clamp(truncate((r.X1-offX)*fw/l.DisplayW), frameW)
	y1 := clamp(truncate((r.Y1-offY)*fh/l.DisplayH), frameH)
	x2 := clamp(truncate((r.X2-offX)*fw/l.DisplayW), frameW)
	y2 := clamp(truncate((r.Y2-offY)*fh/l.DisplayH), frameH)

	if x1 >= x2 || y1 >= y2 {
		return image.Rectangle{}, fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrDegenerateRect, x1, y1, x2, y2)
	}

	// Built directly: image.Rect would silently swap inverted corners.
	return image.Rectangle{Min: image.Point{X: x1, Y: y1}, Max: image.Point{X: x2, Y: y2}}, nil
}

// ToPreview maps a rectangle in frame pixels onto the screen.
func ToPreview(r image.Rectangle, l Layout, frameW, frameH int) (Rect, error) {
	if l.DisplayW <= 0 || l.DisplayH <= 0 {
		return Rect{}, fmt.Errorf("%w: %.0fx%.0f", ErrEmptyDisplay, l.DisplayW, l.DisplayH)
	}
	if frameW <= 0 || frameH <= 0 {
		return Rect{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, frameW, frameH)
	}

	fw, fh := float64(frameW), float64(frameH)
	offX := l.AreaX + l.PasteX
	offY := l.AreaY + l.PasteY

	return Rect{
		X1: offX + float64(r.Min.X)*l.DisplayW/fw,
		Y1: offY + float64(r.Min.Y)*l.DisplayH/fh,
		X2: offX + float64(r.Max.X)*l.DisplayW/fw,
		Y2: offY + float64(r.Max.Y)*l.DisplayH/fh,
	}, nil
}

// truncate rounds toward zero. Values far outside the int range are
// saturated so that clamp still sees them on the right side.
func truncate(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
