// Package matting removes the backdrop behind a cropped block object and
// trims the transparent margin around what is left.
package matting

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

var ErrFullyTransparent = errors.New("image is fully transparent")

// Remover turns the background of an image transparent.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Trim crops img to the bounding box of its non-transparent pixels.
func Trim(img *image.NRGBA) (*image.NRGBA, error) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX || maxY < minY {
		return nil, ErrFullyTransparent
	}
	return imaging.Crop(img, image.Rect(minX, minY, maxX+1, maxY+1)), nil
}
