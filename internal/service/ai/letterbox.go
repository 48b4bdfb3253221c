package ai

import (
	"image"
	"image/color"
	"image/draw"

	"blockcam/internal/preview"

	"github.com/nfnt/resize"
)

// padding colour used by the ultralytics letterbox
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox resizes img into a size x size canvas keeping its aspect ratio
// and returns the layout used plus the normalised CHW input.
func Letterbox(img image.Image, size int) (preview.Layout, []float32, error) {
	bounds := img.Bounds()
	layout, err := preview.Fit(0, 0, size, size, bounds.Dx(), bounds.Dy())
	if err != nil {
		return preview.Layout{}, nil, err
	}

	resized := resize.Resize(uint(layout.DisplayW), uint(layout.DisplayH), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, draw.Src)
	rb := resized.Bounds()
	offset := image.Pt(int(layout.PasteX), int(layout.PasteY))
	draw.Draw(canvas, rb.Sub(rb.Min).Add(offset), resized, rb.Min, draw.Src)

	plane := size * size
	input := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := canvas.PixOffset(x, y)
			p := y*size + x
			input[p] = float32(canvas.Pix[i]) / 255.0
			input[plane+p] = float32(canvas.Pix[i+1]) / 255.0
			input[2*plane+p] = float32(canvas.Pix[i+2]) / 255.0
		}
	}
	return layout, input, nil
}
