package matting

import (
	"context"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ColorKeyRemover treats the colour along the image border as the backdrop
// and clears every pixel connected to the border that is close to it.
type ColorKeyRemover struct {
	// Tolerance is the maximum CIE Lab distance to the backdrop colour.
	Tolerance float64
	// Feather is the Gaussian radius applied to the alpha mask; 0 disables it.
	Feather float64
	// Despeckle is the erode/dilate radius used to drop isolated pixels; 0 disables it.
	Despeckle float64
}

// NewColorKeyRemover returns a remover with the given tolerance and feather radius.
func NewColorKeyRemover(tolerance, feather float64) *ColorKeyRemover {
	return &ColorKeyRemover{Tolerance: tolerance, Feather: feather, Despeckle: 1}
}

// Remove implements Remover.
func (r *ColorKeyRemover) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return src, nil
	}

	lab := make([]colorful.Color, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			lab[y*w+x] = colorful.Color{
				R: float64(src.Pix[i]) / 255,
				G: float64(src.Pix[i+1]) / 255,
				B: float64(src.Pix[i+2]) / 255,
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	backdrop := BorderColor(lab, w, h)
	background := r.floodFill(lab, w, h, backdrop)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, bg := range background {
		v := uint8(255)
		if bg {
			v = 0
		}
		mask.Pix[i*4] = v
		mask.Pix[i*4+1] = v
		mask.Pix[i*4+2] = v
		mask.Pix[i*4+3] = 255
	}

	var alpha image.Image = mask
	if r.Despeckle > 0 {
		alpha = effect.Dilate(effect.Erode(alpha, r.Despeckle), r.Despeckle)
	}
	if r.Feather > 0 {
		alpha = blur.Gaussian(alpha, r.Feather)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			m := color.GrayModel.Convert(alpha.At(alpha.Bounds().Min.X+x, alpha.Bounds().Min.Y+y)).(color.Gray).Y
			src.Pix[i+3] = uint8(uint16(src.Pix[i+3]) * uint16(m) / 255)
		}
	}
	return src, nil
}

// BorderColor is the mean Lab colour of the outermost ring of pixels.
func BorderColor(lab []colorful.Color, w, h int) colorful.Color {
	var l, a, b float64
	n := 0
	add := func(x, y int) {
		cl, ca, cb := lab[y*w+x].Lab()
		l += cl
		a += ca
		b += cb
		n++
	}
	for x := 0; x < w; x++ {
		add(x, 0)
		if h > 1 {
			add(x, h-1)
		}
	}
	for y := 1; y < h-1; y++ {
		add(0, y)
		if w > 1 {
			add(w-1, y)
		}
	}
	return colorful.Lab(l/float64(n), a/float64(n), b/float64(n)).Clamped()
}

// floodFill marks the pixels reachable from the border through colours
// within tolerance of the backdrop.
func (r *ColorKeyRemover) floodFill(lab []colorful.Color, w, h int, backdrop colorful.Color) []bool {
	visited := make([]bool, w*h)
	near := func(i int) bool { return lab[i].DistanceLab(backdrop) <= r.Tolerance }

	queue := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if visited[i] || !near(i) {
			return
		}
		visited[i] = true
		queue = append(queue, i)
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return visited
}
