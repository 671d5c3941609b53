package preview

import (
	"image"
	"image/color"
	"math"

	gm "github.com/Faultbox/midgard-stl/pkg/math"
)

// frameBuffer is a square color target with a depth buffer. Larger Z is
// closer to the camera.
type frameBuffer struct {
	size int
	img  *image.RGBA
	zbuf []float32
}

func newFrameBuffer(size int, background color.NRGBA) *frameBuffer {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	bg := color.RGBAModel.Convert(background).(color.RGBA)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = bg.R
		img.Pix[i+1] = bg.G
		img.Pix[i+2] = bg.B
		img.Pix[i+3] = bg.A
	}

	zbuf := make([]float32, size*size)
	for i := range zbuf {
		zbuf[i] = float32(math.Inf(-1))
	}

	return &frameBuffer{size: size, img: img, zbuf: zbuf}
}

// fillTriangle rasterizes a screen-space triangle with one flat color,
// testing pixel centers against the depth buffer. Both windings are drawn.
func (fb *frameBuffer) fillTriangle(p [3]gm.Vec3, c color.NRGBA) {
	x0, y0, z0 := p[0].X, p[0].Y, p[0].Z
	x1, y1, z1 := p[1].X, p[1].Y, p[1].Z
	x2, y2, z2 := p[2].X, p[2].Y, p[2].Z

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1 / det

	minX := clampInt(int(min(x0, x1, x2)), 0, fb.size-1)
	maxX := clampInt(int(max(x0, x1, x2))+1, 0, fb.size-1)
	minY := clampInt(int(min(y0, y1, y2)), 0, fb.size-1)
	maxY := clampInt(int(max(y0, y1, y2))+1, 0, fb.size-1)

	rgba := color.RGBAModel.Convert(c).(color.RGBA)

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5

			w0 := ((y1-y2)*(px-x2) + (x2-x1)*(py-y2)) * invDet
			w1 := ((y2-y0)*(px-x2) + (x0-x2)*(py-y2)) * invDet
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			idx := y*fb.size + x
			if z <= fb.zbuf[idx] {
				continue
			}
			fb.zbuf[idx] = z

			off := idx * 4
			fb.img.Pix[off+0] = rgba.R
			fb.img.Pix[off+1] = rgba.G
			fb.img.Pix[off+2] = rgba.B
			fb.img.Pix[off+3] = rgba.A
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
