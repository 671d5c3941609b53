// Package preview renders decoded meshes to small thumbnail images.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"

	"github.com/Faultbox/midgard-stl/internal/config"
	gm "github.com/Faultbox/midgard-stl/pkg/math"
	"github.com/Faultbox/midgard-stl/pkg/mesh"
)

// Preview errors.
var (
	ErrNotTriangles = errors.New("preview needs a triangle mesh")
	ErrNoPositions  = errors.New("mesh has no positions")
)

// Options controls camera, size and colors of a render.
type Options struct {
	Size        int     // output edge length in pixels
	Supersample int     // internal render scale
	Yaw         float32 // degrees around the model's Z (up) axis
	Pitch       float32 // degrees above the horizon
	Color       color.NRGBA
	Background  color.NRGBA
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.Default().Preview)
	return opts
}

// OptionsFromConfig converts the preview config section.
func OptionsFromConfig(cfg config.PreviewConfig) (Options, error) {
	fg, err := ParseHexColor(cfg.Color)
	if err != nil {
		return Options{}, fmt.Errorf("preview color: %w", err)
	}
	bg, err := ParseHexColor(cfg.Background)
	if err != nil {
		return Options{}, fmt.Errorf("preview background: %w", err)
	}
	return Options{
		Size:        cfg.Size,
		Supersample: cfg.Supersample,
		Yaw:         cfg.Yaw,
		Pitch:       cfg.Pitch,
		Color:       fg,
		Background:  bg,
	}, nil
}

// ParseHexColor parses #RRGGBB or #RRGGBBAA.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Render draws m with an orthographic camera orbiting the mesh center and
// returns a Size x Size image.
func Render(m *mesh.Mesh, opts Options) (*image.RGBA, error) {
	if m.Primitive != mesh.Triangles {
		return nil, fmt.Errorf("%w, got %v", ErrNotTriangles, m.Primitive)
	}
	positions := m.Vec3s(mesh.Position)
	if positions == nil {
		return nil, ErrNoPositions
	}
	normals := m.Vec3s(mesh.Normal)

	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}

	size := opts.Size * opts.Supersample
	fb := newFrameBuffer(size, opts.Background)

	view := viewMatrix(m.Bounds(), opts.Yaw, opts.Pitch)
	scale := float32(size) / 2 * 0.9 // unit sphere fills 90% of the frame
	light := gm.Vec3{X: -0.4, Y: 0.6, Z: 0.7}.Normalize()

	for t := 0; t+2 < len(positions); t += 3 {
		var p [3]gm.Vec3
		for v := 0; v < 3; v++ {
			q := view.TransformPoint(gm.V3(positions[t+v]))
			p[v] = gm.Vec3{
				X: float32(size)/2 + q.X*scale,
				Y: float32(size)/2 - q.Y*scale,
				Z: q.Z,
			}
		}

		var n gm.Vec3
		if normals != nil {
			n = view.TransformDirection(gm.V3(normals[t])).Normalize()
		}
		if n == (gm.Vec3{}) {
			// Many exporters write zero normals; fall back to the winding
			a := view.TransformPoint(gm.V3(positions[t]))
			b := view.TransformPoint(gm.V3(positions[t+1]))
			c := view.TransformPoint(gm.V3(positions[t+2]))
			n = b.Sub(a).Cross(c.Sub(a)).Normalize()
		}

		shade := 0.35 + 0.65*math.Abs(float64(n.Dot(light)))
		fb.fillTriangle(p, shadeColor(opts.Color, shade))
	}

	if opts.Supersample == 1 {
		return fb.img, nil
	}
	return downsample(fb.img, opts.Size), nil
}

// viewMatrix centers the mesh, scales its bounding sphere to unit radius and
// turns the Z-up model so the camera looks at it from yaw/pitch.
func viewMatrix(b mesh.Bounds, yaw, pitch float32) gm.Mat4 {
	center := gm.V3(b.Center())
	radius := gm.V3(b.Size()).Length() / 2
	if radius == 0 {
		radius = 1
	}

	return gm.RotateX(gm.Radians(pitch - 90)).
		Mul(gm.RotateZ(gm.Radians(-yaw))).
		Mul(gm.Scale(1/radius, 1/radius, 1/radius)).
		Mul(gm.Translate(-center.X, -center.Y, -center.Z))
}

func shadeColor(c color.NRGBA, shade float64) color.NRGBA {
	s := func(v uint8) uint8 {
		x := float64(v) * shade
		if x > 255 {
			x = 255
		}
		return uint8(x + 0.5)
	}
	return color.NRGBA{R: s(c.R), G: s(c.G), B: s(c.B), A: c.A}
}

// downsample scales a supersampled render to the target size. RGBA is
// premultiplied, so edges against a transparent background don't darken.
func downsample(img *image.RGBA, targetSize int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Encode writes img as "webp" or "png".
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("WebP encode: %w", err)
		}
		return nil
	case "png":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("PNG encode: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported preview format %q", format)
	}
}
